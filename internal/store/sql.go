package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sitewatch/internal/models"
)

// sqlStore carries the queries shared by the SQLite and Postgres backends.
// Queries are written with ? placeholders and rebound for Postgres.
type sqlStore struct {
	db       *sql.DB
	dollarPH bool
}

func (s *sqlStore) q(query string) string {
	if !s.dollarPH {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

const selectSites = `
SELECT s.id, s.name, s.url, s.interval_ms, s.validation_mode, s.validation_args, s.timeout_seconds, s.disabled,
       r.id, r.checked_at_ms, r.up, r.status_code, r.latency_ms, r.reason
FROM sites s
LEFT JOIN check_results r ON r.id = (
	SELECT id FROM check_results WHERE site_id = s.id ORDER BY checked_at_ms DESC LIMIT 1
)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSite(row rowScanner) (models.Site, error) {
	var (
		st        models.Site
		mode      string
		args      sql.NullString
		resID     sql.NullString
		checkedAt sql.NullInt64
		up        sql.NullBool
		code      sql.NullInt64
		latency   sql.NullInt64
		reason    sql.NullString
	)
	err := row.Scan(&st.ID, &st.Name, &st.URL, &st.Settings.ValidationIntervalMs, &mode, &args,
		&st.Settings.TimeoutSeconds, &st.Settings.Disabled,
		&resID, &checkedAt, &up, &code, &latency, &reason)
	if err != nil {
		return st, err
	}
	st.Settings.ValidationMode, err = models.ParseValidationMode(mode)
	if err != nil {
		return st, fmt.Errorf("site %d: %w", st.ID, err)
	}
	if args.Valid && st.Settings.ValidationMode.TakesArgs() {
		v := args.String
		st.Settings.ValidationArgs = &v
	}
	if resID.Valid {
		st.LastResult = &models.CheckResult{
			ID:         resID.String,
			SiteID:     st.ID,
			CheckedAt:  time.UnixMilli(checkedAt.Int64).UTC(),
			Up:         up.Bool,
			StatusCode: int(code.Int64),
			LatencyMS:  latency.Int64,
			Reason:     reason.String,
		}
	}
	return st, nil
}

func (s *sqlStore) GetSites(ctx context.Context) ([]models.Site, error) {
	rows, err := s.db.QueryContext(ctx, selectSites+" ORDER BY s.id")
	if err != nil {
		return nil, fmt.Errorf("query sites: %w", err)
	}
	defer rows.Close()

	var sites []models.Site
	for rows.Next() {
		st, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		sites = append(sites, st)
	}
	return sites, rows.Err()
}

func (s *sqlStore) GetSite(ctx context.Context, id int) (models.Site, error) {
	st, err := scanSite(s.db.QueryRowContext(ctx, s.q(selectSites+" WHERE s.id = ?"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Site{}, ErrNotFound
	}
	if err != nil {
		return models.Site{}, fmt.Errorf("get site %d: %w", id, err)
	}
	return st, nil
}

func (s *sqlStore) DeleteSite(ctx context.Context, id int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.q("DELETE FROM check_results WHERE site_id = ?"), id); err != nil {
		return fmt.Errorf("delete check results: %w", err)
	}
	res, err := tx.ExecContext(ctx, s.q("DELETE FROM sites WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete site: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func (s *sqlStore) SaveCheckResult(ctx context.Context, r models.CheckResult) error {
	_, err := s.db.ExecContext(ctx, s.q(`
INSERT INTO check_results (id, site_id, checked_at_ms, up, status_code, latency_ms, reason)
VALUES (?, ?, ?, ?, ?, ?, ?)`),
		r.ID, r.SiteID, r.CheckedAt.UnixMilli(), r.Up, r.StatusCode, r.LatencyMS, r.Reason)
	if err != nil {
		return fmt.Errorf("insert check result: %w", err)
	}
	return nil
}

// siteArgs returns the column values for an insert, in schema order.
func siteArgs(site models.Site) []any {
	var args any
	if site.Settings.ValidationMode.TakesArgs() && site.Settings.ValidationArgs != nil {
		args = *site.Settings.ValidationArgs
	}
	return []any{
		site.Name, site.URL, site.Settings.ValidationIntervalMs, string(site.Settings.ValidationMode),
		args, site.Settings.TimeoutSeconds, site.Settings.Disabled,
	}
}

const insertSite = `
INSERT INTO sites (name, url, interval_ms, validation_mode, validation_args, timeout_seconds, disabled)
VALUES (?, ?, ?, ?, ?, ?, ?)`

func validateNew(site models.Site) error {
	if site.ID != 0 {
		return fmt.Errorf("site already has id %d", site.ID)
	}
	if !site.Settings.ValidationMode.Valid() {
		return fmt.Errorf("unknown validation mode %q", site.Settings.ValidationMode)
	}
	return nil
}
