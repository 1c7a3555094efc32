package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"sitewatch/internal/models"
)

type SQLiteStore struct {
	DBPath string
	sqlStore
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	var err error
	s.db, err = sql.Open("sqlite3", s.DBPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows a single writer; the scheduler and the form write concurrently.
	s.db.SetMaxOpenConns(1)

	createTables := `
	CREATE TABLE IF NOT EXISTS sites (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		interval_ms INTEGER NOT NULL,
		validation_mode TEXT NOT NULL DEFAULT 'STATUS_CODE',
		validation_args TEXT,
		timeout_seconds INTEGER NOT NULL DEFAULT 10,
		disabled BOOLEAN NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS check_results (
		id TEXT PRIMARY KEY,
		site_id INTEGER NOT NULL,
		checked_at_ms INTEGER NOT NULL,
		up BOOLEAN NOT NULL,
		status_code INTEGER,
		latency_ms INTEGER NOT NULL,
		reason TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_check_results_site ON check_results (site_id, checked_at_ms DESC);`
	if _, err = s.db.ExecContext(ctx, createTables); err != nil {
		s.db.Close()
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CreateSite(ctx context.Context, site models.Site) (models.Site, error) {
	if err := validateNew(site); err != nil {
		return models.Site{}, err
	}
	res, err := s.db.ExecContext(ctx, insertSite, siteArgs(site)...)
	if err != nil {
		return models.Site{}, fmt.Errorf("insert site: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Site{}, fmt.Errorf("read site id: %w", err)
	}
	site.ID = int(id)
	return site, nil
}

func (s *SQLiteStore) DeleteSite(ctx context.Context, id int) error {
	if err := s.sqlStore.DeleteSite(ctx, id); err != nil {
		return err
	}
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sites").Scan(&count); err != nil {
		return fmt.Errorf("count sites: %w", err)
	}
	if count == 0 {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM sqlite_sequence WHERE name='sites'"); err != nil {
			return fmt.Errorf("reset site sequence: %w", err)
		}
	}
	return nil
}
