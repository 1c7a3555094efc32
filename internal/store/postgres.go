package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"sitewatch/internal/models"
)

type PostgresStore struct {
	ConnStr string
	sqlStore
}

func (p *PostgresStore) Init(ctx context.Context) error {
	var err error
	p.db, err = sql.Open("postgres", p.ConnStr)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	p.dollarPH = true
	if err := p.db.PingContext(ctx); err != nil {
		p.db.Close()
		return fmt.Errorf("ping postgres: %w", err)
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS sites (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			url TEXT NOT NULL,
			interval_ms BIGINT NOT NULL,
			validation_mode TEXT NOT NULL DEFAULT 'STATUS_CODE',
			validation_args TEXT,
			timeout_seconds INTEGER NOT NULL DEFAULT 10,
			disabled BOOLEAN NOT NULL DEFAULT FALSE
		);`,
		`CREATE TABLE IF NOT EXISTS check_results (
			id TEXT PRIMARY KEY,
			site_id INTEGER NOT NULL,
			checked_at_ms BIGINT NOT NULL,
			up BOOLEAN NOT NULL,
			status_code INTEGER,
			latency_ms BIGINT NOT NULL,
			reason TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_check_results_site ON check_results (site_id, checked_at_ms DESC);`,
	}
	for _, q := range queries {
		if _, err := p.db.ExecContext(ctx, q); err != nil {
			p.db.Close()
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}

func (p *PostgresStore) CreateSite(ctx context.Context, site models.Site) (models.Site, error) {
	if err := validateNew(site); err != nil {
		return models.Site{}, err
	}
	err := p.db.QueryRowContext(ctx, p.q(insertSite+" RETURNING id"), siteArgs(site)...).Scan(&site.ID)
	if err != nil {
		return models.Site{}, fmt.Errorf("insert site: %w", err)
	}
	return site, nil
}
