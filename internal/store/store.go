package store

import (
	"context"
	"errors"
	"fmt"

	"sitewatch/internal/models"
)

var (
	// ErrNotFound is returned when a requested site does not exist.
	ErrNotFound = errors.New("not found")
)

type Store interface {
	Init(ctx context.Context) error
	Close() error

	// Sites
	CreateSite(ctx context.Context, site models.Site) (models.Site, error)
	GetSites(ctx context.Context) ([]models.Site, error)
	GetSite(ctx context.Context, id int) (models.Site, error)
	DeleteSite(ctx context.Context, id int) error

	// Check results
	SaveCheckResult(ctx context.Context, result models.CheckResult) error
}

// Open builds and initializes the store for driver ("sqlite" or "postgres").
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	var s Store
	switch driver {
	case "sqlite", "sqlite3", "":
		s = &SQLiteStore{DBPath: dsn}
	case "postgres", "postgresql":
		s = &PostgresStore{ConnStr: dsn}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err := s.Init(ctx); err != nil {
		return nil, fmt.Errorf("init %s store: %w", driver, err)
	}
	return s, nil
}
