// Package passportmigrate rolls the passport schema migrations up and down.
package passportmigrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"go.inout.gg/passport/internal/migrations"
)

const (
	// DefaultUpStep applies every pending migration.
	DefaultUpStep = 0

	// DefaultDownStep rolls back the latest applied migration.
	DefaultDownStep = 1
)

// Migrator is a database migration utility to roll up and down passport's
// migrations in order.
type Migrator struct {
	base *goose.Provider
}

// MigrateOptions specifies options for migration operation.
type MigrateOptions struct {
	// Steps limits the number of migrations to apply or roll back.
	Steps int
}

// MigrationStatus describes a known migration.
type MigrationStatus struct {
	Version   int64
	Path      string
	Applied   bool
	AppliedAt time.Time
}

// New creates a new Migrator working on db.
func New(db *sql.DB) (*Migrator, error) {
	p, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return nil, fmt.Errorf("passport/migrate: failed to create migration provider: %w", err)
	}

	return &Migrator{p}, nil
}

// NewFromPool creates a new Migrator working on a database/sql view of pool.
func NewFromPool(pool *pgxpool.Pool) (*Migrator, error) {
	return New(stdlib.OpenDBFromPool(pool))
}

// Close releases the underlying database handle.
func (m *Migrator) Close() error {
	return m.base.Close()
}

// Up applies pending migrations and returns the applied versions.
//
// All pending migrations are applied unless opts limits the steps.
func (m *Migrator) Up(ctx context.Context, opts *MigrateOptions) ([]int64, error) {
	steps := DefaultUpStep
	if opts != nil {
		steps = opts.Steps
	}

	if steps <= 0 {
		results, err := m.base.Up(ctx)
		if err != nil {
			return nil, fmt.Errorf("passport/migrate: failed to apply migrations: %w", err)
		}

		versions := make([]int64, 0, len(results))
		for _, r := range results {
			versions = append(versions, r.Source.Version)
		}

		return versions, nil
	}

	var versions []int64
	for range steps {
		r, err := m.base.UpByOne(ctx)
		if err != nil {
			if errors.Is(err, goose.ErrNoNextVersion) {
				break
			}

			return versions, fmt.Errorf("passport/migrate: failed to apply migration: %w", err)
		}

		versions = append(versions, r.Source.Version)
	}

	return versions, nil
}

// Down rolls back applied migrations and returns the rolled back versions.
//
// The latest migration is rolled back unless opts sets more steps.
func (m *Migrator) Down(ctx context.Context, opts *MigrateOptions) ([]int64, error) {
	steps := DefaultDownStep
	if opts != nil && opts.Steps > 0 {
		steps = opts.Steps
	}

	var versions []int64
	for range steps {
		r, err := m.base.Down(ctx)
		if err != nil {
			if errors.Is(err, goose.ErrNoNextVersion) {
				break
			}

			return versions, fmt.Errorf("passport/migrate: failed to roll back migration: %w", err)
		}

		versions = append(versions, r.Source.Version)
	}

	return versions, nil
}

// Status reports every known migration in version order.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	statuses, err := m.base.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("passport/migrate: failed to read migration status: %w", err)
	}

	result := make([]MigrationStatus, 0, len(statuses))
	for _, s := range statuses {
		result = append(result, MigrationStatus{
			Version:   s.Source.Version,
			Path:      s.Source.Path,
			Applied:   s.State == goose.StateApplied,
			AppliedAt: s.AppliedAt,
		})
	}

	return result, nil
}
