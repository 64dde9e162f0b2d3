// Package sqldb classifies PostgreSQL errors returned by pgx.
package sqldb

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// IsNotFoundError reports whether err is caused by a query returning no rows.
func IsNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsUniqueViolationError reports whether err is caused by a unique
// constraint violation.
func IsUniqueViolationError(err error) bool {
	_, ok := UniqueViolationConstraint(err)
	return ok
}

// UniqueViolationConstraint returns the name of the violated unique
// constraint if err is caused by a unique constraint violation.
func UniqueViolationConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return pgErr.ConstraintName, true
	}

	return "", false
}
