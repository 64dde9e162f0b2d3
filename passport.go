// Package passport implements username and password based user registration,
// login and password reset flows backed by PostgreSQL and server-side sessions.
package passport

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-playground/mold/v4/modifiers"
	"github.com/go-playground/mold/v4/scrubbers"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrAuthenticatedUser   = errors.New("passport: authenticated user access")
	ErrUnauthenticatedUser = errors.New("passport: unauthenticated user access")
	ErrUserNotFound        = errors.New("passport: user not found")
)

var (
	//nolint:gochecknoglobals
	DefaultLogger = slog.Default().With("module", "passport")

	//nolint:gochecknoglobals
	DefaultFormValidator = validator.New(validator.WithRequiredStructEnabled())

	//nolint:gochecknoglobals
	DefaultFormScrubber = scrubbers.New()

	//nolint:gochecknoglobals
	DefaultFormModifier = modifiers.New()
)

// DB is the subset of pgxpool.Pool used across the package handlers.
type DB interface {
	Begin(context.Context) (pgx.Tx, error)
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// User is an authenticated or freshly registered user.
type User struct {
	ID       string
	Username string
	Email    string
}
