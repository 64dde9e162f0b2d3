package passportpassword

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.inout.gg/passport"
	"go.inout.gg/passport/passportsession"
)

var (
	userColumns      = []string{"id", "username", "email"}
	loginUserColumns = []string{"id", "username", "email", "password_hash"}
)

// testHasher is a cheap Argon2id hasher to keep tests fast.
//
//nolint:gochecknoglobals
var testHasher = NewArgon2PasswordHasher(Argon2Params{
	Memory:      64,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
})

func newTestConfig() *Config {
	return NewConfig(
		WithPasswordHasher(testHasher),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

// hashOf matches a password hash argument that verifies against password.
type hashOf string

func (p hashOf) Match(v any) bool {
	hash, ok := v.(string)
	if !ok {
		return false
	}

	ok, err := testHasher.Verify(hash, string(p))

	return err == nil && ok
}

func uniqueViolation(constraint string) error {
	//nolint:exhaustruct
	return &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: constraint}
}

// anyArgs matches n arguments of any value.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}

	return args
}

func mustHash(t *testing.T, password string) string {
	t.Helper()

	hash, err := testHasher.Hash(password)
	require.NoError(t, err)

	return hash
}

func TestUserRegistration(t *testing.T) {
	t.Parallel()

	t.Run("register user", func(t *testing.T) {
		t.Parallel()

		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`INSERT INTO users`).
			WithArgs(
				pgxmock.AnyArg(),
				"alice",
				"alice",
				"alice",
				"alice@example.com",
				"alice@example.com",
				hashOf("Secret123!"),
			).
			WillReturnRows(pgxmock.NewRows(userColumns).AddRow("abcdefghijklmnop", "alice", "alice@example.com"))

		h := NewHandler(mock, newTestConfig())

		user, err := h.HandleUserRegistration(t.Context(), "alice", "alice@example.com", "Secret123!")
		require.NoError(t, err)

		assert.Equal(t, passport.User{
			ID:       "abcdefghijklmnop",
			Username: "alice",
			Email:    "alice@example.com",
		}, user)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("username already taken in any case", func(t *testing.T) {
		t.Parallel()

		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`INSERT INTO users`).
			WithArgs(
				pgxmock.AnyArg(),
				"ALICE",
				"alice",
				"ALICE",
				"other@example.com",
				"other@example.com",
				pgxmock.AnyArg(),
			).
			WillReturnError(uniqueViolation(constraintUsernameUnique))

		h := NewHandler(mock, newTestConfig())

		_, err = h.HandleUserRegistration(t.Context(), "ALICE", "other@example.com", "Secret123!")
		require.ErrorIs(t, err, ErrUsernameAlreadyTaken)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("email already taken in any case", func(t *testing.T) {
		t.Parallel()

		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`INSERT INTO users`).
			WithArgs(
				pgxmock.AnyArg(),
				"bob",
				"bob",
				"bob",
				"Alice@Example.com",
				"alice@example.com",
				pgxmock.AnyArg(),
			).
			WillReturnError(uniqueViolation(constraintEmailUnique))

		h := NewHandler(mock, newTestConfig())

		_, err = h.HandleUserRegistration(t.Context(), "bob", "Alice@Example.com", "Secret123!")
		require.ErrorIs(t, err, ErrEmailAlreadyTaken)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("weak password never reaches the database", func(t *testing.T) {
		t.Parallel()

		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		h := NewHandler(mock, newTestConfig())

		_, err = h.HandleUserRegistration(t.Context(), "alice", "alice@example.com", "short")

		var verr *passport.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "Must be at least 8 characters", verr.Fields["password"])
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("authenticated user is rejected", func(t *testing.T) {
		t.Parallel()

		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		ctx := passportsession.WithSession(t.Context(), passportsession.Session{ID: "sid"})
		h := NewHandler(mock, newTestConfig())

		_, err = h.HandleUserRegistration(ctx, "alice", "alice@example.com", "Secret123!")
		require.ErrorIs(t, err, passport.ErrAuthenticatedUser)
	})

	t.Run("empty username is rejected before any query", func(t *testing.T) {
		t.Parallel()

		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		h := NewHandler(mock, newTestConfig())

		_, err = h.HandleUserRegistration(t.Context(), "", "e@example.com", "Secret123!")

		var verr *passport.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "Invalid username", verr.Fields["username"])
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unexpected database error", func(t *testing.T) {
		t.Parallel()

		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`INSERT INTO users`).
			WithArgs(anyArgs(7)...).
			WillReturnError(errors.New("connection refused"))

		h := NewHandler(mock, newTestConfig())

		_, err = h.HandleUserRegistration(t.Context(), "alice", "alice@example.com", "Secret123!")
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrUsernameAlreadyTaken)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestUserLogin(t *testing.T) {
	t.Parallel()

	setup := func(t *testing.T, username string, rows *pgxmock.Rows, err error) (*Handler, pgxmock.PgxPoolIface) {
		t.Helper()

		mock, mockErr := pgxmock.NewPool()
		require.NoError(t, mockErr)
		t.Cleanup(mock.Close)

		q := mock.ExpectQuery(`FROM users`).WithArgs(username)
		if err != nil {
			q.WillReturnError(err)
		} else {
			q.WillReturnRows(rows)
		}

		return NewHandler(mock, newTestConfig()), mock
	}

	t.Run("valid credentials", func(t *testing.T) {
		t.Parallel()

		rows := pgxmock.NewRows(loginUserColumns).
			AddRow("uid", "alice", "alice@example.com", mustHash(t, "Secret123!"))
		h, mock := setup(t, "alice", rows, nil)

		user, err := h.HandleUserLogin(t.Context(), "Alice", "Secret123!")
		require.NoError(t, err)

		assert.Equal(t, "uid", user.ID)
		assert.Equal(t, "alice", user.Username)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown username", func(t *testing.T) {
		t.Parallel()

		h, mock := setup(t, "nobody", nil, pgx.ErrNoRows)

		_, err := h.HandleUserLogin(t.Context(), "nobody", "Secret123!")
		require.ErrorIs(t, err, ErrInvalidCredentials)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wrong password requires reset", func(t *testing.T) {
		t.Parallel()

		rows := pgxmock.NewRows(loginUserColumns).
			AddRow("uid", "alice", "alice@example.com", mustHash(t, "Secret123!"))
		h, mock := setup(t, "alice", rows, nil)

		_, err := h.HandleUserLogin(t.Context(), "alice", "Wrong123!")
		require.ErrorIs(t, err, ErrPasswordResetRequired)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unusable stored hash requires reset", func(t *testing.T) {
		t.Parallel()

		rows := pgxmock.NewRows(loginUserColumns).
			AddRow("uid", "alice", "alice@example.com", "")
		h, mock := setup(t, "alice", rows, nil)

		_, err := h.HandleUserLogin(t.Context(), "alice", "Secret123!")
		require.ErrorIs(t, err, ErrPasswordResetRequired)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stored hash with zero rounds requires reset", func(t *testing.T) {
		t.Parallel()

		rows := pgxmock.NewRows(loginUserColumns).
			AddRow("uid", "alice", "alice@example.com", "$argon2id$v=19$m=64,t=0,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2U")
		h, mock := setup(t, "alice", rows, nil)

		var err error
		require.NotPanics(t, func() {
			_, err = h.HandleUserLogin(t.Context(), "alice", "Secret123!")
		})
		require.ErrorIs(t, err, ErrPasswordResetRequired)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("authenticated user is rejected", func(t *testing.T) {
		t.Parallel()

		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		ctx := passportsession.WithSession(context.Background(), passportsession.Session{ID: "sid"})

		_, err = NewHandler(mock, newTestConfig()).HandleUserLogin(ctx, "alice", "Secret123!")
		require.ErrorIs(t, err, passport.ErrAuthenticatedUser)
	})
}
