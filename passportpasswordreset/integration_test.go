//go:build integration

package passportpasswordreset_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.inout.gg/passport"
	"go.inout.gg/passport/internal/testutil"
	"go.inout.gg/passport/passportpassword"
	"go.inout.gg/passport/passportpasswordreset"
	"go.inout.gg/passport/passportsender"
)

type userRow struct {
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

func TestPasswordFlows(t *testing.T) {
	pool := testutil.MustDB(t)
	ctx := t.Context()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	passwords := passportpassword.NewHandler(pool, passportpassword.NewConfig(
		passportpassword.WithLogger(logger),
	))
	resets := passportpasswordreset.NewHandler(
		pool,
		passportsender.NewLogSender(logger),
		passportpasswordreset.NewConfig(passportpasswordreset.WithLogger(logger)),
	)

	alice, err := passwords.HandleUserRegistration(ctx, "alice", "alice@example.com", "Secret123!")
	require.NoError(t, err)

	t.Run("identifiers are unique in any case", func(t *testing.T) {
		_, err := passwords.HandleUserRegistration(ctx, "ALICE", "other@example.com", "Secret123!")
		require.ErrorIs(t, err, passportpassword.ErrUsernameAlreadyTaken)

		_, err = passwords.HandleUserRegistration(ctx, "bob", "Alice@Example.COM", "Secret123!")
		require.ErrorIs(t, err, passportpassword.ErrEmailAlreadyTaken)

		var n int
		require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM users").Scan(&n))
		assert.Equal(t, 1, n)
	})

	t.Run("login", func(t *testing.T) {
		user, err := passwords.HandleUserLogin(ctx, "Alice", "Secret123!")
		require.NoError(t, err)
		assert.Equal(t, alice, user)

		_, err = passwords.HandleUserLogin(ctx, "alice", "Wrong123!")
		require.ErrorIs(t, err, passportpassword.ErrPasswordResetRequired)

		_, err = passwords.HandleUserLogin(ctx, "nobody", "Secret123!")
		require.ErrorIs(t, err, passportpassword.ErrInvalidCredentials)
	})

	t.Run("lookup of unknown user", func(t *testing.T) {
		info, ticket, err := resets.HandleUserLookup(ctx, "nobody")
		require.ErrorIs(t, err, passport.ErrUserNotFound)
		assert.Zero(t, info)
		assert.Zero(t, ticket)
	})

	t.Run("reset changes only the password hash", func(t *testing.T) {
		var before userRow
		require.NoError(t, pool.QueryRow(ctx,
			"SELECT username, email, password_hash, created_at FROM users WHERE id = $1", alice.ID,
		).Scan(&before.Username, &before.Email, &before.PasswordHash, &before.CreatedAt))

		_, err := pool.Exec(ctx,
			"INSERT INTO user_sessions (id, user_id, expires_at) VALUES ('s1', $1, now() + interval '1 day')",
			alice.ID)
		require.NoError(t, err)

		_, stale, err := resets.HandleUserLookup(ctx, "alice")
		require.NoError(t, err)

		info, ticket, err := resets.HandleUserLookup(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, passportpasswordreset.UserInfo{
			ID:       alice.ID,
			Username: "alice",
			Email:    "alice@example.com",
		}, info)

		err = resets.HandlePasswordReset(ctx, stale.Token, "NewSecret123!")
		require.ErrorIs(t, err, passportpasswordreset.ErrInvalidTicket, "older tickets are invalidated")

		require.NoError(t, resets.HandlePasswordReset(ctx, ticket.Token, "NewSecret123!"))

		var after userRow
		require.NoError(t, pool.QueryRow(ctx,
			"SELECT username, email, password_hash, created_at FROM users WHERE id = $1", alice.ID,
		).Scan(&after.Username, &after.Email, &after.PasswordHash, &after.CreatedAt))

		assert.Equal(t, before.Username, after.Username)
		assert.Equal(t, before.Email, after.Email)
		assert.True(t, before.CreatedAt.Equal(after.CreatedAt))
		assert.NotEqual(t, before.PasswordHash, after.PasswordHash)

		var sessions int
		require.NoError(t, pool.QueryRow(ctx,
			"SELECT count(*) FROM user_sessions WHERE user_id = $1", alice.ID,
		).Scan(&sessions))
		assert.Zero(t, sessions)

		err = resets.HandlePasswordReset(ctx, ticket.Token, "Another123!")
		require.ErrorIs(t, err, passportpasswordreset.ErrInvalidTicket)

		_, err = passwords.HandleUserLogin(ctx, "alice", "NewSecret123!")
		require.NoError(t, err)
	})
}
