// Package serversession implements a server-side session management strategy
// for managing user sessions.
//
// Sessions are stored in PostgreSQL, the session ID is handed to the client
// via a cookie.
package serversession

import (
	"cmp"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.inout.gg/foundations/debug"

	"go.inout.gg/passport"
	"go.inout.gg/passport/internal/dbsqlc"
	"go.inout.gg/passport/internal/random"
	"go.inout.gg/passport/internal/sqldb"
	"go.inout.gg/passport/passportsession"
)

var _ passportsession.Authenticator = (*sessionStrategy)(nil)

//nolint:gochecknoglobals
var d = debug.Debuglog("passport/session")

const (
	DefaultCookieName = "auth_session"
	DefaultCookiePath = "/"
	DefaultExpiresIn  = 30 * 24 * time.Hour

	// SessionIDEntropySize is the number of random bytes in a session ID.
	SessionIDEntropySize = 25
)

type sessionStrategy struct {
	db     passport.DB
	config *Config
}

type Config struct {
	Logger *slog.Logger

	CookieName     string        // optional (default: "auth_session")
	CookiePath     string        // optional (default: "/")
	CookieSecure   bool          // optional (default: false)
	CookieSameSite http.SameSite // optional (default: http.SameSiteLaxMode)
	ExpiresIn      time.Duration // optional (default: 30 days)
}

// WithCookieSecure marks the session cookie as Secure.
func WithCookieSecure(secure bool) func(*Config) {
	return func(c *Config) { c.CookieSecure = secure }
}

// WithExpiresIn sets the session lifetime.
func WithExpiresIn(d time.Duration) func(*Config) {
	return func(c *Config) { c.ExpiresIn = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) func(*Config) {
	return func(c *Config) { c.Logger = logger }
}

// NewConfig creates a new session configuration.
func NewConfig(opts ...func(*Config)) *Config {
	var config Config
	for _, opt := range opts {
		opt(&config)
	}

	config.Logger = cmp.Or(config.Logger, passport.DefaultLogger)
	config.CookieName = cmp.Or(config.CookieName, DefaultCookieName)
	config.CookiePath = cmp.Or(config.CookiePath, DefaultCookiePath)
	config.CookieSameSite = cmp.Or(config.CookieSameSite, http.SameSiteLaxMode)
	config.ExpiresIn = cmp.Or(config.ExpiresIn, DefaultExpiresIn)

	debug.Assert(config.Logger != nil, "config.Logger is required")
	debug.Assert(config.CookieName != "", "config.CookieName is required")
	debug.Assert(
		config.ExpiresIn > 0,
		"config.ExpiresIn must be positive time.Duration",
	)

	return &config
}

// New creates a new session authenticator.
//
// The session authenticator uses a DB to store sessions and a cookie to
// store the session ID.
func New(db passport.DB, config *Config) passportsession.Authenticator {
	if config == nil {
		config = NewConfig()
	}

	debug.Assert(db != nil, "db is required")

	return &sessionStrategy{
		db:     db,
		config: config,
	}
}

func (s *sessionStrategy) Issue(
	w http.ResponseWriter,
	r *http.Request,
	user passport.User,
) (passportsession.Session, error) {
	ctx := r.Context()

	var sess passportsession.Session

	sessionID, err := random.IDFromEntropySize(SessionIDEntropySize)
	if err != nil {
		return sess, fmt.Errorf(
			"passport/session: failed to generate session ID: %w",
			err,
		)
	}

	expiresAt := time.Now().Add(s.config.ExpiresIn)

	d("issuing a new session for user=%v, expiring at=%v", user.ID, expiresAt)

	dbSess, err := dbsqlc.New().
		CreateUserSession(ctx, s.db, dbsqlc.CreateUserSessionParams{
			ID:        sessionID,
			UserID:    user.ID,
			ExpiresAt: expiresAt,
		})
	if err != nil {
		return sess, fmt.Errorf(
			"passport/session: failed to create session: %w",
			err,
		)
	}

	sess.ID = dbSess.ID
	sess.UserID = dbSess.UserID
	sess.CreatedAt = dbSess.CreatedAt
	sess.ExpiresAt = dbSess.ExpiresAt
	sess.Fresh = true

	setCookie(w, s.config, sess.ID, sess.ExpiresAt)

	return sess, nil
}

func (s *sessionStrategy) Authenticate(
	w http.ResponseWriter,
	r *http.Request,
) (passportsession.Session, error) {
	ctx := r.Context()
	q := dbsqlc.New()

	var sess passportsession.Session

	cookie, err := r.Cookie(s.config.CookieName)
	if err != nil || cookie.Value == "" {
		return sess, passport.ErrUnauthenticatedUser
	}

	dbSess, err := q.FindUserSessionByID(ctx, s.db, cookie.Value)
	if err != nil {
		if sqldb.IsNotFoundError(err) {
			d("no session found for the provided cookie")
			deleteCookie(w, s.config)

			return sess, passport.ErrUnauthenticatedUser
		}

		return sess, fmt.Errorf(
			"passport/session: failed to find user session: %w",
			err,
		)
	}

	now := time.Now()

	if !now.Before(dbSess.ExpiresAt) {
		d("session expired at=%v", dbSess.ExpiresAt)

		if err := q.DeleteUserSessionByID(ctx, s.db, dbSess.ID); err != nil {
			return sess, fmt.Errorf(
				"passport/session: failed to delete expired session: %w",
				err,
			)
		}

		deleteCookie(w, s.config)

		return sess, passport.ErrUnauthenticatedUser
	}

	sess.ID = dbSess.ID
	sess.UserID = dbSess.UserID
	sess.CreatedAt = dbSess.CreatedAt
	sess.ExpiresAt = dbSess.ExpiresAt

	// Extend sessions that went past half of their lifetime.
	if !now.Before(dbSess.ExpiresAt.Add(-s.config.ExpiresIn / 2)) {
		expiresAt := now.Add(s.config.ExpiresIn)
		if err := q.UpdateUserSessionExpiresAt(ctx, s.db, dbsqlc.UpdateUserSessionExpiresAtParams{
			ID:        dbSess.ID,
			ExpiresAt: expiresAt,
		}); err != nil {
			return sess, fmt.Errorf(
				"passport/session: failed to extend session: %w",
				err,
			)
		}

		d("session extended until=%v", expiresAt)

		sess.ExpiresAt = expiresAt
		sess.Fresh = true

		setCookie(w, s.config, sess.ID, sess.ExpiresAt)
	}

	return sess, nil
}
