// Package passportpasswordreset implements the password reset flow.
//
// A reset is done in two steps: HandleUserLookup finds the user and issues
// a short-lived ticket, HandlePasswordReset redeems the ticket to set a new
// password.
package passportpasswordreset

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.inout.gg/foundations/debug"

	"go.inout.gg/passport"
	"go.inout.gg/passport/internal/dbsqlc"
	"go.inout.gg/passport/internal/random"
	"go.inout.gg/passport/internal/sqldb"
	"go.inout.gg/passport/internal/uuidv7"
	"go.inout.gg/passport/passportpassword"
	"go.inout.gg/passport/passportpasswordverifier"
	"go.inout.gg/passport/passportsender"
	"go.inout.gg/passport/passportsession"
)

// ErrInvalidTicket is returned when the reset ticket is unknown, expired or
// has already been used.
var ErrInvalidTicket = errors.New("passport/passwordreset: invalid reset ticket")

const (
	DefaultTicketExpiry = 15 * time.Minute
	DefaultTokenLength  = 32
)

//nolint:gochecknoglobals
var d = debug.Debuglog("passport/passwordreset")

// Config is the configuration for the password reset handler.
//
// Make sure to use the NewConfig function to create a new config, instead
// of instantiating the struct directly.
type Config struct {
	PasswordHasher   passportpassword.PasswordHasher            // optional
	PasswordVerifier passportpasswordverifier.PasswordVerifier // optional
	Logger           *slog.Logger                              // optional

	// TokenLength sets the number of random bytes in a ticket token.
	//
	// Defaults to DefaultTokenLength.
	TokenLength int // optional

	// TicketExpiry sets how long a ticket can be redeemed.
	//
	// Defaults to DefaultTicketExpiry.
	TicketExpiry time.Duration // optional
}

func (c *Config) defaults() {
	c.PasswordHasher = cmp.Or(c.PasswordHasher, passportpassword.DefaultPasswordHasher)
	c.PasswordVerifier = cmp.Or(c.PasswordVerifier, passportpasswordverifier.New(nil))
	c.Logger = cmp.Or(c.Logger, passport.DefaultLogger)
	c.TokenLength = cmp.Or(c.TokenLength, DefaultTokenLength)
	c.TicketExpiry = cmp.Or(c.TicketExpiry, DefaultTicketExpiry)
}

func (c *Config) assert() {
	debug.Assert(c.PasswordHasher != nil, "PasswordHasher must be set")
	debug.Assert(c.PasswordVerifier != nil, "PasswordVerifier must be set")
	debug.Assert(c.Logger != nil, "Logger must be set")
	debug.Assert(c.TokenLength > 0, "TokenLength must be positive")
	debug.Assert(c.TicketExpiry > 0, "TicketExpiry must be positive")
}

// NewConfig creates a new config.
func NewConfig(opts ...func(*Config)) *Config {
	//nolint:exhaustruct
	config := Config{}
	for _, opt := range opts {
		opt(&config)
	}

	config.defaults()
	config.assert()

	return &config
}

// WithPasswordHasher configures the password hasher.
//
// When setting a password hasher make sure to set it across all modules,
// i.e., user registration, password reset and login.
func WithPasswordHasher(hasher passportpassword.PasswordHasher) func(*Config) {
	return func(cfg *Config) { cfg.PasswordHasher = hasher }
}

// WithPasswordVerifier configures the password strength verifier.
func WithPasswordVerifier(verifier passportpasswordverifier.PasswordVerifier) func(*Config) {
	return func(cfg *Config) { cfg.PasswordVerifier = verifier }
}

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) func(*Config) {
	return func(cfg *Config) { cfg.Logger = logger }
}

// WithTicketExpiry configures the ticket lifetime.
func WithTicketExpiry(expiry time.Duration) func(*Config) {
	return func(cfg *Config) { cfg.TicketExpiry = expiry }
}

// UserInfo is the public profile of the user requesting a reset.
type UserInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Ticket authorizes a single password reset for the user it was issued to.
type Ticket struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// PasswordResetMessagePayload is the payload of the message sent once the
// password has been changed.
type PasswordResetMessagePayload struct {
	Username string
}

// Handler handles password reset requests.
//
// It is a general enough implementation so it can be used for different
// communication methods. Check out the HTTPHandler for a ready to use
// implementation that handles HTTP requests.
type Handler struct {
	db     passport.DB
	sender passportsender.Sender
	config *Config
}

// NewHandler creates a new Handler.
//
// If config is nil, the default config is used.
func NewHandler(db passport.DB, sender passportsender.Sender, config *Config) *Handler {
	if config == nil {
		config = NewConfig()
	}

	config.assert()

	h := Handler{db, sender, config}

	debug.Assert(h.db != nil, "db must be set")
	debug.Assert(h.sender != nil, "sender must be set")

	return &h
}

// HandleUserLookup finds the user by username and issues a reset ticket.
//
// Usernames are matched case-insensitively. Issuing a ticket invalidates
// every unused ticket previously issued to the same user.
//
// passport.ErrUserNotFound is returned along with an empty UserInfo if there
// is no such user.
func (h *Handler) HandleUserLookup(
	ctx context.Context,
	username string,
) (UserInfo, Ticket, error) {
	var (
		info   UserInfo
		ticket Ticket
	)

	// Forbid authorized user access.
	if passportsession.IsAuthenticated(ctx) {
		return info, ticket, passport.ErrAuthenticatedUser
	}

	usernameKey, err := passportpassword.UsernameKey(username)
	if err != nil {
		d("invalid username: %v", err)
		return info, ticket, passport.ErrUserNotFound
	}

	token, err := random.SecureHexString(h.config.TokenLength)
	if err != nil {
		return info, ticket, fmt.Errorf(
			"passport/passwordreset: failed to generate ticket token: %w",
			err,
		)
	}

	q := dbsqlc.New()

	tx, err := h.db.Begin(ctx)
	if err != nil {
		return info, ticket, fmt.Errorf(
			"passport/passwordreset: failed to begin transaction: %w",
			err,
		)
	}

	//nolint:errcheck
	defer tx.Rollback(ctx)

	user, err := q.FindUserByUsernameKey(ctx, tx, usernameKey)
	if err != nil {
		if sqldb.IsNotFoundError(err) {
			return info, ticket, passport.ErrUserNotFound
		}

		return info, ticket, fmt.Errorf(
			"passport/passwordreset: failed to find user: %w",
			err,
		)
	}

	if err := q.InvalidatePasswordResetTicketsByUserID(ctx, tx, user.ID); err != nil {
		return info, ticket, fmt.Errorf(
			"passport/passwordreset: failed to invalidate reset tickets: %w",
			err,
		)
	}

	row, err := q.CreatePasswordResetTicket(ctx, tx, dbsqlc.CreatePasswordResetTicketParams{
		ID:        uuidv7.Must(),
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: time.Now().Add(h.config.TicketExpiry),
	})
	if err != nil {
		return info, ticket, fmt.Errorf(
			"passport/passwordreset: failed to create reset ticket: %w",
			err,
		)
	}

	if err := tx.Commit(ctx); err != nil {
		return info, ticket, fmt.Errorf(
			"passport/passwordreset: failed to commit transaction: %w",
			err,
		)
	}

	d("issued reset ticket for user=%v, expiring at=%v", user.ID, row.ExpiresAt)

	info = UserInfo{ID: user.ID, Username: user.Username, Email: user.Email}
	ticket = Ticket{Token: row.Token, ExpiresAt: row.ExpiresAt}

	return info, ticket, nil
}

// HandlePasswordReset redeems the ticket identified by token and replaces the
// password of its user.
//
// Only the password hash is changed. Every session of the user is deleted,
// no new session is issued.
//
// ErrInvalidTicket is returned if the ticket cannot be redeemed.
func (h *Handler) HandlePasswordReset(
	ctx context.Context,
	token, password string,
) error {
	// Forbid authorized user access.
	if passportsession.IsAuthenticated(ctx) {
		return passport.ErrAuthenticatedUser
	}

	if err := passportpassword.VerifyPasswordStrength(h.config.PasswordVerifier, password); err != nil {
		return err
	}

	// NOTE: hash password upfront to avoid unnecessary database TX delay.
	passwordHash, err := h.config.PasswordHasher.Hash(password)
	if err != nil {
		return fmt.Errorf("passport/passwordreset: failed to hash password: %w", err)
	}

	q := dbsqlc.New()

	tx, err := h.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("passport/passwordreset: failed to begin transaction: %w", err)
	}

	//nolint:errcheck
	defer tx.Rollback(ctx)

	tk, err := q.ConsumePasswordResetTicket(ctx, tx, token)
	if err != nil {
		if sqldb.IsNotFoundError(err) {
			return ErrInvalidTicket
		}

		return fmt.Errorf("passport/passwordreset: failed to redeem reset ticket: %w", err)
	}

	user, err := q.UpdateUserPasswordHash(ctx, tx, dbsqlc.UpdateUserPasswordHashParams{
		ID:           tk.UserID,
		PasswordHash: passwordHash,
	})
	if err != nil {
		return fmt.Errorf("passport/passwordreset: failed to set user password: %w", err)
	}

	// Once password is changed, we need to expire all sessions for this user.
	n, err := q.DeleteUserSessionsByUserID(ctx, tx, user.ID)
	if err != nil {
		return fmt.Errorf("passport/passwordreset: failed to expire sessions: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("passport/passwordreset: failed to commit transaction: %w", err)
	}

	d("password reset for user=%v, expired %d sessions", user.ID, n)

	if err := h.sender.Send(ctx, passportsender.Message{
		Key:     passportsender.KeyPasswordReset,
		Email:   user.Email,
		Payload: PasswordResetMessagePayload{Username: user.Username},
	}); err != nil {
		h.config.Logger.WarnContext(
			ctx,
			"Failed to send password reset notification",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	return nil
}
