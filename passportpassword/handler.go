package passportpassword

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.inout.gg/foundations/debug"

	"go.inout.gg/passport"
	"go.inout.gg/passport/internal/dbsqlc"
	"go.inout.gg/passport/internal/random"
	"go.inout.gg/passport/internal/sqldb"
	"go.inout.gg/passport/passportpasswordverifier"
	"go.inout.gg/passport/passportsession"
)

var (
	ErrUsernameAlreadyTaken = errors.New("passport/password: username already taken")
	ErrEmailAlreadyTaken    = errors.New("passport/password: email already taken")

	// ErrInvalidCredentials is returned on login when no user matches the
	// username.
	ErrInvalidCredentials = errors.New("passport/password: invalid credentials")

	// ErrPasswordResetRequired is returned on login when the user exists but
	// the password cannot be verified against the stored hash. Callers are
	// expected to offer a password reset.
	ErrPasswordResetRequired = errors.New("passport/password: password reset required")
)

// UserIDEntropySize is the number of random bytes in a user ID.
const UserIDEntropySize = 10

const (
	constraintUsernameUnique = "users_username_key_unique"
	constraintEmailUnique    = "users_email_key_unique"
)

// Config is the configuration for the password handler.
type Config struct {
	Logger           *slog.Logger
	PasswordHasher   PasswordHasher
	PasswordVerifier passportpasswordverifier.PasswordVerifier
}

func (c *Config) defaults() {
	c.Logger = cmp.Or(c.Logger, passport.DefaultLogger)
	c.PasswordHasher = cmp.Or(c.PasswordHasher, DefaultPasswordHasher)
	c.PasswordVerifier = cmp.Or(c.PasswordVerifier, passportpasswordverifier.New(nil))
}

func (c *Config) assert() {
	debug.Assert(c.PasswordHasher != nil, "PasswordHasher must be set")
	debug.Assert(c.PasswordVerifier != nil, "PasswordVerifier must be set")
	debug.Assert(c.Logger != nil, "Logger must be set")
}

// NewConfig creates a new config.
//
// If no password hasher is configured, the DefaultPasswordHasher will be used.
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
func WithPasswordHasher(hasher PasswordHasher) func(*Config) {
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

// Handler handles user registration and login.
//
// It does not deal with sessions, check out the HTTPHandler for that.
type Handler struct {
	db     passport.DB
	config *Config
}

// NewHandler creates a new Handler.
//
// If config is nil, the default config is used.
func NewHandler(db passport.DB, config *Config) *Handler {
	if config == nil {
		config = NewConfig()
	}

	config.assert()

	h := Handler{
		db:     db,
		config: config,
	}

	debug.Assert(h.db != nil, "db must be set")

	return &h
}

// HandleUserRegistration registers a new user.
//
// Username and email uniqueness is case-insensitive and enforced by the
// database in a single insert. ErrUsernameAlreadyTaken or
// ErrEmailAlreadyTaken is returned when either is in use.
//
// A weak password is reported as *passport.ValidationError.
func (h *Handler) HandleUserRegistration(
	ctx context.Context,
	username, email, password string,
) (passport.User, error) {
	var user passport.User

	// Forbid authorized user access.
	if passportsession.IsAuthenticated(ctx) {
		return user, passport.ErrAuthenticatedUser
	}

	if err := h.verifyPassword(password); err != nil {
		return user, err
	}

	usernameKey, err := UsernameKey(username)
	if err != nil {
		//nolint:exhaustruct
		return user, &passport.ValidationError{
			Fields: map[string]string{"username": "Invalid username"},
		}
	}

	// Make sure that the password hashing is performed before touching
	// the database as it is an expensive operation.
	passwordHash, err := h.config.PasswordHasher.Hash(password)
	if err != nil {
		return user, fmt.Errorf(
			"passport/password: failed to hash password: %w",
			err,
		)
	}

	uid, err := random.IDFromEntropySize(UserIDEntropySize)
	if err != nil {
		return user, fmt.Errorf(
			"passport/password: failed to generate user ID: %w",
			err,
		)
	}

	row, err := dbsqlc.New().CreateUser(ctx, h.db, dbsqlc.CreateUserParams{
		ID:           uid,
		Username:     username,
		UsernameKey:  usernameKey,
		DisplayName:  username,
		Email:        email,
		EmailKey:     EmailKey(email),
		PasswordHash: passwordHash,
	})
	if err != nil {
		if constraint, ok := sqldb.UniqueViolationConstraint(err); ok {
			switch constraint {
			case constraintUsernameUnique:
				d("username already exists")
				return user, ErrUsernameAlreadyTaken
			case constraintEmailUnique:
				d("email already exists")
				return user, ErrEmailAlreadyTaken
			}
		}

		return user, fmt.Errorf(
			"passport/password: failed to register a user: %w",
			err,
		)
	}

	user.ID = row.ID
	user.Username = row.Username
	user.Email = row.Email

	return user, nil
}

// HandleUserLogin verifies the username and password pair.
//
// ErrInvalidCredentials is returned if there is no such user,
// ErrPasswordResetRequired if the password does not match.
func (h *Handler) HandleUserLogin(
	ctx context.Context,
	username, password string,
) (passport.User, error) {
	var user passport.User

	// Forbid authorized user access.
	if passportsession.IsAuthenticated(ctx) {
		return user, passport.ErrAuthenticatedUser
	}

	usernameKey, err := UsernameKey(username)
	if err != nil {
		d("invalid username: %v", err)
		return user, ErrInvalidCredentials
	}

	dbUser, err := dbsqlc.New().FindUserByUsernameKey(ctx, h.db, usernameKey)
	if err != nil {
		if sqldb.IsNotFoundError(err) {
			return user, ErrInvalidCredentials
		}

		return user, fmt.Errorf(
			"passport/password: failed to find user: %w",
			err,
		)
	}

	ok, err := h.config.PasswordHasher.Verify(dbUser.PasswordHash, password)
	if err != nil {
		// An unusable stored hash can only be fixed by setting a new password.
		if errors.Is(err, ErrInvalidHash) {
			h.config.Logger.WarnContext(
				ctx,
				"Stored password hash is invalid",
				slog.String("user_id", dbUser.ID),
				slog.Any("error", err),
			)

			return user, ErrPasswordResetRequired
		}

		return user, fmt.Errorf(
			"passport/password: failed to verify password: %w",
			err,
		)
	}

	if !ok {
		d("password mismatch")
		return user, ErrPasswordResetRequired
	}

	user.ID = dbUser.ID
	user.Username = dbUser.Username
	user.Email = dbUser.Email

	return user, nil
}

func (h *Handler) verifyPassword(password string) error {
	return VerifyPasswordStrength(h.config.PasswordVerifier, password)
}

// VerifyPasswordStrength checks password with verifier and reports a weak
// password as *passport.ValidationError on the "password" field.
func VerifyPasswordStrength(
	verifier passportpasswordverifier.PasswordVerifier,
	password string,
) error {
	err := verifier.Verify(password)
	if err == nil {
		return nil
	}

	var verr *passportpasswordverifier.PasswordVerificationError
	if errors.As(err, &verr) {
		//nolint:exhaustruct
		return &passport.ValidationError{
			Fields: map[string]string{"password": verr.Error()},
		}
	}

	return fmt.Errorf("passport/password: failed to verify password strength: %w", err)
}
