// Package passportsession defines user sessions and the HTTP middleware
// attaching them to the request context.
package passportsession

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"net/http"

	"go.inout.gg/foundations/debug"

	"go.inout.gg/passport"
	"go.inout.gg/passport/internal/httperror"
)

//nolint:gochecknoglobals
var d = debug.Debuglog("passport/session")

type ctxKey struct{}

//nolint:gochecknoglobals
var kCtxKey = ctxKey{}

// Config is the configuration for the middleware.
type Config struct {
	Logger *slog.Logger

	// Passthrough controls whether the request should be failed
	// on unauthorized access.
	Passthrough bool
}

// WithPassthrough returns a function that sets the Passthrough field of the Config.
func WithPassthrough() func(*Config) {
	return func(c *Config) { c.Passthrough = true }
}

// WithLogger sets the logger used to report authentication failures.
func WithLogger(logger *slog.Logger) func(*Config) {
	return func(c *Config) { c.Logger = logger }
}

// NewConfig returns a new configuration for Middleware.
func NewConfig(opts ...func(*Config)) *Config {
	var config Config
	for _, opt := range opts {
		opt(&config)
	}

	config.Logger = cmp.Or(config.Logger, passport.DefaultLogger)

	debug.Assert(config.Logger != nil, "logger must be set")

	return &config
}

// Middleware returns a middleware that authenticates the user and
// adds the session to the request context.
//
// If the user is not authenticated, the error handler is called.
//
// If config is nil, the default config is used.
//
// If config.Passthrough is set, the middleware will not fail the request
// on unauthorized access and instead will continue processing the request.
func Middleware(
	authenticator Authenticator,
	errorHandler httperror.ErrorHandler,
	config *Config,
) func(http.Handler) http.Handler {
	debug.Assert(authenticator != nil, "authenticator must be set")
	debug.Assert(errorHandler != nil, "errorHandler must be set")

	if config == nil {
		config = NewConfig()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				nextReq := r

				sess, err := authenticator.Authenticate(w, r)
				if err != nil {
					if !errors.Is(err, passport.ErrUnauthenticatedUser) {
						config.Logger.ErrorContext(
							r.Context(),
							"Failed to authenticate session",
							slog.Any("error", err),
						)
					}

					// If Passthrough is set ignore the error and continue.
					if !config.Passthrough {
						errorHandler.ServeHTTP(
							w,
							r,
							httperror.FromError(
								err,
								http.StatusUnauthorized,
								"unauthorized access",
							),
						)

						return
					}
				} else {
					nextReq = r.WithContext(WithSession(r.Context(), sess))
				}

				next.ServeHTTP(w, nextReq)
			},
		)
	}
}

// RedirectAuthenticatedUserMiddleware redirects the user to the
// provided URL if the user is authenticated.
//
// Make sure to use the Middleware before adding this one.
func RedirectAuthenticatedUserMiddleware(
	redirectURL string,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				if IsAuthenticated(r.Context()) {
					d("redirecting authenticated user")

					http.Redirect(
						w,
						r,
						redirectURL,
						http.StatusSeeOther,
					)

					return
				}

				next.ServeHTTP(w, r)
			},
		)
	}
}

// WithSession returns a copy of ctx holding sess.
func WithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, kCtxKey, &sess)
}

// FromRequest returns the session from the request context if it exists.
//
// Make sure to use the Middleware before calling this function.
func FromRequest(r *http.Request) (*Session, error) {
	return FromContext(r.Context())
}

// FromContext returns the session from the context if it exists.
//
// Make sure to use the Middleware before calling this function.
func FromContext(ctx context.Context) (*Session, error) {
	if sess, ok := ctx.Value(kCtxKey).(*Session); ok {
		return sess, nil
	}

	return nil, passport.ErrUnauthenticatedUser
}

// IsAuthenticated returns true if the user is authenticated.
func IsAuthenticated(ctx context.Context) bool {
	return ctx.Value(kCtxKey) != nil
}
