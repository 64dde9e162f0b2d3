// Package server wires the passport handlers into an HTTP server.
package server

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.inout.gg/foundations/debug"

	"go.inout.gg/passport"
	"go.inout.gg/passport/internal/httperror"
	"go.inout.gg/passport/internal/metrics"
	"go.inout.gg/passport/passportcsrf"
	"go.inout.gg/passport/passportpassword"
	"go.inout.gg/passport/passportpasswordreset"
	"go.inout.gg/passport/passportsender"
	"go.inout.gg/passport/passportsession"
	"go.inout.gg/passport/passportsession/serversession"
)

const (
	// RedirectAfterAuth is where users go after sign-up, login and reset.
	RedirectAfterAuth = "/"

	// RedirectAfterLogout is where users go after logout.
	RedirectAfterLogout = "/login"
)

// Config is the server configuration.
type Config struct {
	Logger *slog.Logger // optional

	// CSRFSecret signs the CSRF cookies.
	CSRFSecret string

	CookieSecure      bool
	SessionExpiresIn  time.Duration // optional (default: serversession.DefaultExpiresIn)
	ResetTicketExpiry time.Duration // optional (default: passportpasswordreset.DefaultTicketExpiry)

	PasswordHasher passportpassword.PasswordHasher // optional
	Sender         passportsender.Sender           // optional (default: log sender)
	Registry       *prometheus.Registry            // optional
}

func (c *Config) defaults() {
	c.Logger = cmp.Or(c.Logger, passport.DefaultLogger)
	c.SessionExpiresIn = cmp.Or(c.SessionExpiresIn, serversession.DefaultExpiresIn)
	c.ResetTicketExpiry = cmp.Or(c.ResetTicketExpiry, passportpasswordreset.DefaultTicketExpiry)
	c.PasswordHasher = cmp.Or(c.PasswordHasher, passportpassword.DefaultPasswordHasher)

	if c.Sender == nil {
		c.Sender = passportsender.NewLogSender(c.Logger)
	}

	if c.Registry == nil {
		c.Registry = metrics.NewRegistry()
	}
}

func (c *Config) assert() {
	debug.Assert(c.Logger != nil, "Logger must be set")
	debug.Assert(c.PasswordHasher != nil, "PasswordHasher must be set")
	debug.Assert(c.Sender != nil, "Sender must be set")
	debug.Assert(c.Registry != nil, "Registry must be set")
}

// NewConfig creates a new server config.
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

// Server serves the passport HTTP API.
type Server struct {
	db            passport.DB
	config        *Config
	metrics       *metrics.Metrics
	errorHandler  httperror.ErrorHandler
	authenticator passportsession.Authenticator
	password      *passportpassword.HTTPHandler
	reset         *passportpasswordreset.HTTPHandler
	logout        *serversession.LogoutHandler
	csrf          func(http.Handler) http.Handler
}

// New creates a new Server.
//
// If config is nil, the default config is used.
func New(db passport.DB, config *Config) (*Server, error) {
	if config == nil {
		config = NewConfig()
	}

	config.assert()

	sessionConfig := serversession.NewConfig(
		serversession.WithLogger(config.Logger),
		serversession.WithCookieSecure(config.CookieSecure),
		serversession.WithExpiresIn(config.SessionExpiresIn),
	)
	authenticator := serversession.New(db, sessionConfig)
	errorHandler := httperror.NewErrorHandler(config.Logger)

	csrf, err := passportcsrf.Middleware(
		config.CSRFSecret,
		passportcsrf.WithErrorHandler(errorHandler),
		passportcsrf.WithCookieSecure(config.CookieSecure),
	)
	if err != nil {
		return nil, fmt.Errorf("server: failed to create CSRF middleware: %w", err)
	}

	passwordConfig := passportpassword.NewHTTPConfig(
		passportpassword.WithConfig(passportpassword.NewConfig(
			passportpassword.WithLogger(config.Logger),
			passportpassword.WithPasswordHasher(config.PasswordHasher),
		)),
	)

	resetConfig := passportpasswordreset.NewHTTPConfig(
		passportpasswordreset.WithConfig(passportpasswordreset.NewConfig(
			passportpasswordreset.WithLogger(config.Logger),
			passportpasswordreset.WithPasswordHasher(config.PasswordHasher),
			passportpasswordreset.WithTicketExpiry(config.ResetTicketExpiry),
		)),
	)

	s := Server{
		db:            db,
		config:        config,
		metrics:       metrics.New(config.Registry),
		errorHandler:  errorHandler,
		authenticator: authenticator,
		password:      passportpassword.NewHTTPHandler(db, authenticator, passwordConfig),
		reset:         passportpasswordreset.NewHTTPHandler(db, config.Sender, resetConfig),
		logout:        serversession.NewLogoutHandler(db, sessionConfig),
		csrf:          csrf,
	}

	return &s, nil
}

// Handler returns the HTTP handler serving every passport route.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(s.instrument)

	router.Get("/healthz", s.handleHealthz)
	router.Handle("/metrics", promhttp.HandlerFor(s.config.Registry, promhttp.HandlerOpts{}))

	router.Group(func(r chi.Router) {
		r.Use(passportsession.Middleware(
			s.authenticator,
			s.errorHandler,
			passportsession.NewConfig(
				passportsession.WithPassthrough(),
				passportsession.WithLogger(s.config.Logger),
			),
		))
		r.Use(s.csrf)

		r.Get("/csrf", s.handleCSRF)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(passportsession.RedirectAuthenticatedUserMiddleware(RedirectAfterAuth))

			r.Post("/signup", s.handleSignup)
			r.Post("/login", s.handleLogin)
			r.Post("/reset/lookup", s.handleResetLookup)
			r.Post("/reset", s.handleReset)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Get("/me", s.handleMe)
		})
	})

	return router
}

// Run serves the passport API on addr until ctx is done, then shuts the
// server down gracefully.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	//nolint:exhaustruct
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		s.config.Logger.InfoContext(ctx, "Starting HTTP server", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: failed to serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	s.config.Logger.InfoContext(ctx, "Shutting down HTTP server")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: failed to shut down: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: failed to serve: %w", err)
	}

	return nil
}
