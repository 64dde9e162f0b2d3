package passportcsrf

import (
	"cmp"
	"context"
	"errors"
	"net/http"
	"slices"

	"go.inout.gg/foundations/debug"

	"go.inout.gg/passport"
	"go.inout.gg/passport/internal/httperror"
)

type ctxKey struct{}

//nolint:gochecknoglobals
var kCtxKey = ctxKey{}

//nolint:gochecknoglobals
var d = debug.Debuglog("passport/csrf")

var ErrNoChecksumSecret = errors.New("passport/csrf: checksum secret is not provided")

const (
	DefaultFieldName  = "csrf_token"
	DefaultHeaderName = "X-Csrf-Token"
	DefaultCookieName = "csrf_token"
)

const DefaultTokenLength = 32

// MessageInvalidToken is sent to the client when the request fails the check.
const MessageInvalidToken = "invalid CSRF token"

// Config is the configuration for the CSRF middleware.
type Config struct {
	ErrorHandler   httperror.ErrorHandler // optional
	HeaderName     string                 // optional (default: DefaultHeaderName)
	FieldName      string                 // optional (default: DefaultFieldName)
	CookieName     string                 // optional (default: DefaultCookieName)
	IgnoredMethods []string               // optional (default: GET, HEAD, OPTIONS, TRACE)
	TokenLength    int                    // optional (default: DefaultTokenLength)
	CookieSameSite http.SameSite          // optional (default: http.SameSiteLaxMode)
	CookieSecure   bool
}

// WithErrorHandler sets the handler used to reject requests.
func WithErrorHandler(h httperror.ErrorHandler) func(*Config) {
	return func(c *Config) { c.ErrorHandler = h }
}

// WithCookieSecure marks the CSRF cookie as Secure.
//
// Secure cookies get the "__Secure-" name prefix.
func WithCookieSecure(secure bool) func(*Config) {
	return func(c *Config) { c.CookieSecure = secure }
}

func (c *Config) defaults() {
	if c.IgnoredMethods == nil {
		c.IgnoredMethods = []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodOptions,
			http.MethodTrace,
		}
	}

	c.HeaderName = cmp.Or(c.HeaderName, DefaultHeaderName)
	c.FieldName = cmp.Or(c.FieldName, DefaultFieldName)
	c.CookieName = cmp.Or(c.CookieName, DefaultCookieName)
	c.TokenLength = cmp.Or(c.TokenLength, DefaultTokenLength)
	c.CookieSameSite = cmp.Or(c.CookieSameSite, http.SameSiteLaxMode)

	if c.ErrorHandler == nil {
		c.ErrorHandler = httperror.NewErrorHandler(passport.DefaultLogger)
	}
}

// Middleware returns a middleware that rejects state-changing requests
// without a matching CSRF token and adds the token to the request context.
//
// Requests using one of the ignored methods are never rejected. They reuse
// the token from a valid cookie, or get a fresh one that the handler is
// expected to hand out with SetToken.
func Middleware(secret string, opts ...func(*Config)) (func(http.Handler) http.Handler, error) {
	if secret == "" {
		return nil, ErrNoChecksumSecret
	}

	//nolint:exhaustruct
	cfg := Config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	cfg.defaults()

	tokConfig := &tokenConfig{
		ChecksumSecret: secret,
		TokenLength:    cfg.TokenLength,
		HeaderName:     cfg.HeaderName,
		FieldName:      cfg.FieldName,
		CookieName:     cfg.CookieName,
		CookieSameSite: cfg.CookieSameSite,
		CookieSecure:   cfg.CookieSecure,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(cfg.IgnoredMethods, r.Method) {
				tok, err := fromRequest(r, tokConfig)
				if err != nil {
					tok, err = newToken(tokConfig)
					if err != nil {
						cfg.ErrorHandler.ServeHTTP(w, r, err)
						return
					}
				}

				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), kCtxKey, tok)))

				return
			}

			tok, err := validateRequest(r, tokConfig)
			if err != nil {
				d("rejecting request: %v", err)
				cfg.ErrorHandler.ServeHTTP(
					w,
					r,
					httperror.FromError(err, http.StatusForbidden, MessageInvalidToken),
				)

				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), kCtxKey, tok)))
		})
	}, nil
}

// FromRequest returns the CSRF token associated with the given HTTP request.
func FromRequest(r *http.Request) (*Token, error) {
	return FromContext(r.Context())
}

// FromContext returns the CSRF token associated with the given context.
func FromContext(ctx context.Context) (*Token, error) {
	tok, ok := ctx.Value(kCtxKey).(*Token)
	if !ok {
		return nil, errors.New("passport/csrf: unable to retrieve request context")
	}

	return tok, nil
}

// SetToken sets the CSRF token in the given HTTP response via cookie.
func SetToken(w http.ResponseWriter, tok *Token) {
	http.SetCookie(w, tok.cookie())
}
