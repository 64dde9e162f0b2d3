package passportpasswordreset

import (
	"cmp"
	"errors"
	"net/http"

	"go.inout.gg/foundations/debug"

	"go.inout.gg/passport"
	"go.inout.gg/passport/internal/httperror"
	"go.inout.gg/passport/passportsender"
)

const (
	DefaultFieldUsername = "username"
	DefaultFieldTicket   = "ticket"
	DefaultFieldPassword = "password"
)

const (
	MessageUserNotFound  = "username not exist"
	MessageInvalidTicket = "Reset link is invalid or has expired"
	MessageInvalidInput  = "Invalid input"
)

// HTTPConfig is the configuration for HTTP based password reset.
type HTTPConfig struct {
	*Config

	FieldUsername string // optional (default: DefaultFieldUsername)
	FieldTicket   string // optional (default: DefaultFieldTicket)
	FieldPassword string // optional (default: DefaultFieldPassword)
}

func (c *HTTPConfig) defaults() {
	c.FieldUsername = cmp.Or(c.FieldUsername, DefaultFieldUsername)
	c.FieldTicket = cmp.Or(c.FieldTicket, DefaultFieldTicket)
	c.FieldPassword = cmp.Or(c.FieldPassword, DefaultFieldPassword)

	if c.Config == nil {
		c.Config = NewConfig()
	}
}

func (c *HTTPConfig) assert() {
	debug.Assert(c.Config != nil, "Config must be set")
}

// NewHTTPConfig creates a new HTTPConfig with the given configuration options.
func NewHTTPConfig(opts ...func(*HTTPConfig)) *HTTPConfig {
	//nolint:exhaustruct
	config := HTTPConfig{}
	for _, opt := range opts {
		opt(&config)
	}

	config.defaults()
	config.assert()

	return &config
}

// WithConfig sets the configuration for the underlying Handler.
func WithConfig(config *Config) func(*HTTPConfig) {
	return func(cfg *HTTPConfig) { cfg.Config = config }
}

// HTTPHandler is a wrapper around Handler handling HTTP requests.
type HTTPHandler struct {
	handler *Handler
	config  *HTTPConfig
	parser  HTTPRequestParser
}

func newHTTPHandler(
	db passport.DB,
	sender passportsender.Sender,
	config *HTTPConfig,
	parser func(*HTTPConfig) HTTPRequestParser,
) *HTTPHandler {
	if config == nil {
		config = NewHTTPConfig()
	}

	config.assert()

	h := HTTPHandler{NewHandler(db, sender, config.Config), config, parser(config)}

	debug.Assert(h.handler != nil, "handler must be set")
	debug.Assert(h.parser != nil, "parser must be set")

	return &h
}

// NewFormHandler creates a new HTTP handler that handles form requests.
func NewFormHandler(db passport.DB, sender passportsender.Sender, config *HTTPConfig) *HTTPHandler {
	return newHTTPHandler(db, sender, config, func(c *HTTPConfig) HTTPRequestParser {
		return &formParser{c}
	})
}

// NewJSONHandler creates a new HTTP handler that handles JSON requests.
func NewJSONHandler(db passport.DB, sender passportsender.Sender, config *HTTPConfig) *HTTPHandler {
	return newHTTPHandler(db, sender, config, func(c *HTTPConfig) HTTPRequestParser {
		return &jsonParser{c}
	})
}

// NewHTTPHandler creates a new HTTP handler that handles both JSON and form
// requests depending on the request Content-Type.
func NewHTTPHandler(db passport.DB, sender passportsender.Sender, config *HTTPConfig) *HTTPHandler {
	return newHTTPHandler(db, sender, config, func(c *HTTPConfig) HTTPRequestParser {
		return &contentTypeParser{&jsonParser{c}, &formParser{c}}
	})
}

// HandleUserLookup handles a user lookup request.
//
// On failure the returned UserInfo and Ticket are empty.
func (h *HTTPHandler) HandleUserLookup(r *http.Request) (UserInfo, Ticket, error) {
	var (
		info   UserInfo
		ticket Ticket
	)

	form, err := h.parser.ParseUserLookupData(r)
	if err != nil {
		return info, ticket, httperror.FromError(err, http.StatusBadRequest)
	}

	if err := passport.ValidateForm(r.Context(), form); err != nil {
		return info, ticket, fromValidationError(err)
	}

	info, ticket, err = h.handler.HandleUserLookup(r.Context(), form.Username)
	if err != nil {
		switch {
		case errors.Is(err, passport.ErrAuthenticatedUser):
			return UserInfo{}, Ticket{}, httperror.FromError(err, http.StatusForbidden)
		case errors.Is(err, passport.ErrUserNotFound):
			return UserInfo{}, Ticket{}, httperror.FromError(err, http.StatusNotFound, MessageUserNotFound)
		}

		return UserInfo{}, Ticket{}, httperror.FromError(err, http.StatusInternalServerError)
	}

	return info, ticket, nil
}

// HandlePasswordReset handles a password reset request.
func (h *HTTPHandler) HandlePasswordReset(r *http.Request) error {
	form, err := h.parser.ParsePasswordResetData(r)
	if err != nil {
		return httperror.FromError(err, http.StatusBadRequest)
	}

	if err := passport.ValidateForm(r.Context(), form); err != nil {
		return fromValidationError(err)
	}

	if err := h.handler.HandlePasswordReset(r.Context(), form.Ticket, form.Password); err != nil {
		switch {
		// Don't allow to change password for logged in users.
		case errors.Is(err, passport.ErrAuthenticatedUser):
			return httperror.FromError(err, http.StatusForbidden)
		case errors.Is(err, ErrInvalidTicket):
			return httperror.FromError(err, http.StatusBadRequest, MessageInvalidTicket)
		}

		return fromValidationError(err)
	}

	return nil
}

func fromValidationError(err error) *httperror.HTTPError {
	var verr *passport.ValidationError
	if errors.As(err, &verr) {
		return httperror.FromError(err, http.StatusBadRequest, MessageInvalidInput).
			WithFields(verr.Fields)
	}

	return httperror.FromError(err, http.StatusInternalServerError)
}
