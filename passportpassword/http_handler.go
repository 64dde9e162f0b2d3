package passportpassword

import (
	"cmp"
	"errors"
	"fmt"
	"net/http"

	"go.inout.gg/foundations/debug"

	"go.inout.gg/passport"
	"go.inout.gg/passport/internal/httperror"
	"go.inout.gg/passport/passportsession"
)

// ErrTypePasswordReset is the error type hint telling the client to offer
// a password reset.
const ErrTypePasswordReset = -1

const (
	DefaultFieldUsername = "username"
	DefaultFieldEmail    = "email"
	DefaultFieldPassword = "password"
)

const (
	MessageUsernameTaken      = "Username already taken"
	MessageEmailTaken         = "Email already taken"
	MessageInvalidCredentials = "Invalid username or password"
	MessageIncorrectPassword  = "Incorrect password"
	MessageInvalidInput       = "Invalid input"
)

type HTTPConfig struct {
	*Config

	FieldUsername string // optional (default: DefaultFieldUsername)
	FieldEmail    string // optional (default: DefaultFieldEmail)
	FieldPassword string // optional (default: DefaultFieldPassword)
}

func (c *HTTPConfig) defaults() {
	c.FieldUsername = cmp.Or(c.FieldUsername, DefaultFieldUsername)
	c.FieldEmail = cmp.Or(c.FieldEmail, DefaultFieldEmail)
	c.FieldPassword = cmp.Or(c.FieldPassword, DefaultFieldPassword)

	if c.Config == nil {
		c.Config = NewConfig()
	}
}

func (c *HTTPConfig) assert() {
	debug.Assert(c.Config != nil, "Config must be set")
}

// WithConfig sets the configuration of the underlying Handler.
func WithConfig(config *Config) func(*HTTPConfig) {
	return func(c *HTTPConfig) { c.Config = config }
}

// NewHTTPConfig creates a new HTTPConfig with the given configuration options.
func NewHTTPConfig(opts ...func(*HTTPConfig)) *HTTPConfig {
	var config HTTPConfig
	for _, opt := range opts {
		opt(&config)
	}

	config.defaults()

	return &config
}

// HTTPHandler is a wrapper around Handler handling HTTP requests and
// issuing sessions.
type HTTPHandler struct {
	handler       *Handler
	authenticator passportsession.Authenticator
	config        *HTTPConfig
	parser        HTTPRequestParser
}

func newHTTPHandler(
	db passport.DB,
	authenticator passportsession.Authenticator,
	config *HTTPConfig,
	parser func(*HTTPConfig) HTTPRequestParser,
) *HTTPHandler {
	if config == nil {
		config = NewHTTPConfig()
	}

	config.assert()

	h := HTTPHandler{
		NewHandler(db, config.Config),
		authenticator,
		config,
		parser(config),
	}

	debug.Assert(h.handler != nil, "handler must be set")
	debug.Assert(h.authenticator != nil, "authenticator must be set")
	debug.Assert(h.parser != nil, "parser must be set")

	return &h
}

// NewFormHandler creates a new HTTP handler that handles form requests.
func NewFormHandler(
	db passport.DB,
	authenticator passportsession.Authenticator,
	config *HTTPConfig,
) *HTTPHandler {
	return newHTTPHandler(db, authenticator, config, func(c *HTTPConfig) HTTPRequestParser {
		return &formParser{c}
	})
}

// NewJSONHandler creates a new HTTP handler that handles JSON requests.
func NewJSONHandler(
	db passport.DB,
	authenticator passportsession.Authenticator,
	config *HTTPConfig,
) *HTTPHandler {
	return newHTTPHandler(db, authenticator, config, func(c *HTTPConfig) HTTPRequestParser {
		return &jsonParser{c}
	})
}

// NewHTTPHandler creates a new HTTP handler that handles both JSON and form
// requests depending on the request Content-Type.
func NewHTTPHandler(
	db passport.DB,
	authenticator passportsession.Authenticator,
	config *HTTPConfig,
) *HTTPHandler {
	return newHTTPHandler(db, authenticator, config, func(c *HTTPConfig) HTTPRequestParser {
		return &contentTypeParser{&jsonParser{c}, &formParser{c}}
	})
}

func (h *HTTPHandler) parseUserRegistrationData(
	req *http.Request,
) (*UserRegistrationData, error) {
	form, err := h.parser.ParseUserRegistrationData(req)
	if err != nil {
		return nil, httperror.FromError(err, http.StatusBadRequest)
	}

	if err := passport.ValidateForm(req.Context(), form); err != nil {
		scrubbed := *form
		scrubbed.Password = ""
		_ = passport.DefaultFormScrubber.Struct(req.Context(), &scrubbed)
		d("invalid registration form: %+v", scrubbed)

		return nil, fromValidationError(err)
	}

	return form, nil
}

// HandleUserRegistration handles a user registration request.
//
// On success a new session is issued for the registered user.
func (h *HTTPHandler) HandleUserRegistration(
	w http.ResponseWriter,
	r *http.Request,
) (passport.User, error) {
	var user passport.User

	form, err := h.parseUserRegistrationData(r)
	if err != nil {
		return user, err
	}

	user, err = h.handler.HandleUserRegistration(
		r.Context(),
		form.Username,
		form.Email,
		form.Password,
	)
	if err != nil {
		switch {
		case errors.Is(err, passport.ErrAuthenticatedUser):
			return user, httperror.FromError(err, http.StatusForbidden)
		case errors.Is(err, ErrUsernameAlreadyTaken):
			return user, httperror.FromError(err, http.StatusConflict, MessageUsernameTaken)
		case errors.Is(err, ErrEmailAlreadyTaken):
			return user, httperror.FromError(err, http.StatusConflict, MessageEmailTaken)
		}

		if herr := fromValidationError(err); herr.StatusCode == http.StatusBadRequest {
			return user, herr
		}

		return user, httperror.FromError(err, http.StatusInternalServerError)
	}

	if _, err := h.authenticator.Issue(w, r, user); err != nil {
		return user, httperror.FromError(
			fmt.Errorf("passport/password: failed to issue session: %w", err),
			http.StatusInternalServerError,
		)
	}

	return user, nil
}

func (h *HTTPHandler) parseUserLoginData(req *http.Request) (*UserLoginData, error) {
	form, err := h.parser.ParseUserLoginData(req)
	if err != nil {
		return nil, httperror.FromError(err, http.StatusBadRequest)
	}

	if err := passport.ValidateForm(req.Context(), form); err != nil {
		return nil, fromValidationError(err)
	}

	return form, nil
}

// HandleUserLogin handles a user login request.
//
// On success a new session is issued for the user. A wrong password is
// reported with the ErrTypePasswordReset hint.
func (h *HTTPHandler) HandleUserLogin(
	w http.ResponseWriter,
	r *http.Request,
) (passport.User, error) {
	var user passport.User

	form, err := h.parseUserLoginData(r)
	if err != nil {
		return user, err
	}

	user, err = h.handler.HandleUserLogin(r.Context(), form.Username, form.Password)
	if err != nil {
		switch {
		case errors.Is(err, passport.ErrAuthenticatedUser):
			return user, httperror.FromError(err, http.StatusForbidden)
		case errors.Is(err, ErrInvalidCredentials):
			return user, httperror.FromError(err, http.StatusUnauthorized, MessageInvalidCredentials)
		case errors.Is(err, ErrPasswordResetRequired):
			return user, httperror.FromError(err, http.StatusUnauthorized, MessageIncorrectPassword).
				WithType(ErrTypePasswordReset)
		}

		return user, httperror.FromError(err, http.StatusInternalServerError)
	}

	if _, err := h.authenticator.Issue(w, r, user); err != nil {
		return user, httperror.FromError(
			fmt.Errorf("passport/password: failed to issue session: %w", err),
			http.StatusInternalServerError,
		)
	}

	return user, nil
}

// fromValidationError maps *passport.ValidationError to a 400 response,
// anything else to a 500 one.
func fromValidationError(err error) *httperror.HTTPError {
	var verr *passport.ValidationError
	if errors.As(err, &verr) {
		return httperror.FromError(err, http.StatusBadRequest, MessageInvalidInput).
			WithFields(verr.Fields)
	}

	return httperror.FromError(err, http.StatusInternalServerError)
}
