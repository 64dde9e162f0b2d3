// Package httperror carries an HTTP status and a user-facing message along
// with an error and writes it as a JSON response.
package httperror

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// MessageUnexpected is returned to the client in place of the details of an
// unexpected failure.
const MessageUnexpected = "Something went wrong. Please try again."

var _ error = (*HTTPError)(nil)

// HTTPError is an error with an HTTP status code and a message that is safe
// to show to the client.
type HTTPError struct {
	err error

	StatusCode int
	Message    string

	// Fields holds per-field validation messages.
	Fields map[string]string

	// Type is an optional hint for the client, e.g. -1 to offer
	// a password reset.
	Type int
}

// FromError wraps err with an HTTP status code.
//
// If msg is omitted, the status text is used as the message; for 5xx
// statuses MessageUnexpected is used instead.
func FromError(err error, statusCode int, msg ...string) *HTTPError {
	var message string
	switch {
	case len(msg) > 0:
		message = msg[0]
	case statusCode >= http.StatusInternalServerError:
		message = MessageUnexpected
	default:
		message = http.StatusText(statusCode)
	}

	return &HTTPError{
		err:        err,
		StatusCode: statusCode,
		Message:    message,
	}
}

func (e *HTTPError) Error() string {
	if e.err == nil {
		return e.Message
	}

	return e.err.Error()
}

func (e *HTTPError) Unwrap() error { return e.err }

// WithFields attaches per-field validation messages.
func (e *HTTPError) WithFields(fields map[string]string) *HTTPError {
	e.Fields = fields
	return e
}

// WithType attaches a client hint.
func (e *HTTPError) WithType(t int) *HTTPError {
	e.Type = t
	return e
}

// ErrorHandler writes an error response.
type ErrorHandler interface {
	ServeHTTP(http.ResponseWriter, *http.Request, error)
}

// ErrorHandlerFunc is an adapter to allow the use of ordinary functions as
// ErrorHandler.
type ErrorHandlerFunc func(http.ResponseWriter, *http.Request, error)

func (f ErrorHandlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request, err error) {
	f(w, r, err)
}

// Response is the JSON body written by the error handler.
type Response struct {
	Error   string            `json:"error"`
	ErrType int               `json:"errType,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// NewErrorHandler returns an ErrorHandler writing JSON responses.
//
// Errors that are not *HTTPError are treated as internal server errors.
// Server errors are logged with logger and their details are never sent
// to the client.
func NewErrorHandler(logger *slog.Logger) ErrorHandler {
	return ErrorHandlerFunc(func(w http.ResponseWriter, r *http.Request, err error) {
		var httpErr *HTTPError
		if !errors.As(err, &httpErr) {
			httpErr = FromError(err, http.StatusInternalServerError)
		}

		if httpErr.StatusCode >= http.StatusInternalServerError {
			logger.ErrorContext(
				r.Context(),
				"Unexpected error while handling request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Any("error", err),
			)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(httpErr.StatusCode)

		_ = json.NewEncoder(w).Encode(Response{
			Error:   httpErr.Message,
			ErrType: httpErr.Type,
			Fields:  httpErr.Fields,
		})
	})
}
