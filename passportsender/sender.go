// Package passportsender defines how user notifications leave the system.
package passportsender

import (
	"cmp"
	"context"
	"log/slog"

	"go.inout.gg/passport"
)

// Message keys.
const (
	KeyPasswordReset = "password_reset"
)

// Message is a message to be sent.
type Message struct {
	// Key identifies the kind of notification, e.g. KeyPasswordReset.
	Key     string
	Email   string
	Payload any
}

// Sender is an interface for sending email messages.
type Sender interface {
	// Send sends the given message.
	Send(ctx context.Context, message Message) error
}

var _ Sender = (*LogSender)(nil)

// LogSender is a Sender writing messages to a logger instead of delivering
// them.
//
// Useful in development and as a default until a real transport is wired.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a new LogSender.
//
// If logger is nil, passport.DefaultLogger is used.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{cmp.Or(logger, passport.DefaultLogger)}
}

func (s *LogSender) Send(ctx context.Context, message Message) error {
	s.logger.InfoContext(
		ctx,
		"Sending message",
		slog.String("key", message.Key),
		slog.String("email", message.Email),
		slog.Any("payload", message.Payload),
	)

	return nil
}
