// Package passportpasswordverifier checks that a password is strong enough
// before it gets hashed and stored.
package passportpasswordverifier

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	_ PasswordVerifier = (*passwordVerifier)(nil)
	_ error            = (*PasswordVerificationError)(nil)
)

const (
	DefaultMinLength = 8
	DefaultMaxLength = 128
)

type Reason string

const (
	ReasonPasswordTooShort     Reason = "Password is too short"
	ReasonPasswordTooLong      Reason = "Password is too long"
	ReasonMissingRequiredChars Reason = "Password is missing required characters"
)

type PasswordVerificationError struct {
	message string
	Reasons []Reason
}

func (e *PasswordVerificationError) Error() string {
	return e.message
}

type Config struct {
	// MinLength is the minimum length of the password in characters.
	MinLength int

	// MaxLength is the maximum length of the password in characters.
	MaxLength int

	// RequiredChars is the list of required character sets.
	RequiredChars PasswordRequiredChars
}

// NewConfig creates a new Config with defaults.
//
// cfgs modifiers can be used to optionally override the defaults.
func NewConfig(cfgs ...func(*Config)) *Config {
	config := &Config{}
	for _, f := range cfgs {
		f(config)
	}

	config.defaults()

	return config
}

// WithRequiredChars requires a password to hold a char of each "::" separated set.
func WithRequiredChars(source string) func(*Config) {
	return func(c *Config) { _ = c.RequiredChars.Parse(source) }
}

func (c *Config) defaults() {
	if c.MinLength == 0 {
		c.MinLength = DefaultMinLength
	}

	if c.MaxLength == 0 {
		c.MaxLength = DefaultMaxLength
	}
}

// PasswordVerifier verifies strongness of the password.
type PasswordVerifier interface {
	Verify(password string) error
}

type passwordVerifier struct {
	config *Config
}

// New creates a new PasswordVerifier.
//
// If config is nil, the default config is used.
func New(config *Config) PasswordVerifier {
	if config == nil {
		config = NewConfig()
	}

	return &passwordVerifier{config}
}

// Verify verifies the strongness of password.
//
// It returns *PasswordVerificationError listing every failed check.
func (v *passwordVerifier) Verify(password string) error {
	var (
		reasons  []Reason
		messages []string
	)

	n := utf8.RuneCountInString(password)
	if n < v.config.MinLength {
		reasons = append(reasons, ReasonPasswordTooShort)
		messages = append(messages, "Must be at least "+strconv.Itoa(v.config.MinLength)+" characters")
	}

	if n > v.config.MaxLength {
		reasons = append(reasons, ReasonPasswordTooLong)
		messages = append(messages, "Must be at most "+strconv.Itoa(v.config.MaxLength)+" characters")
	}

	for _, chars := range v.config.RequiredChars {
		if !strings.ContainsAny(password, chars) {
			reasons = append(reasons, ReasonMissingRequiredChars)
			messages = append(messages, "Must contain one of "+strconv.Quote(chars))
		}
	}

	if len(reasons) > 0 {
		return &PasswordVerificationError{
			message: strings.Join(messages, ", "),
			Reasons: reasons,
		}
	}

	return nil
}
