package passportpassword

import (
	"errors"
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/secure/precis"
)

// ErrEmptyUsername is returned when a username has no characters left after
// normalization.
var ErrEmptyUsername = errors.New("passport/password: empty username")

// UsernameKey returns the case-mapped form of username used to enforce
// case-insensitive uniqueness.
func UsernameKey(username string) (string, error) {
	key, err := precis.UsernameCaseMapped.String(username)
	if err != nil {
		return "", fmt.Errorf("passport/password: invalid username: %w", err)
	}

	if key == "" {
		return "", ErrEmptyUsername
	}

	return key, nil
}

// EmailKey returns the case-folded form of email used to enforce
// case-insensitive uniqueness.
func EmailKey(email string) string {
	return cases.Fold().String(email)
}
