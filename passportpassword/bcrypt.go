package passportpassword

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var _ PasswordHasher = (*bcryptPasswordHasher)(nil)

const BcryptDefaultCost = bcrypt.DefaultCost

type bcryptPasswordHasher struct {
	cost int
}

// NewBcryptPasswordHasher creates a new bcrypt password hasher.
//
// Note that bcrypt only uses the first 72 bytes of a password.
func NewBcryptPasswordHasher(cost int) PasswordHasher {
	return &bcryptPasswordHasher{cost}
}

func (h *bcryptPasswordHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("passport/password: failed to hash password: %w", err)
	}

	return string(hash), nil
}

func (h *bcryptPasswordHasher) Verify(hashedPassword, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}

		return false, fmt.Errorf("%w: %w", ErrInvalidHash, err)
	}

	return true, nil
}
