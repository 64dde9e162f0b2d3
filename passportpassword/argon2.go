package passportpassword

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var _ PasswordHasher = (*argon2PasswordHasher)(nil)

// ErrInvalidHash is returned when a stored hash cannot be parsed.
var ErrInvalidHash = errors.New("passport/password: invalid password hash")

// Argon2Params are the Argon2id cost parameters.
type Argon2Params struct {
	// Memory is the memory cost in KiB.
	Memory uint32

	// Iterations is the time cost.
	Iterations uint32

	// Parallelism is the number of lanes.
	Parallelism uint8

	// SaltLength is the length of the random salt in bytes.
	SaltLength uint32

	// KeyLength is the length of the derived key in bytes.
	KeyLength uint32
}

// DefaultArgon2Params follow the OWASP minimum recommendation for Argon2id.
//
//nolint:gochecknoglobals
var DefaultArgon2Params = Argon2Params{
	Memory:      19456,
	Iterations:  2,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

type argon2PasswordHasher struct {
	params Argon2Params
}

// NewArgon2PasswordHasher creates a new Argon2id password hasher.
//
// Hashes are encoded in the PHC string format:
//
//	$argon2id$v=19$m=19456,t=2,p=1$<salt>$<key>
func NewArgon2PasswordHasher(params Argon2Params) PasswordHasher {
	return &argon2PasswordHasher{params}
}

func (h *argon2PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("passport/password: failed to generate salt: %w", err)
	}

	key := argon2.IDKey(
		[]byte(password),
		salt,
		h.params.Iterations,
		h.params.Memory,
		h.params.Parallelism,
		h.params.KeyLength,
	)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Iterations,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks password against hashedPassword using the parameters
// encoded in hashedPassword.
func (h *argon2PasswordHasher) Verify(hashedPassword, password string) (bool, error) {
	params, salt, key, err := decodeArgon2Hash(hashedPassword)
	if err != nil {
		return false, err
	}

	other := argon2.IDKey(
		[]byte(password),
		salt,
		params.Iterations,
		params.Memory,
		params.Parallelism,
		params.KeyLength,
	)

	return subtle.ConstantTimeCompare(key, other) == 1, nil
}

func decodeArgon2Hash(encoded string) (Argon2Params, []byte, []byte, error) {
	var params Argon2Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return params, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return params, nil, nil, fmt.Errorf("%w: %w", ErrInvalidHash, err)
	}

	if version != argon2.Version {
		return params, nil, nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidHash, version)
	}

	if _, err := fmt.Sscanf(
		parts[3],
		"m=%d,t=%d,p=%d",
		&params.Memory,
		&params.Iterations,
		&params.Parallelism,
	); err != nil {
		return params, nil, nil, fmt.Errorf("%w: %w", ErrInvalidHash, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params, nil, nil, fmt.Errorf("%w: %w", ErrInvalidHash, err)
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return params, nil, nil, fmt.Errorf("%w: %w", ErrInvalidHash, err)
	}

	if len(salt) == 0 || len(key) == 0 || params.Iterations == 0 || params.Parallelism == 0 {
		return params, nil, nil, ErrInvalidHash
	}

	//nolint:gosec
	params.SaltLength = uint32(len(salt))
	//nolint:gosec
	params.KeyLength = uint32(len(key))

	return params, salt, key, nil
}
