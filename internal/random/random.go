// Package random provides cryptographically secure random strings used for
// identifiers and tokens.
package random

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/hex"
	"fmt"
)

//nolint:gochecknoglobals
var base32Encoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// secureBytes returns a securely random byte slice of length l.
func secureBytes(l int) ([]byte, error) {
	bytes := make([]byte, l)

	_, err := rand.Read(bytes)
	if err != nil {
		return bytes, fmt.Errorf(
			"passport: error reading random bytes: %w",
			err,
		)
	}

	return bytes, nil
}

// SecureHexString returns a securely random hex string of length 2*l.
func SecureHexString(l int) (string, error) {
	bytes, err := secureBytes(l)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(bytes), nil
}

// IDFromEntropySize returns an identifier holding size bytes of entropy
// encoded as lowercase base32 without padding.
//
// 10 bytes produce a 16 characters long ID, 25 bytes produce 40 characters.
func IDFromEntropySize(size int) (string, error) {
	bytes, err := secureBytes(size)
	if err != nil {
		return "", err
	}

	return base32Encoding.EncodeToString(bytes), nil
}
