// Package passportpassword implements user registration and login flows
// with username and password.
package passportpassword

import "go.inout.gg/foundations/debug"

// PasswordHasher is a hashing algorithm to hash password securely.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hashedPassword string, password string) (bool, error)
}

// DefaultPasswordHasher is the default password hashing algorithm used across.
//
//nolint:gochecknoglobals
var DefaultPasswordHasher PasswordHasher = NewArgon2PasswordHasher(DefaultArgon2Params)

//nolint:gochecknoglobals
var d = debug.Debuglog("passport/password")
