// Package uuidv7 is a wrapper around google's uuid package producing
// time-ordered identifiers.
package uuidv7

import (
	"github.com/google/uuid"
	"go.inout.gg/foundations/must"
)

// Must returns a new random UUID. It panics if there is an error.
func Must() uuid.UUID {
	return must.Must(uuid.NewV7())
}
