package passportpasswordverifier

import (
	"slices"
	"strings"
)

// PasswordRequiredChars represents a list of character sets. A password must
// contain at least one character of each set.
type PasswordRequiredChars []string

// Parse parses a "::" separated list of character sets, e.g. "0123456789::!@#$%".
//
// Empty sets are ignored.
func (s *PasswordRequiredChars) Parse(source string) error {
	parts := slices.DeleteFunc(
		strings.Split(source, "::"),
		func(s string) bool { return len(s) == 0 },
	)

	*s = PasswordRequiredChars(parts)

	return nil
}
