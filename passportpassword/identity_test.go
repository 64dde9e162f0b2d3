package passportpassword

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsernameKey(t *testing.T) {
	t.Parallel()

	for _, username := range []string{"alice", "Alice", "ALICE", "aLiCe"} {
		key, err := UsernameKey(username)
		require.NoError(t, err)
		assert.Equal(t, "alice", key, username)
	}

	_, err := UsernameKey("")
	require.ErrorIs(t, err, ErrEmptyUsername)
}

func TestEmailKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "alice@example.com", EmailKey("Alice@Example.COM"))
	assert.Equal(t, EmailKey("alice@example.com"), EmailKey("ALICE@EXAMPLE.COM"))
}
