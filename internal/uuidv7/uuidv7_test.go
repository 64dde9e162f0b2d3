package uuidv7

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestMust(t *testing.T) {
	t.Parallel()

	a, b := Must(), Must()

	assert.Equal(t, uuid.Version(7), a.Version())
	assert.NotEqual(t, a, b)
	assert.LessOrEqual(t, a.Time(), b.Time())
}
