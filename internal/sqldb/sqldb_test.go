package sqldb_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"go.inout.gg/passport/internal/sqldb"
)

func TestIsNotFoundError(t *testing.T) {
	t.Parallel()

	assert.True(t, sqldb.IsNotFoundError(pgx.ErrNoRows))
	assert.True(t, sqldb.IsNotFoundError(fmt.Errorf("wrapped: %w", pgx.ErrNoRows)))
	assert.False(t, sqldb.IsNotFoundError(errors.New("boom")))
}

func TestUniqueViolationConstraint(t *testing.T) {
	t.Parallel()

	t.Run("unique violation", func(t *testing.T) {
		t.Parallel()

		err := fmt.Errorf("insert: %w", &pgconn.PgError{
			Code:           pgerrcode.UniqueViolation,
			ConstraintName: "users_email_key_unique",
		})

		name, ok := sqldb.UniqueViolationConstraint(err)
		assert.True(t, ok)
		assert.Equal(t, "users_email_key_unique", name)
		assert.True(t, sqldb.IsUniqueViolationError(err))
	})

	t.Run("other postgres error", func(t *testing.T) {
		t.Parallel()

		err := &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}

		_, ok := sqldb.UniqueViolationConstraint(err)
		assert.False(t, ok)
		assert.False(t, sqldb.IsUniqueViolationError(err))
	})

	t.Run("non postgres error", func(t *testing.T) {
		t.Parallel()

		assert.False(t, sqldb.IsUniqueViolationError(errors.New("boom")))
	})
}
