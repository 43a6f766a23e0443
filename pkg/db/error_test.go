package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: employees.email")))
	assert.False(t, IsDuplicateKeyErr(errors.New("boom")))
}

func TestClassify(t *testing.T) {
	t.Run("serialization failure becomes concurrent modification", func(t *testing.T) {
		err := Classify(fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"}))
		assert.ErrorIs(t, err, ErrConcurrentModification)
	})

	t.Run("deadline becomes store unavailable", func(t *testing.T) {
		err := Classify(fmt.Errorf("query: %w", context.DeadlineExceeded))
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})

	t.Run("domain errors pass through", func(t *testing.T) {
		sentinel := errors.New("insufficient_funds")
		assert.Same(t, sentinel, Classify(sentinel))
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, Classify(nil))
	})
}
