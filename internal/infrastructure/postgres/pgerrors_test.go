package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestPgErrorClassification(t *testing.T) {
	wrap := func(code string) error {
		return fmt.Errorf("create stock movement: %w", &pgconn.PgError{Code: code})
	}

	assert.True(t, isUniqueViolation(wrap("23505")))
	assert.False(t, isUniqueViolation(wrap("23503")))
	assert.False(t, isUniqueViolation(errors.New("23505 en el texto no basta")))

	assert.True(t, isRetryable(wrap("40001")))
	assert.True(t, isRetryable(wrap("40P01")))
	assert.False(t, isRetryable(wrap("55P03")))

	assert.True(t, isLockTimeout(wrap("55P03")))
	assert.False(t, isLockTimeout(nil))
}
