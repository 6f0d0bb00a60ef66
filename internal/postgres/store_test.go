package postgres

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/demonlist-ranking/internal/domain"
)

func TestDemonColumns(t *testing.T) {
	plain := demonColumns("")
	aliased := demonColumns("d")

	assert.True(t, strings.HasPrefix(plain, "id, name, creator"))
	assert.True(t, strings.HasPrefix(aliased, "d.id, d.name, d.creator"))
	assert.Equal(t, len(demonColumnNames), strings.Count(aliased, "d."))
	assert.NotContains(t, plain, ".")
}

func TestUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: positionConstraint}
	wrapped := fmt.Errorf("setting position: %w", pgErr)

	assert.True(t, uniqueViolation(wrapped, positionConstraint))
	assert.False(t, uniqueViolation(wrapped, "users_username_key"))
	assert.False(t, uniqueViolation(&pgconn.PgError{Code: "23503", ConstraintName: positionConstraint}, positionConstraint))
	assert.False(t, uniqueViolation(errors.New("boom"), positionConstraint))
}

func TestPartitionLockKey(t *testing.T) {
	assert.NotEqual(t, partitionLockKey(domain.ListDemonlist), partitionLockKey(domain.ListChallenge))
}
