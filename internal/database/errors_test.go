// internal/database/errors_test.go
package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	unique := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "uq_repo_language"}

	assert.True(t, IsUniqueViolation(unique))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", unique)))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}))
	assert.False(t, IsUniqueViolation(errors.New("connection reset")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestIsRowRejected(t *testing.T) {
	assert.True(t, IsRowRejected(fmt.Errorf("create: %w", &pgconn.PgError{Code: pgerrcode.StringDataRightTruncationDataException})))
	assert.True(t, IsRowRejected(&pgconn.PgError{Code: pgerrcode.UniqueViolation}))
	assert.False(t, IsRowRejected(&pgconn.PgError{Code: pgerrcode.AdminShutdown}))
	assert.False(t, IsRowRejected(&pgconn.PgError{Code: pgerrcode.ConnectionFailure}))
	assert.False(t, IsRowRejected(&pgconn.PgError{Code: pgerrcode.DiskFull}))
	assert.False(t, IsRowRejected(errors.New("connection reset")))
	assert.False(t, IsRowRejected(nil))
}
