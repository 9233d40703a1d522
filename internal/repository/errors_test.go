package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestTranslatePgError(t *testing.T) {
	assert.NoError(t, translatePgError(nil))

	assert.ErrorIs(t, translatePgError(pgx.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, translatePgError(fmt.Errorf("scan: %w", pgx.ErrNoRows)), ErrNotFound)

	dup := translatePgError(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "departments_name_lower_idx"})
	assert.ErrorIs(t, dup, ErrDuplicate)
	assert.Contains(t, dup.Error(), "departments_name_lower_idx")

	// an id such as "abc" against a uuid column
	badID := translatePgError(&pgconn.PgError{Code: pgInvalidTextRepresentation, Message: `invalid input syntax for type uuid: "abc"`})
	assert.ErrorIs(t, badID, ErrNotFound)

	other := errors.New("connection reset")
	assert.Equal(t, other, translatePgError(other))
	assert.NotErrorIs(t, translatePgError(&pgconn.PgError{Code: "23503"}), ErrNotFound)
}
