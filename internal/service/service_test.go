package service

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/estimator/internal/db"
	"github.com/Simplici0/estimator/internal/migrations"
	"github.com/Simplici0/estimator/internal/repository"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "service-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, migrations.Up(database))
	return database
}

func ptr[T any](v T) *T { return &v }

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decp(s string) *decimal.Decimal {
	return ptr(dec(s))
}

func requireDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, got.Equal(dec(want)), "got %s, want %s", got, want)
}

// requireField asserts err is a validation error naming field.
func requireField(t *testing.T, err error, field string) {
	t.Helper()
	var v *ValidationError
	require.Truef(t, errors.As(err, &v), "want validation error, got %v", err)
	require.Contains(t, v.Fields, field)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestValidationErrorMessage(t *testing.T) {
	v := &ValidationError{}
	require.NoError(t, v.Err())

	v.Add("name", "is required")
	v.Add("code", "is required")
	v.Add("code", "is too long")
	require.EqualError(t, v.Err(), "validation failed: code: is required, is too long; name: is required")
	require.True(t, IsValidation(v))
	require.False(t, IsValidation(repository.ErrNotFound))
}

func TestDuplicateAndReferenceTranslation(t *testing.T) {
	dup := duplicateAs(errors.Join(repository.ErrDuplicate, errors.New("resources.code")), "code", "already exists")
	requireField(t, dup, "code")

	ref := referenceAs(repository.ErrReference, "platform_id", "unknown")
	requireField(t, ref, "platform_id")

	require.ErrorIs(t, duplicateAs(repository.ErrNotFound, "code", "x"), repository.ErrNotFound)
}
