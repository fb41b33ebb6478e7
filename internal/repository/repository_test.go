package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/estimator/internal/db"
	"github.com/Simplici0/estimator/internal/migrations"
	"github.com/Simplici0/estimator/internal/model"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "repo-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, migrations.Up(database))
	return database
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, got.Equal(dec(want)), "got %s, want %s", got, want)
}

// catalogFixture creates a material type with 10% overhead, a category and one resource.
type catalogFixture struct {
	TypeID     int64
	CategoryID int64
	ResourceID int64
}

func seedCatalog(t *testing.T, database *sql.DB) catalogFixture {
	t.Helper()
	ctx := context.Background()
	repo := NewSQLiteCatalogRepository(database)

	rt := model.ResourceType{Name: model.ResourceMaterial, OverheadPercentage: dec("10")}
	require.NoError(t, repo.CreateResourceType(ctx, &rt))

	cat := model.ServiceCategory{Code: "OBR", Name: "Obras civiles", IsActive: true}
	require.NoError(t, repo.CreateCategory(ctx, &cat))

	res := model.Resource{
		Code:           "MAT-001",
		Name:           "Cemento",
		ResourceTypeID: rt.ID,
		Unit:           "bolsa",
		UnitCost:       dec("100"),
		IsActive:       true,
	}
	require.NoError(t, repo.CreateResource(ctx, &res))

	return catalogFixture{TypeID: rt.ID, CategoryID: cat.ID, ResourceID: res.ID}
}

func TestClassify(t *testing.T) {
	dup := classify("create resource", errors.New("constraint failed: UNIQUE constraint failed: resources.code (2067)"))
	require.ErrorIs(t, dup, ErrDuplicate)
	require.Contains(t, dup.Error(), "resources.code")
	require.NotContains(t, dup.Error(), "2067")

	ref := classify("create resource", errors.New("constraint failed: FOREIGN KEY constraint failed (787)"))
	require.ErrorIs(t, ref, ErrReference)

	other := classify("create resource", sql.ErrConnDone)
	require.ErrorIs(t, other, sql.ErrConnDone)
	require.NotErrorIs(t, other, ErrDuplicate)

	require.NoError(t, classify("noop", nil))
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	require.Equal(t, `%50\%\_off%`, likePattern("50%_off"))
}

func TestDuplicateRollsBackWhenItemCopyFails(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO unit_price_analyses`).WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectExec(`INSERT INTO unit_price_items`).WillReturnError(errors.New("FOREIGN KEY constraint failed"))
	mock.ExpectRollback()

	repo := NewSQLiteAnalysisRepository(database)
	_, err = repo.Duplicate(context.Background(), 1, "APU-001-COPY", "Muro (Copy)")
	require.ErrorIs(t, err, ErrReference)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDuplicateMissingSourceRollsBack(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO unit_price_analyses`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	repo := NewSQLiteAnalysisRepository(database)
	_, err = repo.Duplicate(context.Background(), 404, "X", "Y")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
