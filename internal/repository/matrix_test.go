package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Simplici0/estimator/internal/costmatrix"
	"github.com/Simplici0/estimator/internal/model"
)

func newMatrix(name string, isDefault bool) model.CostMatrix {
	return model.CostMatrix{
		Name:                   name,
		MatrixType:             model.MatrixStandard,
		BaseMargin:             dec("20"),
		AdministrativeOverhead: dec("15"),
		Config:                 costmatrix.DefaultConfig(),
		EffectiveDate:          model.NewDate(2024, time.January, 1),
		IsActive:               true,
		IsDefault:              isDefault,
		Version:                "1.0",
	}
}

func TestMatrixSingleDefault(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	repo := NewSQLiteMatrixRepository(database)

	first := newMatrix("Estándar", true)
	require.NoError(t, repo.Create(ctx, &first))
	second := newMatrix("Premium", true)
	require.NoError(t, repo.Create(ctx, &second))

	def, err := repo.GetDefault(ctx)
	require.NoError(t, err)
	require.Equal(t, second.ID, def.ID)

	first.IsDefault = true
	require.NoError(t, repo.Update(ctx, &first))
	def, err = repo.GetDefault(ctx)
	require.NoError(t, err)
	require.Equal(t, first.ID, def.ID)

	all, err := repo.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.True(t, all[0].IsDefault)
	require.False(t, all[1].IsDefault)
}

func TestMatrixConfigRoundTrip(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	repo := NewSQLiteMatrixRepository(database)

	m := newMatrix("Custom", false)
	m.Config = costmatrix.Config{}.WithDefaults()
	expiry := model.NewDate(2025, time.December, 31)
	m.ExpiryDate = &expiry
	require.NoError(t, repo.Create(ctx, &m))

	got, err := repo.Get(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, "2025-12-31", got.ExpiryDate.String())
	requireDec(t, "1.5", got.Config.ComplexityMultiplier("complex"))
	requireDec(t, "1.15", got.Config.LocationFactor("unknown town"))
	require.Len(t, got.Config.VolumeTiers, len(costmatrix.DefaultVolumeTiers()))

	_, err = repo.GetDefault(ctx)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestScenarioParamsAndCascade(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	fx := seedCatalog(t, database)

	analyses := NewSQLiteAnalysisRepository(database)
	a := newAnalysis(fx.CategoryID, "APU-010")
	require.NoError(t, analyses.Create(ctx, &a))

	repo := NewSQLiteMatrixRepository(database)
	m := newMatrix("Estándar", true)
	require.NoError(t, repo.Create(ctx, &m))

	date := time.Date(2024, time.December, 3, 0, 0, 0, 0, time.UTC)
	value := dec("250000")
	s := model.PricingScenario{
		Name:         "Cusco diciembre",
		CostMatrixID: m.ID,
		AnalysisID:   a.ID,
		Params:       costmatrix.Factors{Complexity: "complex", Date: &date, Location: "cusco", ProjectValue: &value},
		TotalCost:    dec("100"),
		TotalPrice:   dec("261.86"),
	}
	require.NoError(t, repo.CreateScenario(ctx, &s))

	got, err := repo.GetScenario(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, "complex", got.Params.Complexity)
	require.NotNil(t, got.Params.Date)
	require.True(t, got.Params.Date.Equal(date))
	requireDec(t, "250000", *got.Params.ProjectValue)
	require.Nil(t, got.Params.CustomMargin)

	list, err := repo.ListScenarios(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, repo.Delete(ctx, m.ID))
	_, err = repo.GetScenario(ctx, s.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
