package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/estimator/internal/costmatrix"
	"github.com/Simplici0/estimator/internal/model"
	"github.com/Simplici0/estimator/internal/repository"
)

func newMatrixFixture(t *testing.T) (*MatrixServiceImpl, analysisFixture) {
	t.Helper()
	database := newTestDB(t)
	afx := seedAnalysis(t, database)
	svc := NewMatrixService(repository.NewSQLiteMatrixRepository(database), afx.svc)
	svc.now = fixedClock(time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))
	return svc, afx
}

func TestMatrixDefaults(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMatrixFixture(t)

	m, err := svc.Create(ctx, MatrixInput{Name: ptr("Base"), IsDefault: ptr(true)})
	require.NoError(t, err)
	require.Equal(t, model.MatrixStandard, m.MatrixType)
	requireDec(t, "20", m.BaseMargin)
	requireDec(t, "15", m.AdministrativeOverhead)
	require.Equal(t, "2024-06-01", m.EffectiveDate.String())
	require.Len(t, m.Config.VolumeTiers, 4)
	require.True(t, m.IsDefault)

	other, err := svc.Create(ctx, MatrixInput{Name: ptr("Premium"), MatrixType: ptr(model.MatrixPremium), IsDefault: ptr(true)})
	require.NoError(t, err)
	require.True(t, other.IsDefault)

	m, err = svc.Get(ctx, m.ID)
	require.NoError(t, err)
	require.False(t, m.IsDefault)

	_, err = svc.Create(ctx, MatrixInput{Name: ptr("Base")})
	requireField(t, err, "name")
}

func TestMatrixValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMatrixFixture(t)

	overlapping := costmatrix.Config{VolumeTiers: []costmatrix.VolumeTier{
		{Name: "small", Min: dec("0"), Max: decp("100"), Discount: dec("0")},
		{Name: "large", Min: dec("50"), Discount: dec("5")},
	}}
	_, err := svc.Create(ctx, MatrixInput{Name: ptr("Broken"), Config: &overlapping})
	requireField(t, err, "config")

	_, err = svc.Create(ctx, MatrixInput{Name: ptr("x"), MatrixType: ptr("luxury")})
	requireField(t, err, "matrix_type")

	_, err = svc.Create(ctx, MatrixInput{Name: ptr("x"), BaseMargin: decp("120")})
	requireField(t, err, "base_margin")

	_, err = svc.Create(ctx, MatrixInput{
		Name:          ptr("x"),
		EffectiveDate: ptr(model.NewDate(2024, time.June, 1)),
		ExpiryDate:    ptr(model.NewDate(2024, time.May, 1)),
	})
	requireField(t, err, "expiry_date")
}

func TestMatrixUpdateMergesConfigSections(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMatrixFixture(t)

	custom := costmatrix.Config{VolumeTiers: []costmatrix.VolumeTier{
		{Name: "all", Min: dec("0"), Discount: dec("7")},
	}}
	m, err := svc.Create(ctx, MatrixInput{Name: ptr("Custom"), Config: &custom})
	require.NoError(t, err)
	require.Len(t, m.Config.VolumeTiers, 1)

	patch := costmatrix.Config{RiskPremiums: map[string]decimal.Decimal{"high": dec("30")}}
	m, err = svc.Update(ctx, m.ID, MatrixInput{Config: &patch})
	require.NoError(t, err)

	require.Len(t, m.Config.VolumeTiers, 1)
	requireDec(t, "7", m.Config.VolumeTiers[0].Discount)
	require.Len(t, m.Config.RiskPremiums, 1)
	requireDec(t, "30", m.Config.RiskPremiums["high"])
	require.Len(t, m.Config.ComplexityMultipliers, len(costmatrix.DefaultComplexityMultipliers()))
}

func TestMatrixCalculate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMatrixFixture(t)

	m, err := svc.Create(ctx, MatrixInput{Name: ptr("Base")})
	require.NoError(t, err)

	q, err := svc.Calculate(ctx, m.ID, PriceRequest{BaseCost: decp("1000")})
	require.NoError(t, err)
	requireDec(t, "150", q.AdministrativeCost)
	requireDec(t, "1150", q.LocationAdjustedCost)
	requireDec(t, "230", q.MarginAmount)
	requireDec(t, "1380", q.FinalPrice)
	requireDec(t, "38", q.EffectiveMargin)

	q, err = svc.Calculate(ctx, m.ID, PriceRequest{
		BaseCost: decp("1000"),
		Factors:  costmatrix.Factors{Complexity: "complex", Location: "Cusco", ProjectValue: decp("60000")},
	})
	require.NoError(t, err)
	requireDec(t, "1500", q.ComplexityAdjustedCost)
	requireDec(t, "1983.75", q.LocationAdjustedCost)
	requireDec(t, "5", q.VolumeDiscountPercentage)
	requireDec(t, "2261.48", q.FinalPrice)

	_, err = svc.Calculate(ctx, m.ID, PriceRequest{})
	requireField(t, err, "base_cost")

	_, err = svc.Calculate(ctx, m.ID, PriceRequest{BaseCost: decp("1"), Factors: costmatrix.Factors{CustomMargin: decp("101")}})
	requireField(t, err, "factors.custom_margin")

	_, err = svc.Calculate(ctx, 999, PriceRequest{BaseCost: decp("1")})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestScenarioCalculate(t *testing.T) {
	ctx := context.Background()
	svc, afx := newMatrixFixture(t)

	m, err := svc.Create(ctx, MatrixInput{Name: ptr("Base")})
	require.NoError(t, err)

	_, err = svc.CreateScenario(ctx, ScenarioInput{Name: ptr("x"), CostMatrixID: ptr(int64(999)), AnalysisID: ptr(afx.analysis.ID)})
	requireField(t, err, "cost_matrix_id")

	_, err = svc.CreateScenario(ctx, ScenarioInput{Name: ptr("x"), CostMatrixID: ptr(m.ID)})
	requireField(t, err, "analysis_id")

	sc, err := svc.CreateScenario(ctx, ScenarioInput{Name: ptr("Muro base"), CostMatrixID: ptr(m.ID), AnalysisID: ptr(afx.analysis.ID)})
	require.NoError(t, err)
	requireDec(t, "0", sc.TotalPrice)

	sc, err = svc.CalculateScenario(ctx, sc.ID)
	require.NoError(t, err)
	requireDec(t, "220", sc.TotalCost)
	requireDec(t, "303.6", sc.TotalPrice)
	requireDec(t, "38", sc.EffectiveMargin)

	_, err = svc.UpdateScenario(ctx, sc.ID, ScenarioInput{CostMatrixID: ptr(m.ID + 1)})
	requireField(t, err, "cost_matrix_id")

	sc, err = svc.UpdateScenario(ctx, sc.ID, ScenarioInput{Params: &costmatrix.Factors{CustomMargin: decp("0")}})
	require.NoError(t, err)
	sc, err = svc.CalculateScenario(ctx, sc.ID)
	require.NoError(t, err)
	requireDec(t, "253", sc.TotalPrice)

	list, err := svc.ListScenarios(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, m.ID))
	_, err = svc.GetScenario(ctx, sc.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
}
