package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Simplici0/estimator/internal/depreciation"
	"github.com/Simplici0/estimator/internal/model"
	"github.com/Simplici0/estimator/internal/repository"
)

// newAssetFixture values assets as of 2024-07-15 and seeds one category.
func newAssetFixture(t *testing.T) (*AssetServiceImpl, model.AssetCategory) {
	t.Helper()
	engine, err := depreciation.NewEngine(16)
	require.NoError(t, err)

	svc := NewAssetService(repository.NewSQLiteAssetRepository(newTestDB(t)), engine)
	svc.now = fixedClock(time.Date(2024, time.July, 15, 12, 0, 0, 0, time.UTC))

	cat, err := svc.CreateCategory(context.Background(), AssetCategoryInput{Name: ptr("Equipos")})
	require.NoError(t, err)
	require.Equal(t, 5, cat.DefaultUsefulLife)
	require.Equal(t, depreciation.StraightLine, cat.DefaultDepreciationMethod)
	return svc, cat
}

func laptopInput(categoryID int64) AssetInput {
	return AssetInput{
		AssetCode:       ptr("EQ-001"),
		Name:            ptr("Laptop"),
		CategoryID:      ptr(categoryID),
		PurchaseDate:    ptr(model.NewDate(2024, time.January, 10)),
		PurchaseCost:    decp("12000"),
		UsefulLifeYears: ptr(1),
	}
}

func TestAssetCreateValuesAsset(t *testing.T) {
	svc, cat := newAssetFixture(t)

	a, err := svc.Create(context.Background(), laptopInput(cat.ID))
	require.NoError(t, err)
	require.Equal(t, depreciation.StatusActive, a.Status)
	require.Equal(t, "Equipos", a.CategoryName)

	requireDec(t, "6000", a.AccumulatedDepreciation)
	requireDec(t, "6000", a.CurrentValue)
	requireDec(t, "1000", a.MonthlyDepreciation)
	requireDec(t, "12000", a.AnnualDepreciation)

	require.Equal(t, 12, a.TotalUsefulLifeMonths)
	require.Equal(t, 6, a.MonthsSincePurchase)
	require.Equal(t, 6, a.RemainingUsefulLifeMonths)
	requireDec(t, "12000", a.DepreciableAmount)
	requireDec(t, "50", a.DepreciationPercentage)
}

func TestAssetCategoryDefaults(t *testing.T) {
	svc, cat := newAssetFixture(t)

	in := laptopInput(cat.ID)
	in.UsefulLifeYears = nil
	a, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, 5, a.UsefulLifeYears)
	require.Equal(t, depreciation.StraightLine, a.DepreciationMethod)
	requireDec(t, "1200", a.AccumulatedDepreciation)
}

func TestAssetValidation(t *testing.T) {
	ctx := context.Background()
	svc, cat := newAssetFixture(t)

	_, err := svc.Create(ctx, laptopInput(cat.ID))
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*AssetInput)
		field  string
	}{
		{"duplicate code", func(in *AssetInput) {}, "asset_code"},
		{"salvage above cost", func(in *AssetInput) { in.AssetCode = ptr("EQ-2"); in.SalvageValue = decp("13000") }, "salvage_value"},
		{"zero life", func(in *AssetInput) { in.AssetCode = ptr("EQ-3"); in.UsefulLifeYears = ptr(0) }, "useful_life_years"},
		{"bad method", func(in *AssetInput) {
			in.AssetCode = ptr("EQ-4")
			in.DepreciationMethod = ptr(depreciation.Method("double"))
		}, "depreciation_method"},
		{"unknown category", func(in *AssetInput) { in.AssetCode = ptr("EQ-5"); in.CategoryID = ptr(int64(999)) }, "category_id"},
		{"no cost", func(in *AssetInput) { in.AssetCode = ptr("EQ-6"); in.PurchaseCost = decp("0") }, "purchase_cost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := laptopInput(cat.ID)
			tt.mutate(&in)
			_, err := svc.Create(ctx, in)
			requireField(t, err, tt.field)
		})
	}
}

func TestAssetReachesFullDepreciation(t *testing.T) {
	svc, cat := newAssetFixture(t)

	in := laptopInput(cat.ID)
	in.PurchaseDate = ptr(model.NewDate(2022, time.January, 1))
	in.SalvageValue = decp("2000")
	a, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	require.Equal(t, depreciation.StatusFullyDepreciated, a.Status)
	requireDec(t, "2000", a.CurrentValue)
	requireDec(t, "10000", a.AccumulatedDepreciation)
	requireDec(t, "0", a.MonthlyDepreciation)
	require.Equal(t, 0, a.RemainingUsefulLifeMonths)
}

func TestAssetStatusTransitions(t *testing.T) {
	ctx := context.Background()
	svc, cat := newAssetFixture(t)

	a, err := svc.Create(ctx, laptopInput(cat.ID))
	require.NoError(t, err)

	a, err = svc.ChangeStatus(ctx, a.ID, StatusChange{Status: depreciation.StatusImpaired})
	require.NoError(t, err)
	require.Equal(t, depreciation.StatusImpaired, a.Status)

	_, err = svc.ChangeStatus(ctx, a.ID, StatusChange{Status: depreciation.StatusFullyDepreciated})
	requireField(t, err, "status")

	_, err = svc.ChangeStatus(ctx, a.ID, StatusChange{Status: "lost"})
	requireField(t, err, "status")

	_, err = svc.ChangeStatus(ctx, a.ID, StatusChange{Status: depreciation.StatusDisposed})
	requireField(t, err, "disposal_date")

	a, err = svc.ChangeStatus(ctx, a.ID, StatusChange{
		Status:        depreciation.StatusDisposed,
		DisposalDate:  ptr(model.NewDate(2024, time.March, 10)),
		DisposalValue: decp("9000"),
	})
	require.NoError(t, err)
	require.Equal(t, depreciation.StatusDisposed, a.Status)
	requireDec(t, "9000", a.DisposalValue)
	require.Equal(t, 2, a.MonthsSincePurchase)
	requireDec(t, "2000", a.AccumulatedDepreciation)

	_, err = svc.ChangeStatus(ctx, a.ID, StatusChange{Status: depreciation.StatusActive})
	requireField(t, err, "status")

	_, err = svc.ChangeStatus(ctx, 999, StatusChange{Status: depreciation.StatusActive})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAssetUpdateRevalues(t *testing.T) {
	ctx := context.Background()
	svc, cat := newAssetFixture(t)

	a, err := svc.Create(ctx, laptopInput(cat.ID))
	require.NoError(t, err)

	a, err = svc.Update(ctx, a.ID, AssetInput{UsefulLifeYears: ptr(2), Location: ptr("Lima")})
	require.NoError(t, err)
	requireDec(t, "3000", a.AccumulatedDepreciation)
	requireDec(t, "500", a.MonthlyDepreciation)
	require.Equal(t, "Lima", a.Location)

	a, err = svc.Update(ctx, a.ID, AssetInput{DepreciationMethod: ptr(depreciation.DecliningBalance)})
	require.NoError(t, err)
	want := depreciation.Evaluate(a.Depreciable(), 6)
	requireDec(t, want.AccumulatedDepreciation.String(), a.AccumulatedDepreciation)

	// a recompute from the memo matches the cold computation
	a, err = svc.Recalculate(ctx, a.ID)
	require.NoError(t, err)
	requireDec(t, want.AccumulatedDepreciation.String(), a.AccumulatedDepreciation)

	require.NoError(t, svc.Delete(ctx, a.ID))
	_, err = svc.Get(ctx, a.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAssetSchedule(t *testing.T) {
	ctx := context.Background()
	svc, cat := newAssetFixture(t)

	in := laptopInput(cat.ID)
	in.UsefulLifeYears = ptr(3)
	in.SalvageValue = decp("3000")
	a, err := svc.Create(ctx, in)
	require.NoError(t, err)

	rows, err := svc.Schedule(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	requireDec(t, "12000", rows[0].OpeningValue)
	requireDec(t, "3000", rows[0].DepreciationExpense)
	requireDec(t, "3000", rows[2].ClosingValue)
	requireDec(t, "9000", rows[2].AccumulatedDepreciation)

	_, err = svc.Schedule(ctx, 999)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAssetDepreciationEntries(t *testing.T) {
	ctx := context.Background()
	svc, cat := newAssetFixture(t)

	a, err := svc.Create(ctx, laptopInput(cat.ID))
	require.NoError(t, err)

	e, err := svc.PostEntry(ctx, a.ID, EntryInput{Year: 2024, Month: 1})
	require.NoError(t, err)
	requireDec(t, "1000", e.Amount)
	requireDec(t, "1000", e.Accumulated)
	requireDec(t, "11000", e.BookValue)
	require.False(t, e.CreatedAt.IsZero())

	e, err = svc.PostEntry(ctx, a.ID, EntryInput{Year: 2024, Month: 3})
	require.NoError(t, err)
	requireDec(t, "1000", e.Amount)
	requireDec(t, "3000", e.Accumulated)

	// after the end of useful life nothing more is charged
	e, err = svc.PostEntry(ctx, a.ID, EntryInput{Year: 2025, Month: 6})
	require.NoError(t, err)
	requireDec(t, "0", e.Amount)
	requireDec(t, "0", e.BookValue)

	_, err = svc.PostEntry(ctx, a.ID, EntryInput{Year: 2024, Month: 1})
	require.ErrorIs(t, err, repository.ErrDuplicate)

	_, err = svc.PostEntry(ctx, a.ID, EntryInput{Year: 2023, Month: 12})
	requireField(t, err, "month")

	_, err = svc.PostEntry(ctx, a.ID, EntryInput{Year: 2024, Month: 13})
	requireField(t, err, "month")

	entries, err := svc.ListEntries(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, 1, entries[0].Month)
}

func TestAssetMaintenance(t *testing.T) {
	ctx := context.Background()
	svc, cat := newAssetFixture(t)

	a, err := svc.Create(ctx, laptopInput(cat.ID))
	require.NoError(t, err)

	rec, err := svc.RecordMaintenance(ctx, a.ID, MaintenanceInput{
		MaintenanceType: ptr(model.MaintenanceCorrective),
		PerformedOn:     ptr(model.NewDate(2024, time.June, 1)),
		Cost:            decp("150"),
		NextDue:         ptr(model.NewDate(2024, time.December, 1)),
	})
	require.NoError(t, err)
	require.NotZero(t, rec.ID)

	_, err = svc.RecordMaintenance(ctx, a.ID, MaintenanceInput{Cost: decp("50")})
	require.NoError(t, err)

	a, err = svc.Get(ctx, a.ID)
	require.NoError(t, err)
	requireDec(t, "200", a.MaintenanceCostAccumulated)
	require.Equal(t, "2024-07-15", a.LastMaintenance.String())
	require.Equal(t, "2024-12-01", a.NextMaintenance.String())

	_, err = svc.RecordMaintenance(ctx, a.ID, MaintenanceInput{MaintenanceType: ptr("cleaning")})
	requireField(t, err, "maintenance_type")

	_, err = svc.RecordMaintenance(ctx, 999, MaintenanceInput{})
	require.ErrorIs(t, err, repository.ErrNotFound)

	list, err := svc.ListMaintenance(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
}
