package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/estimator/internal/depreciation"
	"github.com/Simplici0/estimator/internal/model"
	"github.com/Simplici0/estimator/internal/repository"
)

// AssetCategoryInput creates or patches an asset category.
type AssetCategoryInput struct {
	Name                      *string              `json:"name"`
	Description               *string              `json:"description"`
	DefaultUsefulLife         *int                 `json:"default_useful_life"`
	DefaultDepreciationMethod *depreciation.Method `json:"default_depreciation_method"`
	IsActive                  *bool                `json:"is_active"`
}

// AssetInput creates or patches an asset. Useful life and method fall back to
// the category defaults on create. Status is changed through ChangeStatus.
type AssetInput struct {
	AssetCode          *string              `json:"asset_code"`
	Name               *string              `json:"name"`
	Description        *string              `json:"description"`
	CategoryID         *int64               `json:"category_id"`
	SerialNumber       *string              `json:"serial_number"`
	PurchaseDate       *model.Date          `json:"purchase_date"`
	PurchaseCost       *decimal.Decimal     `json:"purchase_cost"`
	Supplier           *string              `json:"supplier"`
	InvoiceNumber      *string              `json:"invoice_number"`
	UsefulLifeYears    *int                 `json:"useful_life_years"`
	UsefulLifeMonths   *int                 `json:"useful_life_months"`
	SalvageValue       *decimal.Decimal     `json:"salvage_value"`
	DepreciationMethod *depreciation.Method `json:"depreciation_method"`
	Location           *string              `json:"location"`
	Department         *string              `json:"department"`
	ResponsiblePerson  *string              `json:"responsible_person"`
	NextMaintenance    *model.Date          `json:"next_maintenance"`
	Notes              *string              `json:"notes"`
}

// StatusChange moves an asset to another status. Disposal needs a date.
type StatusChange struct {
	Status        depreciation.Status `json:"status"`
	DisposalDate  *model.Date         `json:"disposal_date"`
	DisposalValue *decimal.Decimal    `json:"disposal_value"`
	Notes         *string             `json:"notes"`
}

// EntryInput selects the period of a posted depreciation entry.
type EntryInput struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// MaintenanceInput records a maintenance event on an asset.
type MaintenanceInput struct {
	MaintenanceType *string          `json:"maintenance_type"`
	PerformedOn     *model.Date      `json:"performed_on"`
	Cost            *decimal.Decimal `json:"cost"`
	Description     *string          `json:"description"`
	PerformedBy     *string          `json:"performed_by"`
	NextDue         *model.Date      `json:"next_due"`
}

// AssetService manages fixed assets, their categories, depreciation and maintenance.
type AssetService interface {
	ListCategories(ctx context.Context) ([]model.AssetCategory, error)
	GetCategory(ctx context.Context, id int64) (model.AssetCategory, error)
	CreateCategory(ctx context.Context, in AssetCategoryInput) (model.AssetCategory, error)
	UpdateCategory(ctx context.Context, id int64, in AssetCategoryInput) (model.AssetCategory, error)
	DeleteCategory(ctx context.Context, id int64) error

	List(ctx context.Context, f model.AssetFilter) ([]model.Asset, error)
	Get(ctx context.Context, id int64) (model.Asset, error)
	Create(ctx context.Context, in AssetInput) (model.Asset, error)
	Update(ctx context.Context, id int64, in AssetInput) (model.Asset, error)
	Delete(ctx context.Context, id int64) error
	ChangeStatus(ctx context.Context, id int64, in StatusChange) (model.Asset, error)
	Recalculate(ctx context.Context, id int64) (model.Asset, error)
	Schedule(ctx context.Context, id int64) ([]depreciation.ScheduleRow, error)

	ListEntries(ctx context.Context, assetID int64) ([]model.DepreciationEntry, error)
	PostEntry(ctx context.Context, assetID int64, in EntryInput) (model.DepreciationEntry, error)

	ListMaintenance(ctx context.Context, assetID int64) ([]model.MaintenanceRecord, error)
	RecordMaintenance(ctx context.Context, assetID int64, in MaintenanceInput) (model.MaintenanceRecord, error)
}

// AssetServiceImpl implements AssetService. Valuations go through the depreciation engine.
type AssetServiceImpl struct {
	repo   repository.AssetRepository
	engine *depreciation.Engine
	now    func() time.Time
}

// NewAssetService values assets with engine as of the current time. A nil
// engine evaluates without memoisation.
func NewAssetService(repo repository.AssetRepository, engine *depreciation.Engine) *AssetServiceImpl {
	return &AssetServiceImpl{repo: repo, engine: engine, now: time.Now}
}

func (s *AssetServiceImpl) ListCategories(ctx context.Context) ([]model.AssetCategory, error) {
	return s.repo.ListCategories(ctx)
}

func (s *AssetServiceImpl) GetCategory(ctx context.Context, id int64) (model.AssetCategory, error) {
	return s.repo.GetCategory(ctx, id)
}

func applyAssetCategory(c *model.AssetCategory, in AssetCategoryInput) error {
	v := &ValidationError{}
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.DefaultUsefulLife != nil {
		c.DefaultUsefulLife = *in.DefaultUsefulLife
	}
	if in.DefaultDepreciationMethod != nil {
		c.DefaultDepreciationMethod = *in.DefaultDepreciationMethod
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if c.Name == "" {
		v.Add("name", "is required")
	}
	if c.DefaultUsefulLife <= 0 {
		v.Add("default_useful_life", "must be greater than 0")
	}
	if !c.DefaultDepreciationMethod.Valid() {
		v.Add("default_depreciation_method", "unknown depreciation method")
	}
	return v.Err()
}

func (s *AssetServiceImpl) CreateCategory(ctx context.Context, in AssetCategoryInput) (model.AssetCategory, error) {
	c := model.AssetCategory{DefaultUsefulLife: 5, DefaultDepreciationMethod: depreciation.StraightLine, IsActive: true}
	if err := applyAssetCategory(&c, in); err != nil {
		return model.AssetCategory{}, err
	}
	if err := s.repo.CreateCategory(ctx, &c); err != nil {
		return model.AssetCategory{}, duplicateAs(err, "name", "already exists")
	}
	return s.repo.GetCategory(ctx, c.ID)
}

func (s *AssetServiceImpl) UpdateCategory(ctx context.Context, id int64, in AssetCategoryInput) (model.AssetCategory, error) {
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return model.AssetCategory{}, err
	}
	if err := applyAssetCategory(&c, in); err != nil {
		return model.AssetCategory{}, err
	}
	if err := s.repo.UpdateCategory(ctx, &c); err != nil {
		return model.AssetCategory{}, duplicateAs(err, "name", "already exists")
	}
	return s.repo.GetCategory(ctx, id)
}

func (s *AssetServiceImpl) DeleteCategory(ctx context.Context, id int64) error {
	return s.repo.DeleteCategory(ctx, id)
}

// valuationDate is the day an asset is valued at: today, or its disposal
// date once disposed.
func (s *AssetServiceImpl) valuationDate(a model.Asset) time.Time {
	now := s.now()
	if a.Status == depreciation.StatusDisposed && a.DisposalDate != nil && a.DisposalDate.Before(now) {
		return a.DisposalDate.Time
	}
	return now
}

// revalue recomputes the stored depreciation figures of a and reconciles
// its status.
func (s *AssetServiceImpl) revalue(a *model.Asset) {
	d := a.Depreciable()
	months := depreciation.MonthsElapsed(a.PurchaseDate.Time, s.valuationDate(*a))
	v := s.engine.Evaluate(a.ID, d, months)

	a.AccumulatedDepreciation = v.AccumulatedDepreciation
	a.CurrentValue = v.CurrentValue
	a.MonthlyDepreciation = v.MonthlyDepreciation
	a.AnnualDepreciation = v.AnnualDepreciation
	a.Status = depreciation.Reconcile(a.Status, v, d)
}

// withDerived fills the computed fields that are not stored.
func (s *AssetServiceImpl) withDerived(a model.Asset) model.Asset {
	d := a.Depreciable()
	a.TotalUsefulLifeMonths = d.TotalMonths()
	a.DepreciableAmount = d.Depreciable()
	a.MonthsSincePurchase = depreciation.MonthsElapsed(a.PurchaseDate.Time, s.valuationDate(a))
	a.RemainingUsefulLifeMonths = max(a.TotalUsefulLifeMonths-a.MonthsSincePurchase, 0)
	a.DepreciationPercentage = depreciation.Valuation{AccumulatedDepreciation: a.AccumulatedDepreciation}.Percentage(a.PurchaseCost)
	return a
}

func (s *AssetServiceImpl) List(ctx context.Context, f model.AssetFilter) ([]model.Asset, error) {
	out, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i] = s.withDerived(out[i])
	}
	return out, nil
}

func (s *AssetServiceImpl) Get(ctx context.Context, id int64) (model.Asset, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.Asset{}, err
	}
	return s.withDerived(a), nil
}

func (s *AssetServiceImpl) applyAsset(ctx context.Context, a *model.Asset, in AssetInput, creating bool) error {
	v := &ValidationError{}
	str := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	str(&a.AssetCode, in.AssetCode)
	str(&a.Name, in.Name)
	str(&a.SerialNumber, in.SerialNumber)
	str(&a.Supplier, in.Supplier)
	str(&a.InvoiceNumber, in.InvoiceNumber)
	str(&a.Location, in.Location)
	str(&a.Department, in.Department)
	str(&a.ResponsiblePerson, in.ResponsiblePerson)
	if in.Description != nil {
		a.Description = *in.Description
	}
	if in.Notes != nil {
		a.Notes = *in.Notes
	}
	if in.PurchaseDate != nil {
		a.PurchaseDate = *in.PurchaseDate
	}
	if in.PurchaseCost != nil {
		a.PurchaseCost = *in.PurchaseCost
	}
	if in.UsefulLifeYears != nil {
		a.UsefulLifeYears = *in.UsefulLifeYears
	}
	if in.UsefulLifeMonths != nil {
		a.UsefulLifeMonths = *in.UsefulLifeMonths
	}
	if in.SalvageValue != nil {
		a.SalvageValue = *in.SalvageValue
	}
	if in.DepreciationMethod != nil {
		a.DepreciationMethod = *in.DepreciationMethod
	}
	if in.NextMaintenance != nil {
		if in.NextMaintenance.IsZero() {
			a.NextMaintenance = nil
		} else {
			d := *in.NextMaintenance
			a.NextMaintenance = &d
		}
	}

	if in.CategoryID != nil {
		c, err := s.repo.GetCategory(ctx, *in.CategoryID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			v.Add("category_id", "unknown asset category")
		case err != nil:
			return err
		default:
			a.CategoryID = c.ID
			if creating && in.UsefulLifeYears == nil && in.UsefulLifeMonths == nil {
				a.UsefulLifeYears = c.DefaultUsefulLife
			}
			if creating && in.DepreciationMethod == nil {
				a.DepreciationMethod = c.DefaultDepreciationMethod
			}
		}
	} else if a.CategoryID == 0 {
		v.Add("category_id", "is required")
	}

	if a.AssetCode == "" {
		v.Add("asset_code", "is required")
	}
	if a.Name == "" {
		v.Add("name", "is required")
	}
	if a.PurchaseDate.IsZero() {
		v.Add("purchase_date", "is required")
	}
	if !a.PurchaseCost.IsPositive() {
		v.Add("purchase_cost", "must be greater than 0")
	}
	if a.SalvageValue.IsNegative() {
		v.Add("salvage_value", "must not be negative")
	} else if a.SalvageValue.GreaterThan(a.PurchaseCost) {
		v.Add("salvage_value", "must not exceed purchase_cost")
	}
	if a.UsefulLifeYears < 0 {
		v.Add("useful_life_years", "must not be negative")
	}
	if a.UsefulLifeMonths < 0 || a.UsefulLifeMonths > 11 {
		v.Add("useful_life_months", "must be between 0 and 11")
	}
	if a.UsefulLifeYears*12+a.UsefulLifeMonths <= 0 {
		v.Add("useful_life_years", "useful life must be at least one month")
	}
	if !a.DepreciationMethod.Valid() {
		v.Add("depreciation_method", "unknown depreciation method")
	}
	return v.Err()
}

func (s *AssetServiceImpl) Create(ctx context.Context, in AssetInput) (model.Asset, error) {
	a := model.Asset{
		Status:                     depreciation.StatusActive,
		DepreciationMethod:         depreciation.StraightLine,
		SalvageValue:               decimal.Zero,
		MaintenanceCostAccumulated: decimal.Zero,
		DisposalValue:              decimal.Zero,
	}
	if err := s.applyAsset(ctx, &a, in, true); err != nil {
		return model.Asset{}, err
	}
	s.revalue(&a)
	if err := s.repo.Create(ctx, &a); err != nil {
		return model.Asset{}, duplicateAs(err, "asset_code", "already exists")
	}
	return s.Get(ctx, a.ID)
}

func (s *AssetServiceImpl) Update(ctx context.Context, id int64, in AssetInput) (model.Asset, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.Asset{}, err
	}
	if err := s.applyAsset(ctx, &a, in, false); err != nil {
		return model.Asset{}, err
	}
	s.revalue(&a)
	if err := s.repo.Update(ctx, &a); err != nil {
		return model.Asset{}, duplicateAs(err, "asset_code", "already exists")
	}
	return s.Get(ctx, id)
}

func (s *AssetServiceImpl) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.engine.Forget(id)
	return nil
}

// Recalculate revalues an asset as of today and stores the result.
func (s *AssetServiceImpl) Recalculate(ctx context.Context, id int64) (model.Asset, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.Asset{}, err
	}
	s.revalue(&a)
	if err := s.repo.Update(ctx, &a); err != nil {
		return model.Asset{}, err
	}
	return s.Get(ctx, id)
}

func (s *AssetServiceImpl) ChangeStatus(ctx context.Context, id int64, in StatusChange) (model.Asset, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.Asset{}, err
	}
	if !in.Status.Valid() {
		return model.Asset{}, invalid("status", "unknown status")
	}
	if !depreciation.CanTransition(a.Status, in.Status) {
		return model.Asset{}, invalid("status", fmt.Sprintf("cannot change from %s to %s", a.Status, in.Status))
	}
	if in.Status == depreciation.StatusDisposed {
		if in.DisposalDate == nil || in.DisposalDate.IsZero() {
			return model.Asset{}, invalid("disposal_date", "is required when disposing an asset")
		}
		d := *in.DisposalDate
		a.DisposalDate = &d
		if in.DisposalValue != nil {
			if in.DisposalValue.IsNegative() {
				return model.Asset{}, invalid("disposal_value", "must not be negative")
			}
			a.DisposalValue = *in.DisposalValue
		}
	}
	if in.Notes != nil {
		a.Notes = *in.Notes
	}

	a.Status = in.Status
	s.revalue(&a)
	if err := s.repo.Update(ctx, &a); err != nil {
		return model.Asset{}, err
	}
	return s.Get(ctx, id)
}

func (s *AssetServiceImpl) Schedule(ctx context.Context, id int64) ([]depreciation.ScheduleRow, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return depreciation.Schedule(a.Depreciable()), nil
}

func (s *AssetServiceImpl) ListEntries(ctx context.Context, assetID int64) ([]model.DepreciationEntry, error) {
	if _, err := s.repo.Get(ctx, assetID); err != nil {
		return nil, err
	}
	return s.repo.ListEntries(ctx, assetID)
}

// PostEntry books the depreciation charged during in.Month of in.Year. The
// month of purchase is the first chargeable month.
func (s *AssetServiceImpl) PostEntry(ctx context.Context, assetID int64, in EntryInput) (model.DepreciationEntry, error) {
	a, err := s.repo.Get(ctx, assetID)
	if err != nil {
		return model.DepreciationEntry{}, err
	}
	if in.Month < 1 || in.Month > 12 {
		return model.DepreciationEntry{}, invalid("month", "must be between 1 and 12")
	}
	period := time.Date(in.Year, time.Month(in.Month), 1, 0, 0, 0, 0, time.UTC)
	first := time.Date(a.PurchaseDate.Year(), a.PurchaseDate.Month(), 1, 0, 0, 0, 0, time.UTC)
	if period.Before(first) {
		return model.DepreciationEntry{}, invalid("month", "is before the purchase month")
	}

	d := a.Depreciable()
	end := depreciation.MonthsElapsed(first, period) + 1
	start := depreciation.AccumulatedAt(d, end-1)
	accumulated := depreciation.AccumulatedAt(d, end)

	e := model.DepreciationEntry{
		AssetID:     assetID,
		Year:        in.Year,
		Month:       in.Month,
		Amount:      accumulated.Sub(start),
		Accumulated: accumulated,
		BookValue:   decimal.Max(a.PurchaseCost.Sub(accumulated), a.SalvageValue),
	}
	if err := s.repo.CreateEntry(ctx, &e); err != nil {
		return model.DepreciationEntry{}, err
	}
	return e, nil
}

func (s *AssetServiceImpl) ListMaintenance(ctx context.Context, assetID int64) ([]model.MaintenanceRecord, error) {
	if _, err := s.repo.Get(ctx, assetID); err != nil {
		return nil, err
	}
	return s.repo.ListMaintenance(ctx, assetID)
}

func (s *AssetServiceImpl) RecordMaintenance(ctx context.Context, assetID int64, in MaintenanceInput) (model.MaintenanceRecord, error) {
	rec := model.MaintenanceRecord{
		AssetID:         assetID,
		MaintenanceType: model.MaintenancePreventive,
		PerformedOn:     model.DateOf(s.now()),
		Cost:            decimal.Zero,
	}
	if in.MaintenanceType != nil {
		rec.MaintenanceType = *in.MaintenanceType
	}
	if in.PerformedOn != nil {
		rec.PerformedOn = *in.PerformedOn
	}
	if in.Cost != nil {
		rec.Cost = *in.Cost
	}
	if in.Description != nil {
		rec.Description = *in.Description
	}
	if in.PerformedBy != nil {
		rec.PerformedBy = strings.TrimSpace(*in.PerformedBy)
	}
	if in.NextDue != nil && !in.NextDue.IsZero() {
		d := *in.NextDue
		rec.NextDue = &d
	}

	v := &ValidationError{}
	if !model.ValidMaintenanceType(rec.MaintenanceType) {
		v.Add("maintenance_type", "unknown maintenance type")
	}
	if rec.PerformedOn.IsZero() {
		v.Add("performed_on", "is required")
	}
	if rec.Cost.IsNegative() {
		v.Add("cost", "must not be negative")
	}
	if rec.NextDue != nil && rec.NextDue.Before(rec.PerformedOn.Time) {
		v.Add("next_due", "must not be before performed_on")
	}
	if err := v.Err(); err != nil {
		return model.MaintenanceRecord{}, err
	}

	if err := s.repo.CreateMaintenance(ctx, &rec); err != nil {
		return model.MaintenanceRecord{}, err
	}
	return rec, nil
}
