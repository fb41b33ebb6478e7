package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/estimator/internal/model"
	"github.com/Simplici0/estimator/internal/pricing"
	"github.com/Simplici0/estimator/internal/repository"
)

// AnalysisInput creates or patches a unit price analysis. Nil fields are left unchanged.
type AnalysisInput struct {
	Code                     *string          `json:"code"`
	Name                     *string          `json:"name"`
	CategoryID               *int64           `json:"category_id"`
	Description              *string          `json:"description"`
	Unit                     *string          `json:"unit"`
	PerformanceFactor        *decimal.Decimal `json:"performance_factor"`
	DifficultyFactor         *decimal.Decimal `json:"difficulty_factor"`
	ProfitMargin             *decimal.Decimal `json:"profit_margin"`
	AdministrativePercentage *decimal.Decimal `json:"administrative_percentage"`
	IsActive                 *bool            `json:"is_active"`
	Version                  *string          `json:"version"`
}

// ItemInput adds or patches an analysis line. An omitted UnitCost on add
// snapshots the resource's cost with overhead.
type ItemInput struct {
	ResourceID *int64           `json:"resource_id"`
	Quantity   *decimal.Decimal `json:"quantity"`
	UnitCost   *decimal.Decimal `json:"unit_cost"`
	Efficiency *decimal.Decimal `json:"efficiency"`
	Notes      *string          `json:"notes"`
}

// DuplicateInput names the copy made by Duplicate. An empty NewName appends " (Copy)".
type DuplicateInput struct {
	NewCode string `json:"new_code"`
	NewName string `json:"new_name"`
}

// AnalysisService manages unit price analyses and their resource items.
type AnalysisService interface {
	List(ctx context.Context, f model.AnalysisFilter) ([]model.UnitPriceAnalysis, error)
	Get(ctx context.Context, id int64) (model.UnitPriceAnalysis, error)
	Create(ctx context.Context, in AnalysisInput) (model.UnitPriceAnalysis, error)
	Update(ctx context.Context, id int64, in AnalysisInput) (model.UnitPriceAnalysis, error)
	Delete(ctx context.Context, id int64) error

	AddItem(ctx context.Context, analysisID int64, in ItemInput) (model.UnitPriceItem, error)
	GetItem(ctx context.Context, id int64) (model.UnitPriceItem, error)
	UpdateItem(ctx context.Context, id int64, in ItemInput) (model.UnitPriceItem, error)
	DeleteItem(ctx context.Context, id int64) error

	CostBreakdown(ctx context.Context, id int64) (model.CostBreakdown, error)
	Duplicate(ctx context.Context, id int64, in DuplicateInput) (model.UnitPriceAnalysis, error)
}

// AnalysisServiceImpl implements AnalysisService on the analysis and catalog repositories.
type AnalysisServiceImpl struct {
	repo    repository.AnalysisRepository
	catalog repository.CatalogRepository
}

// NewAnalysisService returns an AnalysisService backed by repo. Items are priced from catalog.
func NewAnalysisService(repo repository.AnalysisRepository, catalog repository.CatalogRepository) *AnalysisServiceImpl {
	return &AnalysisServiceImpl{repo: repo, catalog: catalog}
}

func itemInputs(items []model.UnitPriceItem) []pricing.ItemInput {
	out := make([]pricing.ItemInput, len(items))
	for i, it := range items {
		out[i] = pricing.ItemInput{
			ResourceType: it.ResourceType,
			Quantity:     it.Quantity,
			UnitCost:     it.UnitCost,
			Efficiency:   it.Efficiency,
		}
	}
	return out
}

func analysisFactors(a model.UnitPriceAnalysis) pricing.AnalysisInput {
	return pricing.AnalysisInput{
		PerformanceFactor:        a.PerformanceFactor,
		DifficultyFactor:         a.DifficultyFactor,
		AdministrativePercentage: a.AdministrativePercentage,
		ProfitMargin:             a.ProfitMargin,
	}
}

func withItemTotal(it model.UnitPriceItem) model.UnitPriceItem {
	it.TotalCost = pricing.ItemTotal(pricing.ItemInput{Quantity: it.Quantity, UnitCost: it.UnitCost, Efficiency: it.Efficiency})
	return it
}

// withTotals attaches items and the derived cost chain to a.
func withTotals(a model.UnitPriceAnalysis, items []model.UnitPriceItem) model.UnitPriceAnalysis {
	a.Items = make([]model.UnitPriceItem, len(items))
	for i, it := range items {
		a.Items[i] = withItemTotal(it)
	}
	b := pricing.Calculate(itemInputs(items), analysisFactors(a))
	a.TotalDirectCost = b.TotalDirectCost
	a.BaseCost = b.BaseCost
	a.AdministrativeCost = b.AdministrativeCost
	a.Subtotal = b.Subtotal
	a.ProfitAmount = b.ProfitAmount
	a.UnitPrice = b.UnitPrice
	return a
}

func (s *AnalysisServiceImpl) List(ctx context.Context, f model.AnalysisFilter) ([]model.UnitPriceAnalysis, error) {
	analyses, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(analyses))
	for i, a := range analyses {
		ids[i] = a.ID
	}
	items, err := s.repo.ListItems(ctx, ids...)
	if err != nil {
		return nil, err
	}
	byAnalysis := make(map[int64][]model.UnitPriceItem, len(analyses))
	for _, it := range items {
		byAnalysis[it.AnalysisID] = append(byAnalysis[it.AnalysisID], it)
	}
	for i, a := range analyses {
		analyses[i] = withTotals(a, byAnalysis[a.ID])
	}
	return analyses, nil
}

func (s *AnalysisServiceImpl) Get(ctx context.Context, id int64) (model.UnitPriceAnalysis, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.UnitPriceAnalysis{}, err
	}
	items, err := s.repo.ListItems(ctx, id)
	if err != nil {
		return model.UnitPriceAnalysis{}, err
	}
	return withTotals(a, items), nil
}

func (s *AnalysisServiceImpl) apply(ctx context.Context, a *model.UnitPriceAnalysis, in AnalysisInput) error {
	v := &ValidationError{}
	if in.Code != nil {
		a.Code = strings.TrimSpace(*in.Code)
	}
	if in.Name != nil {
		a.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		a.Description = *in.Description
	}
	if in.Unit != nil {
		a.Unit = strings.TrimSpace(*in.Unit)
	}
	if in.PerformanceFactor != nil {
		a.PerformanceFactor = *in.PerformanceFactor
	}
	if in.DifficultyFactor != nil {
		a.DifficultyFactor = *in.DifficultyFactor
	}
	if in.ProfitMargin != nil {
		a.ProfitMargin = *in.ProfitMargin
	}
	if in.AdministrativePercentage != nil {
		a.AdministrativePercentage = *in.AdministrativePercentage
	}
	if in.IsActive != nil {
		a.IsActive = *in.IsActive
	}
	if in.Version != nil {
		a.Version = strings.TrimSpace(*in.Version)
	}
	if in.CategoryID != nil {
		if _, err := s.catalog.GetCategory(ctx, *in.CategoryID); errors.Is(err, repository.ErrNotFound) {
			v.Add("category_id", "unknown service category")
		} else if err != nil {
			return err
		}
		a.CategoryID = *in.CategoryID
	}

	if a.Code == "" {
		v.Add("code", "is required")
	}
	if a.Name == "" {
		v.Add("name", "is required")
	}
	if a.Unit == "" {
		v.Add("unit", "is required")
	}
	if a.CategoryID == 0 && v.Fields["category_id"] == nil {
		v.Add("category_id", "is required")
	}
	if !a.PerformanceFactor.IsPositive() {
		v.Add("performance_factor", "must be greater than 0")
	}
	if !a.DifficultyFactor.IsPositive() {
		v.Add("difficulty_factor", "must be greater than 0")
	}
	if a.ProfitMargin.IsNegative() || a.ProfitMargin.GreaterThan(hundred) {
		v.Add("profit_margin", "must be between 0 and 100")
	}
	if a.AdministrativePercentage.IsNegative() || a.AdministrativePercentage.GreaterThan(hundred) {
		v.Add("administrative_percentage", "must be between 0 and 100")
	}
	if a.Version == "" {
		a.Version = "1.0"
	}
	return v.Err()
}

func (s *AnalysisServiceImpl) Create(ctx context.Context, in AnalysisInput) (model.UnitPriceAnalysis, error) {
	a := model.UnitPriceAnalysis{
		PerformanceFactor:        decimal.NewFromInt(1),
		DifficultyFactor:         decimal.NewFromInt(1),
		ProfitMargin:             decimal.NewFromInt(15),
		AdministrativePercentage: decimal.NewFromInt(5),
		IsActive:                 true,
		Version:                  "1.0",
	}
	if err := s.apply(ctx, &a, in); err != nil {
		return model.UnitPriceAnalysis{}, err
	}
	if err := s.repo.Create(ctx, &a); err != nil {
		return model.UnitPriceAnalysis{}, duplicateAs(err, "code", "already exists")
	}
	return s.Get(ctx, a.ID)
}

func (s *AnalysisServiceImpl) Update(ctx context.Context, id int64, in AnalysisInput) (model.UnitPriceAnalysis, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.UnitPriceAnalysis{}, err
	}
	if err := s.apply(ctx, &a, in); err != nil {
		return model.UnitPriceAnalysis{}, err
	}
	if err := s.repo.Update(ctx, &a); err != nil {
		return model.UnitPriceAnalysis{}, duplicateAs(err, "code", "already exists")
	}
	return s.Get(ctx, id)
}

func (s *AnalysisServiceImpl) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func validateItem(it model.UnitPriceItem) error {
	v := &ValidationError{}
	if !it.Quantity.IsPositive() {
		v.Add("quantity", "must be greater than 0")
	}
	if !it.UnitCost.IsPositive() {
		v.Add("unit_cost", "must be greater than 0")
	}
	if !it.Efficiency.IsPositive() {
		v.Add("efficiency", "must be greater than 0")
	}
	return v.Err()
}

func (s *AnalysisServiceImpl) AddItem(ctx context.Context, analysisID int64, in ItemInput) (model.UnitPriceItem, error) {
	if _, err := s.repo.Get(ctx, analysisID); err != nil {
		return model.UnitPriceItem{}, err
	}
	if in.ResourceID == nil {
		return model.UnitPriceItem{}, invalid("resource_id", "is required")
	}
	res, err := s.catalog.GetResource(ctx, *in.ResourceID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.UnitPriceItem{}, invalid("resource_id", "unknown resource")
	}
	if err != nil {
		return model.UnitPriceItem{}, err
	}

	it := model.UnitPriceItem{
		AnalysisID: analysisID,
		ResourceID: res.ID,
		UnitCost:   pricing.CostWithOverhead(res.UnitCost, res.OverheadPercentage).Round(2),
		Efficiency: decimal.NewFromInt(1),
	}
	if in.Quantity != nil {
		it.Quantity = *in.Quantity
	}
	if in.UnitCost != nil {
		it.UnitCost = *in.UnitCost
	}
	if in.Efficiency != nil {
		it.Efficiency = *in.Efficiency
	}
	if in.Notes != nil {
		it.Notes = *in.Notes
	}
	if err := validateItem(it); err != nil {
		return model.UnitPriceItem{}, err
	}
	if err := s.repo.AddItem(ctx, &it); err != nil {
		return model.UnitPriceItem{}, duplicateAs(err, "resource_id", "resource is already in this analysis")
	}
	return s.GetItem(ctx, it.ID)
}

func (s *AnalysisServiceImpl) GetItem(ctx context.Context, id int64) (model.UnitPriceItem, error) {
	it, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return model.UnitPriceItem{}, err
	}
	return withItemTotal(it), nil
}

func (s *AnalysisServiceImpl) UpdateItem(ctx context.Context, id int64, in ItemInput) (model.UnitPriceItem, error) {
	it, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return model.UnitPriceItem{}, err
	}
	if in.ResourceID != nil && *in.ResourceID != it.ResourceID {
		return model.UnitPriceItem{}, invalid("resource_id", "cannot be changed; delete the item and add a new one")
	}
	if in.Quantity != nil {
		it.Quantity = *in.Quantity
	}
	if in.UnitCost != nil {
		it.UnitCost = *in.UnitCost
	}
	if in.Efficiency != nil {
		it.Efficiency = *in.Efficiency
	}
	if in.Notes != nil {
		it.Notes = *in.Notes
	}
	if err := validateItem(it); err != nil {
		return model.UnitPriceItem{}, err
	}
	if err := s.repo.UpdateItem(ctx, &it); err != nil {
		return model.UnitPriceItem{}, err
	}
	return s.GetItem(ctx, id)
}

func (s *AnalysisServiceImpl) DeleteItem(ctx context.Context, id int64) error {
	return s.repo.DeleteItem(ctx, id)
}

func (s *AnalysisServiceImpl) CostBreakdown(ctx context.Context, id int64) (model.CostBreakdown, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return model.CostBreakdown{}, err
	}
	shares := pricing.CostByType(itemInputs(a.Items), model.ResourceTypeNames)
	out := model.CostBreakdown{
		AnalysisID:      a.ID,
		TotalDirectCost: a.TotalDirectCost,
		UnitPrice:       a.UnitPrice,
		Breakdown:       make([]model.CostShare, len(shares)),
	}
	for i, sh := range shares {
		out.Breakdown[i] = model.CostShare{ResourceType: sh.ResourceType, Cost: sh.Cost, Percentage: sh.Percentage}
	}
	return out, nil
}

func (s *AnalysisServiceImpl) Duplicate(ctx context.Context, id int64, in DuplicateInput) (model.UnitPriceAnalysis, error) {
	src, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.UnitPriceAnalysis{}, err
	}
	code := strings.TrimSpace(in.NewCode)
	if code == "" {
		return model.UnitPriceAnalysis{}, invalid("new_code", "is required")
	}
	exists, err := s.repo.CodeExists(ctx, code)
	if err != nil {
		return model.UnitPriceAnalysis{}, err
	}
	if exists {
		return model.UnitPriceAnalysis{}, invalid("new_code", "already exists")
	}
	name := strings.TrimSpace(in.NewName)
	if name == "" {
		name = src.Name + " (Copy)"
	}

	newID, err := s.repo.Duplicate(ctx, id, code, name)
	if err != nil {
		return model.UnitPriceAnalysis{}, duplicateAs(err, "new_code", "already exists")
	}
	return s.Get(ctx, newID)
}
