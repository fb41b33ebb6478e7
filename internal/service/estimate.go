package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/estimator/internal/model"
	"github.com/Simplici0/estimator/internal/pricing"
	"github.com/Simplici0/estimator/internal/repository"
)

// EstimateInput creates or patches a project estimate. Nil fields are left unchanged.
type EstimateInput struct {
	Name         *string          `json:"name"`
	Client       *string          `json:"client"`
	Description  *string          `json:"description"`
	Location     *string          `json:"location"`
	EstimateDate *model.Date      `json:"estimate_date"`
	ValidityDays *int             `json:"validity_days"`
	SiteFactor   *decimal.Decimal `json:"site_factor"`
	SeasonFactor *decimal.Decimal `json:"season_factor"`
	Status       *string          `json:"status"`
}

// EstimateItemInput adds or patches an estimate line. An omitted UnitPrice on
// add snapshots the analysis's current unit price.
type EstimateItemInput struct {
	AnalysisID  *int64           `json:"analysis_id"`
	Quantity    *decimal.Decimal `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	Description *string          `json:"description"`
}

// EstimateService manages project estimates, their items and reports.
type EstimateService interface {
	List(ctx context.Context, f model.EstimateFilter) ([]model.ProjectEstimate, error)
	Get(ctx context.Context, id int64) (model.ProjectEstimate, error)
	Create(ctx context.Context, in EstimateInput) (model.ProjectEstimate, error)
	Update(ctx context.Context, id int64, in EstimateInput) (model.ProjectEstimate, error)
	Delete(ctx context.Context, id int64) error

	AddItem(ctx context.Context, estimateID int64, in EstimateItemInput) (model.ProjectEstimateItem, error)
	UpdateItem(ctx context.Context, id int64, in EstimateItemInput) (model.ProjectEstimateItem, error)
	DeleteItem(ctx context.Context, id int64) error

	ChangeStatus(ctx context.Context, id int64, status string) (model.ProjectEstimate, error)
	Report(ctx context.Context, id int64) (model.EstimateReport, error)
}

// EstimateServiceImpl implements EstimateService.
type EstimateServiceImpl struct {
	repo     repository.EstimateRepository
	analyses AnalysisService
	now      func() time.Time
}

// NewEstimateService returns an EstimateService. Item prices default to the
// analysis unit price looked up through analyses.
func NewEstimateService(repo repository.EstimateRepository, analyses AnalysisService) *EstimateServiceImpl {
	return &EstimateServiceImpl{repo: repo, analyses: analyses, now: time.Now}
}

func withLineTotal(it model.ProjectEstimateItem) model.ProjectEstimateItem {
	it.TotalAmount = pricing.LineTotal(pricing.EstimateLine{Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	return it
}

func withEstimateTotals(e model.ProjectEstimate, items []model.ProjectEstimateItem) model.ProjectEstimate {
	e.Items = make([]model.ProjectEstimateItem, len(items))
	lines := make([]pricing.EstimateLine, len(items))
	for i, it := range items {
		e.Items[i] = withLineTotal(it)
		lines[i] = pricing.EstimateLine{Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}
	totals := pricing.CalculateEstimate(lines, e.SiteFactor, e.SeasonFactor)
	e.Subtotal = totals.Subtotal
	e.TotalEstimate = totals.TotalEstimate
	e.ValidityEndDate = model.DateOf(pricing.ValidityEnd(e.EstimateDate.Time, e.ValidityDays))
	return e
}

func (s *EstimateServiceImpl) List(ctx context.Context, f model.EstimateFilter) ([]model.ProjectEstimate, error) {
	estimates, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(estimates))
	for i, e := range estimates {
		ids[i] = e.ID
	}
	items, err := s.repo.ListItems(ctx, ids...)
	if err != nil {
		return nil, err
	}
	byEstimate := make(map[int64][]model.ProjectEstimateItem, len(estimates))
	for _, it := range items {
		byEstimate[it.EstimateID] = append(byEstimate[it.EstimateID], it)
	}
	for i, e := range estimates {
		estimates[i] = withEstimateTotals(e, byEstimate[e.ID])
	}
	return estimates, nil
}

func (s *EstimateServiceImpl) Get(ctx context.Context, id int64) (model.ProjectEstimate, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.ProjectEstimate{}, err
	}
	items, err := s.repo.ListItems(ctx, id)
	if err != nil {
		return model.ProjectEstimate{}, err
	}
	return withEstimateTotals(e, items), nil
}

func applyEstimate(e *model.ProjectEstimate, in EstimateInput) error {
	v := &ValidationError{}
	if in.Name != nil {
		e.Name = strings.TrimSpace(*in.Name)
	}
	if in.Client != nil {
		e.Client = strings.TrimSpace(*in.Client)
	}
	if in.Description != nil {
		e.Description = *in.Description
	}
	if in.Location != nil {
		e.Location = strings.TrimSpace(*in.Location)
	}
	if in.EstimateDate != nil {
		e.EstimateDate = *in.EstimateDate
	}
	if in.ValidityDays != nil {
		e.ValidityDays = *in.ValidityDays
	}
	if in.SiteFactor != nil {
		e.SiteFactor = *in.SiteFactor
	}
	if in.SeasonFactor != nil {
		e.SeasonFactor = *in.SeasonFactor
	}
	if in.Status != nil {
		e.Status = *in.Status
	}

	if e.Name == "" {
		v.Add("name", "is required")
	}
	if e.Client == "" {
		v.Add("client", "is required")
	}
	if e.EstimateDate.IsZero() {
		v.Add("estimate_date", "is required")
	}
	if e.ValidityDays < 0 {
		v.Add("validity_days", "must not be negative")
	}
	if !e.SiteFactor.IsPositive() {
		v.Add("site_factor", "must be greater than 0")
	}
	if !e.SeasonFactor.IsPositive() {
		v.Add("season_factor", "must be greater than 0")
	}
	if !model.ValidEstimateStatus(e.Status) {
		v.Add("status", "unknown status")
	}
	return v.Err()
}

func (s *EstimateServiceImpl) Create(ctx context.Context, in EstimateInput) (model.ProjectEstimate, error) {
	e := model.ProjectEstimate{
		EstimateDate: model.DateOf(s.now()),
		ValidityDays: 30,
		SiteFactor:   decimal.NewFromInt(1),
		SeasonFactor: decimal.NewFromInt(1),
		Status:       model.EstimateDraft,
	}
	if err := applyEstimate(&e, in); err != nil {
		return model.ProjectEstimate{}, err
	}
	if err := s.repo.Create(ctx, &e); err != nil {
		return model.ProjectEstimate{}, err
	}
	return s.Get(ctx, e.ID)
}

func (s *EstimateServiceImpl) Update(ctx context.Context, id int64, in EstimateInput) (model.ProjectEstimate, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.ProjectEstimate{}, err
	}
	if err := applyEstimate(&e, in); err != nil {
		return model.ProjectEstimate{}, err
	}
	if err := s.repo.Update(ctx, &e); err != nil {
		return model.ProjectEstimate{}, err
	}
	return s.Get(ctx, id)
}

func (s *EstimateServiceImpl) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func validateEstimateItem(it model.ProjectEstimateItem) error {
	v := &ValidationError{}
	if !it.Quantity.IsPositive() {
		v.Add("quantity", "must be greater than 0")
	}
	if it.UnitPrice.IsNegative() {
		v.Add("unit_price", "must not be negative")
	}
	return v.Err()
}

func (s *EstimateServiceImpl) AddItem(ctx context.Context, estimateID int64, in EstimateItemInput) (model.ProjectEstimateItem, error) {
	if _, err := s.repo.Get(ctx, estimateID); err != nil {
		return model.ProjectEstimateItem{}, err
	}
	if in.AnalysisID == nil {
		return model.ProjectEstimateItem{}, invalid("analysis_id", "is required")
	}
	analysis, err := s.analyses.Get(ctx, *in.AnalysisID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.ProjectEstimateItem{}, invalid("analysis_id", "unknown unit price analysis")
	}
	if err != nil {
		return model.ProjectEstimateItem{}, err
	}

	it := model.ProjectEstimateItem{
		EstimateID: estimateID,
		AnalysisID: analysis.ID,
		UnitPrice:  analysis.UnitPrice.Round(2),
	}
	if in.Quantity != nil {
		it.Quantity = *in.Quantity
	}
	if in.UnitPrice != nil {
		it.UnitPrice = *in.UnitPrice
	}
	if in.Description != nil {
		it.Description = *in.Description
	}
	if err := validateEstimateItem(it); err != nil {
		return model.ProjectEstimateItem{}, err
	}
	if err := s.repo.AddItem(ctx, &it); err != nil {
		return model.ProjectEstimateItem{}, err
	}
	return s.getItem(ctx, it.ID)
}

func (s *EstimateServiceImpl) getItem(ctx context.Context, id int64) (model.ProjectEstimateItem, error) {
	it, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return model.ProjectEstimateItem{}, err
	}
	return withLineTotal(it), nil
}

func (s *EstimateServiceImpl) UpdateItem(ctx context.Context, id int64, in EstimateItemInput) (model.ProjectEstimateItem, error) {
	it, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return model.ProjectEstimateItem{}, err
	}
	if in.AnalysisID != nil && *in.AnalysisID != it.AnalysisID {
		return model.ProjectEstimateItem{}, invalid("analysis_id", "cannot be changed; delete the item and add a new one")
	}
	if in.Quantity != nil {
		it.Quantity = *in.Quantity
	}
	if in.UnitPrice != nil {
		it.UnitPrice = *in.UnitPrice
	}
	if in.Description != nil {
		it.Description = *in.Description
	}
	if err := validateEstimateItem(it); err != nil {
		return model.ProjectEstimateItem{}, err
	}
	if err := s.repo.UpdateItem(ctx, &it); err != nil {
		return model.ProjectEstimateItem{}, err
	}
	return s.getItem(ctx, id)
}

func (s *EstimateServiceImpl) DeleteItem(ctx context.Context, id int64) error {
	return s.repo.DeleteItem(ctx, id)
}

func (s *EstimateServiceImpl) ChangeStatus(ctx context.Context, id int64, status string) (model.ProjectEstimate, error) {
	if !model.ValidEstimateStatus(status) {
		return model.ProjectEstimate{}, invalid("status", "unknown status")
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return model.ProjectEstimate{}, err
	}
	return s.Get(ctx, id)
}

// Report groups the items of an estimate by service category, in category
// name order.
func (s *EstimateServiceImpl) Report(ctx context.Context, id int64) (model.EstimateReport, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return model.EstimateReport{}, err
	}
	return BuildEstimateReport(e), nil
}

// BuildEstimateReport renders an estimate that already carries its items.
func BuildEstimateReport(e model.ProjectEstimate) model.EstimateReport {
	sections := []model.CategorySection{}
	index := map[string]int{}
	for _, it := range e.Items {
		i, ok := index[it.CategoryName]
		if !ok {
			i = len(sections)
			index[it.CategoryName] = i
			sections = append(sections, model.CategorySection{Category: it.CategoryName, Subtotal: decimal.Zero})
		}
		sections[i].Items = append(sections[i].Items, it)
		sections[i].Subtotal = sections[i].Subtotal.Add(it.TotalAmount)
	}
	return model.EstimateReport{
		Estimate:          e,
		CategoryBreakdown: sections,
		Summary: model.EstimateSummary{
			Subtotal:      e.Subtotal,
			SiteFactor:    e.SiteFactor,
			SeasonFactor:  e.SeasonFactor,
			TotalEstimate: e.TotalEstimate,
		},
	}
}
