package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/estimator/internal/costmatrix"
	"github.com/Simplici0/estimator/internal/model"
	"github.com/Simplici0/estimator/internal/repository"
)

// MatrixInput creates or patches a cost matrix. On update, only the non-empty
// sections of Config replace the stored ones.
type MatrixInput struct {
	Name                   *string            `json:"name"`
	MatrixType             *string            `json:"matrix_type"`
	Description            *string            `json:"description"`
	BaseMargin             *decimal.Decimal   `json:"base_margin"`
	AdministrativeOverhead *decimal.Decimal   `json:"administrative_overhead"`
	Config                 *costmatrix.Config `json:"config"`
	EffectiveDate          *model.Date        `json:"effective_date"`
	ExpiryDate             *model.Date        `json:"expiry_date"`
	IsActive               *bool              `json:"is_active"`
	IsDefault              *bool              `json:"is_default"`
	Version                *string            `json:"version"`
}

// PriceRequest is the body of an ad hoc dynamic price calculation.
type PriceRequest struct {
	BaseCost *decimal.Decimal   `json:"base_cost"`
	Factors  costmatrix.Factors `json:"factors"`
}

// ScenarioInput creates or patches a pricing scenario.
type ScenarioInput struct {
	Name         *string             `json:"name"`
	Description  *string             `json:"description"`
	CostMatrixID *int64              `json:"cost_matrix_id"`
	AnalysisID   *int64              `json:"analysis_id"`
	Params       *costmatrix.Factors `json:"params"`
}

// MatrixService manages cost matrices and pricing scenarios.
type MatrixService interface {
	List(ctx context.Context, activeOnly bool) ([]model.CostMatrix, error)
	Get(ctx context.Context, id int64) (model.CostMatrix, error)
	Create(ctx context.Context, in MatrixInput) (model.CostMatrix, error)
	Update(ctx context.Context, id int64, in MatrixInput) (model.CostMatrix, error)
	Delete(ctx context.Context, id int64) error
	Calculate(ctx context.Context, id int64, req PriceRequest) (costmatrix.Quote, error)

	ListScenarios(ctx context.Context, matrixID int64) ([]model.PricingScenario, error)
	GetScenario(ctx context.Context, id int64) (model.PricingScenario, error)
	CreateScenario(ctx context.Context, in ScenarioInput) (model.PricingScenario, error)
	UpdateScenario(ctx context.Context, id int64, in ScenarioInput) (model.PricingScenario, error)
	DeleteScenario(ctx context.Context, id int64) error
	CalculateScenario(ctx context.Context, id int64) (model.PricingScenario, error)
}

// MatrixServiceImpl implements MatrixService.
type MatrixServiceImpl struct {
	repo     repository.MatrixRepository
	analyses AnalysisService
	now      func() time.Time
}

// NewMatrixService returns a MatrixService. Scenarios are priced from the
// direct cost of analyses.
func NewMatrixService(repo repository.MatrixRepository, analyses AnalysisService) *MatrixServiceImpl {
	return &MatrixServiceImpl{repo: repo, analyses: analyses, now: time.Now}
}

func (s *MatrixServiceImpl) List(ctx context.Context, activeOnly bool) ([]model.CostMatrix, error) {
	return s.repo.List(ctx, activeOnly)
}

func (s *MatrixServiceImpl) Get(ctx context.Context, id int64) (model.CostMatrix, error) {
	return s.repo.Get(ctx, id)
}

func applyMatrix(m *model.CostMatrix, in MatrixInput) error {
	v := &ValidationError{}
	if in.Name != nil {
		m.Name = strings.TrimSpace(*in.Name)
	}
	if in.MatrixType != nil {
		m.MatrixType = *in.MatrixType
	}
	if in.Description != nil {
		m.Description = *in.Description
	}
	if in.BaseMargin != nil {
		m.BaseMargin = *in.BaseMargin
	}
	if in.AdministrativeOverhead != nil {
		m.AdministrativeOverhead = *in.AdministrativeOverhead
	}
	if in.Config != nil {
		m.Config = m.Config.Merge(*in.Config)
	}
	if in.EffectiveDate != nil {
		m.EffectiveDate = *in.EffectiveDate
	}
	if in.ExpiryDate != nil {
		if in.ExpiryDate.IsZero() {
			m.ExpiryDate = nil
		} else {
			d := *in.ExpiryDate
			m.ExpiryDate = &d
		}
	}
	if in.IsActive != nil {
		m.IsActive = *in.IsActive
	}
	if in.IsDefault != nil {
		m.IsDefault = *in.IsDefault
	}
	if in.Version != nil {
		m.Version = strings.TrimSpace(*in.Version)
	}
	m.Config = m.Config.WithDefaults()

	if m.Name == "" {
		v.Add("name", "is required")
	}
	if !model.ValidMatrixType(m.MatrixType) {
		v.Add("matrix_type", "unknown matrix type")
	}
	if m.BaseMargin.IsNegative() || m.BaseMargin.GreaterThan(hundred) {
		v.Add("base_margin", "must be between 0 and 100")
	}
	if m.AdministrativeOverhead.IsNegative() || m.AdministrativeOverhead.GreaterThan(hundred) {
		v.Add("administrative_overhead", "must be between 0 and 100")
	}
	if m.EffectiveDate.IsZero() {
		v.Add("effective_date", "is required")
	}
	if m.ExpiryDate != nil && !m.ExpiryDate.After(m.EffectiveDate.Time) {
		v.Add("expiry_date", "must be after effective_date")
	}
	if err := m.Config.Validate(); err != nil {
		for _, msg := range strings.Split(err.Error(), "\n") {
			v.Add("config", msg)
		}
	}
	return v.Err()
}

func (s *MatrixServiceImpl) Create(ctx context.Context, in MatrixInput) (model.CostMatrix, error) {
	m := model.CostMatrix{
		MatrixType:             model.MatrixStandard,
		BaseMargin:             decimal.NewFromInt(20),
		AdministrativeOverhead: decimal.NewFromInt(15),
		EffectiveDate:          model.DateOf(s.now()),
		IsActive:               true,
		Version:                "1.0",
	}
	if err := applyMatrix(&m, in); err != nil {
		return model.CostMatrix{}, err
	}
	if err := s.repo.Create(ctx, &m); err != nil {
		return model.CostMatrix{}, duplicateAs(err, "name", "already exists")
	}
	return s.repo.Get(ctx, m.ID)
}

func (s *MatrixServiceImpl) Update(ctx context.Context, id int64, in MatrixInput) (model.CostMatrix, error) {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.CostMatrix{}, err
	}
	if err := applyMatrix(&m, in); err != nil {
		return model.CostMatrix{}, err
	}
	if err := s.repo.Update(ctx, &m); err != nil {
		return model.CostMatrix{}, duplicateAs(err, "name", "already exists")
	}
	return s.repo.Get(ctx, id)
}

func (s *MatrixServiceImpl) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Calculate prices req.BaseCost with matrix id. The quote is rounded to cents.
func (s *MatrixServiceImpl) Calculate(ctx context.Context, id int64, req PriceRequest) (costmatrix.Quote, error) {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return costmatrix.Quote{}, err
	}
	if req.BaseCost == nil {
		return costmatrix.Quote{}, invalid("base_cost", "is required")
	}
	if req.BaseCost.IsNegative() {
		return costmatrix.Quote{}, invalid("base_cost", "must not be negative")
	}
	if err := validateFactors(req.Factors, "factors"); err != nil {
		return costmatrix.Quote{}, err
	}
	return m.Pricer().Price(*req.BaseCost, req.Factors).Rounded(), nil
}

func validateFactors(f costmatrix.Factors, field string) error {
	v := &ValidationError{}
	if f.CustomMargin != nil && (f.CustomMargin.IsNegative() || f.CustomMargin.GreaterThan(hundred)) {
		v.Add(field+".custom_margin", "must be between 0 and 100")
	}
	if f.ProjectValue != nil && f.ProjectValue.IsNegative() {
		v.Add(field+".project_value", "must not be negative")
	}
	return v.Err()
}

func (s *MatrixServiceImpl) ListScenarios(ctx context.Context, matrixID int64) ([]model.PricingScenario, error) {
	return s.repo.ListScenarios(ctx, matrixID)
}

func (s *MatrixServiceImpl) GetScenario(ctx context.Context, id int64) (model.PricingScenario, error) {
	return s.repo.GetScenario(ctx, id)
}

func (s *MatrixServiceImpl) applyScenario(ctx context.Context, sc *model.PricingScenario, in ScenarioInput, creating bool) error {
	v := &ValidationError{}
	if in.Name != nil {
		sc.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		sc.Description = *in.Description
	}
	if in.Params != nil {
		sc.Params = *in.Params
	}

	if creating {
		if in.CostMatrixID != nil {
			sc.CostMatrixID = *in.CostMatrixID
		}
		if in.AnalysisID != nil {
			sc.AnalysisID = *in.AnalysisID
		}
		if err := s.requireMatrixAndAnalysis(ctx, sc, v); err != nil {
			return err
		}
	} else {
		if in.CostMatrixID != nil && *in.CostMatrixID != sc.CostMatrixID {
			v.Add("cost_matrix_id", "cannot be changed")
		}
		if in.AnalysisID != nil && *in.AnalysisID != sc.AnalysisID {
			v.Add("analysis_id", "cannot be changed")
		}
	}

	if sc.Name == "" {
		v.Add("name", "is required")
	}
	if err := validateFactors(sc.Params, "params"); err != nil {
		var fe *ValidationError
		errors.As(err, &fe)
		for k, msgs := range fe.Fields {
			for _, msg := range msgs {
				v.Add(k, msg)
			}
		}
	}
	return v.Err()
}

func (s *MatrixServiceImpl) requireMatrixAndAnalysis(ctx context.Context, sc *model.PricingScenario, v *ValidationError) error {
	if sc.CostMatrixID == 0 {
		v.Add("cost_matrix_id", "is required")
	} else if _, err := s.repo.Get(ctx, sc.CostMatrixID); errors.Is(err, repository.ErrNotFound) {
		v.Add("cost_matrix_id", "unknown cost matrix")
	} else if err != nil {
		return err
	}

	if sc.AnalysisID == 0 {
		v.Add("analysis_id", "is required")
	} else if _, err := s.analyses.Get(ctx, sc.AnalysisID); errors.Is(err, repository.ErrNotFound) {
		v.Add("analysis_id", "unknown unit price analysis")
	} else if err != nil {
		return err
	}
	return nil
}

func (s *MatrixServiceImpl) CreateScenario(ctx context.Context, in ScenarioInput) (model.PricingScenario, error) {
	sc := model.PricingScenario{TotalCost: decimal.Zero, TotalPrice: decimal.Zero, EffectiveMargin: decimal.Zero}
	if err := s.applyScenario(ctx, &sc, in, true); err != nil {
		return model.PricingScenario{}, err
	}
	if err := s.repo.CreateScenario(ctx, &sc); err != nil {
		return model.PricingScenario{}, err
	}
	return s.repo.GetScenario(ctx, sc.ID)
}

func (s *MatrixServiceImpl) UpdateScenario(ctx context.Context, id int64, in ScenarioInput) (model.PricingScenario, error) {
	sc, err := s.repo.GetScenario(ctx, id)
	if err != nil {
		return model.PricingScenario{}, err
	}
	if err := s.applyScenario(ctx, &sc, in, false); err != nil {
		return model.PricingScenario{}, err
	}
	if err := s.repo.UpdateScenario(ctx, &sc); err != nil {
		return model.PricingScenario{}, err
	}
	return s.repo.GetScenario(ctx, id)
}

func (s *MatrixServiceImpl) DeleteScenario(ctx context.Context, id int64) error {
	return s.repo.DeleteScenario(ctx, id)
}

// CalculateScenario prices the analysis's total direct cost with the
// scenario's matrix and params, and stores the result.
func (s *MatrixServiceImpl) CalculateScenario(ctx context.Context, id int64) (model.PricingScenario, error) {
	sc, err := s.repo.GetScenario(ctx, id)
	if err != nil {
		return model.PricingScenario{}, err
	}
	m, err := s.repo.Get(ctx, sc.CostMatrixID)
	if err != nil {
		return model.PricingScenario{}, err
	}
	a, err := s.analyses.Get(ctx, sc.AnalysisID)
	if err != nil {
		return model.PricingScenario{}, err
	}

	q := m.Pricer().Price(a.TotalDirectCost, sc.Params).Rounded()
	sc.TotalCost = q.BaseCost
	sc.TotalPrice = q.FinalPrice
	sc.EffectiveMargin = q.EffectiveMargin
	if err := s.repo.UpdateScenario(ctx, &sc); err != nil {
		return model.PricingScenario{}, err
	}
	return s.repo.GetScenario(ctx, id)
}
