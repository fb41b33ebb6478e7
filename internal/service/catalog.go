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

var hundred = decimal.NewFromInt(100)

// CategoryInput is used for create and PATCH. Nil fields are left unchanged.
type CategoryInput struct {
	Code        *string `json:"code"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

// ResourceTypeInput creates or patches a resource type.
type ResourceTypeInput struct {
	Name               *string          `json:"name"`
	Description        *string          `json:"description"`
	OverheadPercentage *decimal.Decimal `json:"overhead_percentage"`
}

// ResourceInput selects the resource type either by id or by name.
type ResourceInput struct {
	Code           *string          `json:"code"`
	Name           *string          `json:"name"`
	ResourceTypeID *int64           `json:"resource_type_id"`
	ResourceType   *string          `json:"resource_type"`
	Unit           *string          `json:"unit"`
	UnitCost       *decimal.Decimal `json:"unit_cost"`
	Description    *string          `json:"description"`
	Supplier       *string          `json:"supplier"`
	IsActive       *bool            `json:"is_active"`
}

// CatalogService manages service categories, resource types and resources.
type CatalogService interface {
	ListCategories(ctx context.Context) ([]model.ServiceCategory, error)
	GetCategory(ctx context.Context, id int64) (model.ServiceCategory, error)
	CreateCategory(ctx context.Context, in CategoryInput) (model.ServiceCategory, error)
	UpdateCategory(ctx context.Context, id int64, in CategoryInput) (model.ServiceCategory, error)
	DeleteCategory(ctx context.Context, id int64) error

	ListResourceTypes(ctx context.Context) ([]model.ResourceType, error)
	GetResourceType(ctx context.Context, id int64) (model.ResourceType, error)
	CreateResourceType(ctx context.Context, in ResourceTypeInput) (model.ResourceType, error)
	UpdateResourceType(ctx context.Context, id int64, in ResourceTypeInput) (model.ResourceType, error)
	DeleteResourceType(ctx context.Context, id int64) error

	ListResources(ctx context.Context, f model.ResourceFilter) ([]model.Resource, error)
	GetResource(ctx context.Context, id int64) (model.Resource, error)
	CreateResource(ctx context.Context, in ResourceInput) (model.Resource, error)
	UpdateResource(ctx context.Context, id int64, in ResourceInput) (model.Resource, error)
	DeleteResource(ctx context.Context, id int64) error
}

// CatalogServiceImpl implements CatalogService.
type CatalogServiceImpl struct {
	repo repository.CatalogRepository
}

// NewCatalogService returns a CatalogService backed by repo.
func NewCatalogService(repo repository.CatalogRepository) *CatalogServiceImpl {
	return &CatalogServiceImpl{repo: repo}
}

func (s *CatalogServiceImpl) ListCategories(ctx context.Context) ([]model.ServiceCategory, error) {
	return s.repo.ListCategories(ctx)
}

func (s *CatalogServiceImpl) GetCategory(ctx context.Context, id int64) (model.ServiceCategory, error) {
	return s.repo.GetCategory(ctx, id)
}

func applyCategory(c *model.ServiceCategory, in CategoryInput) error {
	v := &ValidationError{}
	if in.Code != nil {
		c.Code = strings.TrimSpace(*in.Code)
	}
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if c.Code == "" {
		v.Add("code", "is required")
	}
	if c.Name == "" {
		v.Add("name", "is required")
	}
	return v.Err()
}

func (s *CatalogServiceImpl) CreateCategory(ctx context.Context, in CategoryInput) (model.ServiceCategory, error) {
	c := model.ServiceCategory{IsActive: true}
	if err := applyCategory(&c, in); err != nil {
		return model.ServiceCategory{}, err
	}
	if err := s.repo.CreateCategory(ctx, &c); err != nil {
		return model.ServiceCategory{}, duplicateAs(err, "code", "already exists")
	}
	return s.repo.GetCategory(ctx, c.ID)
}

func (s *CatalogServiceImpl) UpdateCategory(ctx context.Context, id int64, in CategoryInput) (model.ServiceCategory, error) {
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return model.ServiceCategory{}, err
	}
	if err := applyCategory(&c, in); err != nil {
		return model.ServiceCategory{}, err
	}
	if err := s.repo.UpdateCategory(ctx, &c); err != nil {
		return model.ServiceCategory{}, duplicateAs(err, "code", "already exists")
	}
	return s.repo.GetCategory(ctx, id)
}

func (s *CatalogServiceImpl) DeleteCategory(ctx context.Context, id int64) error {
	return s.repo.DeleteCategory(ctx, id)
}

func (s *CatalogServiceImpl) ListResourceTypes(ctx context.Context) ([]model.ResourceType, error) {
	return s.repo.ListResourceTypes(ctx)
}

func (s *CatalogServiceImpl) GetResourceType(ctx context.Context, id int64) (model.ResourceType, error) {
	return s.repo.GetResourceType(ctx, id)
}

func applyResourceType(rt *model.ResourceType, in ResourceTypeInput) error {
	v := &ValidationError{}
	if in.Name != nil {
		rt.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		rt.Description = *in.Description
	}
	if in.OverheadPercentage != nil {
		rt.OverheadPercentage = *in.OverheadPercentage
	}
	if !model.ValidResourceType(rt.Name) {
		v.Add("name", "must be one of "+strings.Join(model.ResourceTypeNames, ", "))
	}
	if rt.OverheadPercentage.IsNegative() || rt.OverheadPercentage.GreaterThan(hundred) {
		v.Add("overhead_percentage", "must be between 0 and 100")
	}
	return v.Err()
}

func (s *CatalogServiceImpl) CreateResourceType(ctx context.Context, in ResourceTypeInput) (model.ResourceType, error) {
	var rt model.ResourceType
	if err := applyResourceType(&rt, in); err != nil {
		return model.ResourceType{}, err
	}
	if err := s.repo.CreateResourceType(ctx, &rt); err != nil {
		return model.ResourceType{}, duplicateAs(err, "name", "already exists")
	}
	return rt, nil
}

func (s *CatalogServiceImpl) UpdateResourceType(ctx context.Context, id int64, in ResourceTypeInput) (model.ResourceType, error) {
	rt, err := s.repo.GetResourceType(ctx, id)
	if err != nil {
		return model.ResourceType{}, err
	}
	if err := applyResourceType(&rt, in); err != nil {
		return model.ResourceType{}, err
	}
	if err := s.repo.UpdateResourceType(ctx, &rt); err != nil {
		return model.ResourceType{}, duplicateAs(err, "name", "already exists")
	}
	return rt, nil
}

func (s *CatalogServiceImpl) DeleteResourceType(ctx context.Context, id int64) error {
	return s.repo.DeleteResourceType(ctx, id)
}

// withOverhead fills the derived cost of r.
func withOverhead(r model.Resource) model.Resource {
	r.CostWithOverhead = pricing.CostWithOverhead(r.UnitCost, r.OverheadPercentage).Round(2)
	return r
}

func (s *CatalogServiceImpl) ListResources(ctx context.Context, f model.ResourceFilter) ([]model.Resource, error) {
	out, err := s.repo.ListResources(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i] = withOverhead(out[i])
	}
	return out, nil
}

func (s *CatalogServiceImpl) GetResource(ctx context.Context, id int64) (model.Resource, error) {
	r, err := s.repo.GetResource(ctx, id)
	if err != nil {
		return model.Resource{}, err
	}
	return withOverhead(r), nil
}

func (s *CatalogServiceImpl) applyResource(ctx context.Context, r *model.Resource, in ResourceInput) error {
	v := &ValidationError{}
	if in.Code != nil {
		r.Code = strings.TrimSpace(*in.Code)
	}
	if in.Name != nil {
		r.Name = strings.TrimSpace(*in.Name)
	}
	if in.Unit != nil {
		r.Unit = strings.TrimSpace(*in.Unit)
	}
	if in.UnitCost != nil {
		r.UnitCost = *in.UnitCost
	}
	if in.Description != nil {
		r.Description = *in.Description
	}
	if in.Supplier != nil {
		r.Supplier = *in.Supplier
	}
	if in.IsActive != nil {
		r.IsActive = *in.IsActive
	}

	switch {
	case in.ResourceTypeID != nil:
		rt, err := s.repo.GetResourceType(ctx, *in.ResourceTypeID)
		if errors.Is(err, repository.ErrNotFound) {
			v.Add("resource_type_id", "unknown resource type")
		} else if err != nil {
			return err
		} else {
			r.ResourceTypeID = rt.ID
		}
	case in.ResourceType != nil:
		rt, err := s.repo.GetResourceTypeByName(ctx, *in.ResourceType)
		if errors.Is(err, repository.ErrNotFound) {
			v.Add("resource_type", "unknown resource type")
		} else if err != nil {
			return err
		} else {
			r.ResourceTypeID = rt.ID
		}
	}

	if r.Code == "" {
		v.Add("code", "is required")
	}
	if r.Name == "" {
		v.Add("name", "is required")
	}
	if r.Unit == "" {
		v.Add("unit", "is required")
	}
	if !r.UnitCost.IsPositive() {
		v.Add("unit_cost", "must be greater than 0")
	}
	if r.ResourceTypeID == 0 && v.Fields["resource_type_id"] == nil && v.Fields["resource_type"] == nil {
		v.Add("resource_type_id", "is required")
	}
	return v.Err()
}

func (s *CatalogServiceImpl) CreateResource(ctx context.Context, in ResourceInput) (model.Resource, error) {
	r := model.Resource{IsActive: true}
	if err := s.applyResource(ctx, &r, in); err != nil {
		return model.Resource{}, err
	}
	if err := s.repo.CreateResource(ctx, &r); err != nil {
		return model.Resource{}, duplicateAs(err, "code", "already exists")
	}
	return s.GetResource(ctx, r.ID)
}

func (s *CatalogServiceImpl) UpdateResource(ctx context.Context, id int64, in ResourceInput) (model.Resource, error) {
	r, err := s.repo.GetResource(ctx, id)
	if err != nil {
		return model.Resource{}, err
	}
	if err := s.applyResource(ctx, &r, in); err != nil {
		return model.Resource{}, err
	}
	if err := s.repo.UpdateResource(ctx, &r); err != nil {
		return model.Resource{}, duplicateAs(err, "code", "already exists")
	}
	return s.GetResource(ctx, id)
}

func (s *CatalogServiceImpl) DeleteResource(ctx context.Context, id int64) error {
	return s.repo.DeleteResource(ctx, id)
}
