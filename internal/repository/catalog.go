package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Simplici0/estimator/internal/model"
)

// CatalogRepository persists service categories, resource types and resources.
type CatalogRepository interface {
	ListCategories(ctx context.Context) ([]model.ServiceCategory, error)
	GetCategory(ctx context.Context, id int64) (model.ServiceCategory, error)
	CreateCategory(ctx context.Context, c *model.ServiceCategory) error
	UpdateCategory(ctx context.Context, c *model.ServiceCategory) error
	DeleteCategory(ctx context.Context, id int64) error

	ListResourceTypes(ctx context.Context) ([]model.ResourceType, error)
	GetResourceType(ctx context.Context, id int64) (model.ResourceType, error)
	GetResourceTypeByName(ctx context.Context, name string) (model.ResourceType, error)
	CreateResourceType(ctx context.Context, rt *model.ResourceType) error
	UpdateResourceType(ctx context.Context, rt *model.ResourceType) error
	DeleteResourceType(ctx context.Context, id int64) error

	ListResources(ctx context.Context, f model.ResourceFilter) ([]model.Resource, error)
	GetResource(ctx context.Context, id int64) (model.Resource, error)
	CreateResource(ctx context.Context, r *model.Resource) error
	UpdateResource(ctx context.Context, r *model.Resource) error
	DeleteResource(ctx context.Context, id int64) error
}

type SQLiteCatalogRepository struct {
	db *sql.DB
}

func NewSQLiteCatalogRepository(db *sql.DB) *SQLiteCatalogRepository {
	return &SQLiteCatalogRepository{db: db}
}

const categoryColumns = `id, code, name, description, is_active, created_at`

func scanCategory(row interface{ Scan(...any) error }) (model.ServiceCategory, error) {
	var c model.ServiceCategory
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Description, &c.IsActive, scanTime(&c.CreatedAt))
	return c, err
}

func (r *SQLiteCatalogRepository) ListCategories(ctx context.Context) ([]model.ServiceCategory, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM service_categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list service categories: %w", err)
	}
	defer rows.Close()

	out := []model.ServiceCategory{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteCatalogRepository) GetCategory(ctx context.Context, id int64) (model.ServiceCategory, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM service_categories WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.ServiceCategory{}, ErrNotFound
	}
	if err != nil {
		return model.ServiceCategory{}, fmt.Errorf("get service category: %w", err)
	}
	return c, nil
}

func (r *SQLiteCatalogRepository) CreateCategory(ctx context.Context, c *model.ServiceCategory) error {
	now := stamp()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO service_categories (code, name, description, is_active, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.Code, c.Name, c.Description, c.IsActive, now)
	if err != nil {
		return classify("create service category", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("read service category id: %w", err)
	}
	return scanTime(&c.CreatedAt).Scan(now)
}

func (r *SQLiteCatalogRepository) UpdateCategory(ctx context.Context, c *model.ServiceCategory) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE service_categories SET code = ?, name = ?, description = ?, is_active = ?
		WHERE id = ?
	`, c.Code, c.Name, c.Description, c.IsActive, c.ID)
	if err != nil {
		return classify("update service category", err)
	}
	return requireAffected(res, "update service category")
}

func (r *SQLiteCatalogRepository) DeleteCategory(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM service_categories WHERE id = ?`, id)
	if err != nil {
		return classify("delete service category", err)
	}
	return requireAffected(res, "delete service category")
}

const resourceTypeColumns = `id, name, description, overhead_percentage`

func scanResourceType(row interface{ Scan(...any) error }) (model.ResourceType, error) {
	var rt model.ResourceType
	err := row.Scan(&rt.ID, &rt.Name, &rt.Description, &rt.OverheadPercentage)
	return rt, err
}

func (r *SQLiteCatalogRepository) ListResourceTypes(ctx context.Context) ([]model.ResourceType, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+resourceTypeColumns+` FROM resource_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list resource types: %w", err)
	}
	defer rows.Close()

	out := []model.ResourceType{}
	for rows.Next() {
		rt, err := scanResourceType(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resource type: %w", err)
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

func (r *SQLiteCatalogRepository) getResourceType(ctx context.Context, where string, arg any) (model.ResourceType, error) {
	rt, err := scanResourceType(r.db.QueryRowContext(ctx, `SELECT `+resourceTypeColumns+` FROM resource_types WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return model.ResourceType{}, ErrNotFound
	}
	if err != nil {
		return model.ResourceType{}, fmt.Errorf("get resource type: %w", err)
	}
	return rt, nil
}

func (r *SQLiteCatalogRepository) GetResourceType(ctx context.Context, id int64) (model.ResourceType, error) {
	return r.getResourceType(ctx, `id = ?`, id)
}

func (r *SQLiteCatalogRepository) GetResourceTypeByName(ctx context.Context, name string) (model.ResourceType, error) {
	return r.getResourceType(ctx, `name = ?`, name)
}

func (r *SQLiteCatalogRepository) CreateResourceType(ctx context.Context, rt *model.ResourceType) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO resource_types (name, description, overhead_percentage) VALUES (?, ?, ?)
	`, rt.Name, rt.Description, rt.OverheadPercentage)
	if err != nil {
		return classify("create resource type", err)
	}
	if rt.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("read resource type id: %w", err)
	}
	return nil
}

func (r *SQLiteCatalogRepository) UpdateResourceType(ctx context.Context, rt *model.ResourceType) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE resource_types SET name = ?, description = ?, overhead_percentage = ? WHERE id = ?
	`, rt.Name, rt.Description, rt.OverheadPercentage, rt.ID)
	if err != nil {
		return classify("update resource type", err)
	}
	return requireAffected(res, "update resource type")
}

func (r *SQLiteCatalogRepository) DeleteResourceType(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM resource_types WHERE id = ?`, id)
	if err != nil {
		return classify("delete resource type", err)
	}
	return requireAffected(res, "delete resource type")
}

const resourceSelect = `
	SELECT r.id, r.code, r.name, r.resource_type_id, t.name, t.overhead_percentage,
		r.unit, r.unit_cost, r.description, r.supplier, r.is_active, r.created_at, r.updated_at
	FROM resources r
	JOIN resource_types t ON t.id = r.resource_type_id
`

func scanResource(row interface{ Scan(...any) error }) (model.Resource, error) {
	var res model.Resource
	err := row.Scan(
		&res.ID, &res.Code, &res.Name, &res.ResourceTypeID, &res.TypeName, &res.OverheadPercentage,
		&res.Unit, &res.UnitCost, &res.Description, &res.Supplier, &res.IsActive,
		scanTime(&res.CreatedAt), scanTime(&res.UpdatedAt),
	)
	return res, err
}

func (r *SQLiteCatalogRepository) ListResources(ctx context.Context, f model.ResourceFilter) ([]model.Resource, error) {
	var (
		where []string
		args  []any
	)
	if f.TypeName != "" {
		where = append(where, `t.name = ?`)
		args = append(args, f.TypeName)
	}
	if f.Active != nil {
		where = append(where, `r.is_active = ?`)
		args = append(args, *f.Active)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, `(r.name LIKE ? ESCAPE '\' OR r.code LIKE ? ESCAPE '\' OR r.description LIKE ? ESCAPE '\')`)
		p := likePattern(q)
		args = append(args, p, p, p)
	}

	query := resourceSelect
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY r.code`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	out := []model.Resource{}
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *SQLiteCatalogRepository) GetResource(ctx context.Context, id int64) (model.Resource, error) {
	res, err := scanResource(r.db.QueryRowContext(ctx, resourceSelect+` WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Resource{}, ErrNotFound
	}
	if err != nil {
		return model.Resource{}, fmt.Errorf("get resource: %w", err)
	}
	return res, nil
}

func (r *SQLiteCatalogRepository) CreateResource(ctx context.Context, res *model.Resource) error {
	now := stamp()
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO resources (code, name, resource_type_id, unit, unit_cost, description, supplier, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, res.Code, res.Name, res.ResourceTypeID, res.Unit, res.UnitCost, res.Description, res.Supplier, res.IsActive, now, now)
	if err != nil {
		return classify("create resource", err)
	}
	if res.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("read resource id: %w", err)
	}
	return nil
}

func (r *SQLiteCatalogRepository) UpdateResource(ctx context.Context, res *model.Resource) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE resources
		SET code = ?, name = ?, resource_type_id = ?, unit = ?, unit_cost = ?, description = ?,
			supplier = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`, res.Code, res.Name, res.ResourceTypeID, res.Unit, res.UnitCost, res.Description,
		res.Supplier, res.IsActive, stamp(), res.ID)
	if err != nil {
		return classify("update resource", err)
	}
	return requireAffected(result, "update resource")
}

func (r *SQLiteCatalogRepository) DeleteResource(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM resources WHERE id = ?`, id)
	if err != nil {
		return classify("delete resource", err)
	}
	return requireAffected(result, "delete resource")
}
