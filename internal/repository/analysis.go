package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Simplici0/estimator/internal/model"
)

// AnalysisRepository persists unit-price analyses and their items.
type AnalysisRepository interface {
	List(ctx context.Context, f model.AnalysisFilter) ([]model.UnitPriceAnalysis, error)
	Get(ctx context.Context, id int64) (model.UnitPriceAnalysis, error)
	Create(ctx context.Context, a *model.UnitPriceAnalysis) error
	Update(ctx context.Context, a *model.UnitPriceAnalysis) error
	Delete(ctx context.Context, id int64) error
	CodeExists(ctx context.Context, code string) (bool, error)

	ListItems(ctx context.Context, analysisIDs ...int64) ([]model.UnitPriceItem, error)
	GetItem(ctx context.Context, id int64) (model.UnitPriceItem, error)
	AddItem(ctx context.Context, item *model.UnitPriceItem) error
	UpdateItem(ctx context.Context, item *model.UnitPriceItem) error
	DeleteItem(ctx context.Context, id int64) error

	// Duplicate copies the analysis src and all its items under a new code
	// in one transaction and returns the new analysis id.
	Duplicate(ctx context.Context, src int64, code, name string) (int64, error)
}

type SQLiteAnalysisRepository struct {
	db *sql.DB
}

func NewSQLiteAnalysisRepository(db *sql.DB) *SQLiteAnalysisRepository {
	return &SQLiteAnalysisRepository{db: db}
}

const analysisSelect = `
	SELECT a.id, a.code, a.name, a.category_id, c.name, a.description, a.unit,
		a.performance_factor, a.difficulty_factor, a.profit_margin, a.administrative_percentage,
		a.is_active, a.version, a.created_at, a.updated_at
	FROM unit_price_analyses a
	JOIN service_categories c ON c.id = a.category_id
`

func scanAnalysis(row interface{ Scan(...any) error }) (model.UnitPriceAnalysis, error) {
	var a model.UnitPriceAnalysis
	err := row.Scan(
		&a.ID, &a.Code, &a.Name, &a.CategoryID, &a.CategoryName, &a.Description, &a.Unit,
		&a.PerformanceFactor, &a.DifficultyFactor, &a.ProfitMargin, &a.AdministrativePercentage,
		&a.IsActive, &a.Version, scanTime(&a.CreatedAt), scanTime(&a.UpdatedAt),
	)
	return a, err
}

func (r *SQLiteAnalysisRepository) List(ctx context.Context, f model.AnalysisFilter) ([]model.UnitPriceAnalysis, error) {
	var (
		where []string
		args  []any
	)
	if f.CategoryID != 0 {
		where = append(where, `a.category_id = ?`)
		args = append(args, f.CategoryID)
	}
	if f.Active != nil {
		where = append(where, `a.is_active = ?`)
		args = append(args, *f.Active)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, `(a.name LIKE ? ESCAPE '\' OR a.code LIKE ? ESCAPE '\')`)
		p := likePattern(q)
		args = append(args, p, p)
	}

	query := analysisSelect
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY a.code`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list unit price analyses: %w", err)
	}
	defer rows.Close()

	out := []model.UnitPriceAnalysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unit price analysis: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteAnalysisRepository) Get(ctx context.Context, id int64) (model.UnitPriceAnalysis, error) {
	a, err := scanAnalysis(r.db.QueryRowContext(ctx, analysisSelect+` WHERE a.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.UnitPriceAnalysis{}, ErrNotFound
	}
	if err != nil {
		return model.UnitPriceAnalysis{}, fmt.Errorf("get unit price analysis: %w", err)
	}
	return a, nil
}

func (r *SQLiteAnalysisRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM unit_price_analyses WHERE code = ?)`, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("check analysis code: %w", err)
	}
	return exists, nil
}

func (r *SQLiteAnalysisRepository) Create(ctx context.Context, a *model.UnitPriceAnalysis) error {
	id, err := insertAnalysis(ctx, r.db, a)
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

func insertAnalysis(ctx context.Context, q DBTX, a *model.UnitPriceAnalysis) (int64, error) {
	now := stamp()
	res, err := q.ExecContext(ctx, `
		INSERT INTO unit_price_analyses (
			code, name, category_id, description, unit, performance_factor, difficulty_factor,
			profit_margin, administrative_percentage, is_active, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.Code, a.Name, a.CategoryID, a.Description, a.Unit, a.PerformanceFactor, a.DifficultyFactor,
		a.ProfitMargin, a.AdministrativePercentage, a.IsActive, a.Version, now, now)
	if err != nil {
		return 0, classify("create unit price analysis", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read unit price analysis id: %w", err)
	}
	return id, nil
}

func (r *SQLiteAnalysisRepository) Update(ctx context.Context, a *model.UnitPriceAnalysis) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE unit_price_analyses
		SET code = ?, name = ?, category_id = ?, description = ?, unit = ?, performance_factor = ?,
			difficulty_factor = ?, profit_margin = ?, administrative_percentage = ?, is_active = ?,
			version = ?, updated_at = ?
		WHERE id = ?
	`, a.Code, a.Name, a.CategoryID, a.Description, a.Unit, a.PerformanceFactor,
		a.DifficultyFactor, a.ProfitMargin, a.AdministrativePercentage, a.IsActive,
		a.Version, stamp(), a.ID)
	if err != nil {
		return classify("update unit price analysis", err)
	}
	return requireAffected(res, "update unit price analysis")
}

func (r *SQLiteAnalysisRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM unit_price_analyses WHERE id = ?`, id)
	if err != nil {
		return classify("delete unit price analysis", err)
	}
	return requireAffected(res, "delete unit price analysis")
}

const itemSelect = `
	SELECT i.id, i.analysis_id, i.resource_id, r.code, r.name, t.name, r.unit,
		i.quantity, i.unit_cost, i.efficiency, i.notes
	FROM unit_price_items i
	JOIN resources r ON r.id = i.resource_id
	JOIN resource_types t ON t.id = r.resource_type_id
`

func scanItem(row interface{ Scan(...any) error }) (model.UnitPriceItem, error) {
	var it model.UnitPriceItem
	err := row.Scan(
		&it.ID, &it.AnalysisID, &it.ResourceID, &it.ResourceCode, &it.ResourceName, &it.ResourceType, &it.Unit,
		&it.Quantity, &it.UnitCost, &it.Efficiency, &it.Notes,
	)
	return it, err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// ListItems returns the items of the given analyses ordered by analysis and id.
func (r *SQLiteAnalysisRepository) ListItems(ctx context.Context, analysisIDs ...int64) ([]model.UnitPriceItem, error) {
	out := []model.UnitPriceItem{}
	if len(analysisIDs) == 0 {
		return out, nil
	}
	args := make([]any, len(analysisIDs))
	for i, id := range analysisIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		itemSelect+` WHERE i.analysis_id IN (`+placeholders(len(args))+`) ORDER BY i.analysis_id, i.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list unit price items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unit price item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *SQLiteAnalysisRepository) GetItem(ctx context.Context, id int64) (model.UnitPriceItem, error) {
	it, err := scanItem(r.db.QueryRowContext(ctx, itemSelect+` WHERE i.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.UnitPriceItem{}, ErrNotFound
	}
	if err != nil {
		return model.UnitPriceItem{}, fmt.Errorf("get unit price item: %w", err)
	}
	return it, nil
}

func (r *SQLiteAnalysisRepository) AddItem(ctx context.Context, it *model.UnitPriceItem) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO unit_price_items (analysis_id, resource_id, quantity, unit_cost, efficiency, notes)
		VALUES (?, ?, ?, ?, ?, ?)
	`, it.AnalysisID, it.ResourceID, it.Quantity, it.UnitCost, it.Efficiency, it.Notes)
	if err != nil {
		return classify("add unit price item", err)
	}
	if it.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("read unit price item id: %w", err)
	}
	return r.touch(ctx, it.AnalysisID)
}

func (r *SQLiteAnalysisRepository) UpdateItem(ctx context.Context, it *model.UnitPriceItem) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE unit_price_items SET quantity = ?, unit_cost = ?, efficiency = ?, notes = ? WHERE id = ?
	`, it.Quantity, it.UnitCost, it.Efficiency, it.Notes, it.ID)
	if err != nil {
		return classify("update unit price item", err)
	}
	if err := requireAffected(res, "update unit price item"); err != nil {
		return err
	}
	return r.touch(ctx, it.AnalysisID)
}

func (r *SQLiteAnalysisRepository) DeleteItem(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM unit_price_items WHERE id = ?`, id)
	if err != nil {
		return classify("delete unit price item", err)
	}
	return requireAffected(res, "delete unit price item")
}

func (r *SQLiteAnalysisRepository) touch(ctx context.Context, analysisID int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE unit_price_analyses SET updated_at = ? WHERE id = ?`, stamp(), analysisID); err != nil {
		return fmt.Errorf("touch unit price analysis: %w", err)
	}
	return nil
}

func (r *SQLiteAnalysisRepository) Duplicate(ctx context.Context, src int64, code, name string) (int64, error) {
	var newID int64
	err := WithTx(ctx, r.db, func(tx *sql.Tx) error {
		now := stamp()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO unit_price_analyses (
				code, name, category_id, description, unit, performance_factor, difficulty_factor,
				profit_margin, administrative_percentage, is_active, version, created_at, updated_at
			)
			SELECT ?, ?, category_id, description, unit, performance_factor, difficulty_factor,
				profit_margin, administrative_percentage, is_active, version, ?, ?
			FROM unit_price_analyses WHERE id = ?
		`, code, name, now, now, src)
		if err != nil {
			return classify("copy unit price analysis", err)
		}
		if err := requireAffected(res, "copy unit price analysis"); err != nil {
			return err
		}
		if newID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("read copied analysis id: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO unit_price_items (analysis_id, resource_id, quantity, unit_cost, efficiency, notes)
			SELECT ?, resource_id, quantity, unit_cost, efficiency, notes
			FROM unit_price_items WHERE analysis_id = ? ORDER BY id
		`, newID, src); err != nil {
			return classify("copy unit price items", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newID, nil
}
