package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Simplici0/estimator/internal/model"
)

// EstimateRepository persists project estimates and their items.
type EstimateRepository interface {
	List(ctx context.Context, f model.EstimateFilter) ([]model.ProjectEstimate, error)
	Get(ctx context.Context, id int64) (model.ProjectEstimate, error)
	Create(ctx context.Context, e *model.ProjectEstimate) error
	Update(ctx context.Context, e *model.ProjectEstimate) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	Delete(ctx context.Context, id int64) error

	ListItems(ctx context.Context, estimateIDs ...int64) ([]model.ProjectEstimateItem, error)
	GetItem(ctx context.Context, id int64) (model.ProjectEstimateItem, error)
	AddItem(ctx context.Context, item *model.ProjectEstimateItem) error
	UpdateItem(ctx context.Context, item *model.ProjectEstimateItem) error
	DeleteItem(ctx context.Context, id int64) error
}

type SQLiteEstimateRepository struct {
	db *sql.DB
}

func NewSQLiteEstimateRepository(db *sql.DB) *SQLiteEstimateRepository {
	return &SQLiteEstimateRepository{db: db}
}

const estimateColumns = `
	id, name, client, description, location, estimate_date, validity_days,
	site_factor, season_factor, status, created_at, updated_at
`

func scanEstimate(row interface{ Scan(...any) error }) (model.ProjectEstimate, error) {
	var e model.ProjectEstimate
	err := row.Scan(
		&e.ID, &e.Name, &e.Client, &e.Description, &e.Location, &e.EstimateDate, &e.ValidityDays,
		&e.SiteFactor, &e.SeasonFactor, &e.Status, scanTime(&e.CreatedAt), scanTime(&e.UpdatedAt),
	)
	return e, err
}

func (r *SQLiteEstimateRepository) List(ctx context.Context, f model.EstimateFilter) ([]model.ProjectEstimate, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, `status = ?`)
		args = append(args, f.Status)
	}
	if f.Client != "" {
		where = append(where, `client LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(f.Client))
	}
	if f.From != nil {
		where = append(where, `estimate_date >= ?`)
		args = append(args, *f.From)
	}
	if f.To != nil {
		where = append(where, `estimate_date <= ?`)
		args = append(args, *f.To)
	}

	query := `SELECT ` + estimateColumns + ` FROM project_estimates`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY estimate_date DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list project estimates: %w", err)
	}
	defer rows.Close()

	out := []model.ProjectEstimate{}
	for rows.Next() {
		e, err := scanEstimate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project estimate: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteEstimateRepository) Get(ctx context.Context, id int64) (model.ProjectEstimate, error) {
	e, err := scanEstimate(r.db.QueryRowContext(ctx, `SELECT `+estimateColumns+` FROM project_estimates WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.ProjectEstimate{}, ErrNotFound
	}
	if err != nil {
		return model.ProjectEstimate{}, fmt.Errorf("get project estimate: %w", err)
	}
	return e, nil
}

func (r *SQLiteEstimateRepository) Create(ctx context.Context, e *model.ProjectEstimate) error {
	now := stamp()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO project_estimates (
			name, client, description, location, estimate_date, validity_days,
			site_factor, season_factor, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.Name, e.Client, e.Description, e.Location, e.EstimateDate, e.ValidityDays,
		e.SiteFactor, e.SeasonFactor, e.Status, now, now)
	if err != nil {
		return classify("create project estimate", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("read project estimate id: %w", err)
	}
	return nil
}

func (r *SQLiteEstimateRepository) Update(ctx context.Context, e *model.ProjectEstimate) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE project_estimates
		SET name = ?, client = ?, description = ?, location = ?, estimate_date = ?, validity_days = ?,
			site_factor = ?, season_factor = ?, status = ?, updated_at = ?
		WHERE id = ?
	`, e.Name, e.Client, e.Description, e.Location, e.EstimateDate, e.ValidityDays,
		e.SiteFactor, e.SeasonFactor, e.Status, stamp(), e.ID)
	if err != nil {
		return classify("update project estimate", err)
	}
	return requireAffected(res, "update project estimate")
}

func (r *SQLiteEstimateRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE project_estimates SET status = ?, updated_at = ? WHERE id = ?`, status, stamp(), id)
	if err != nil {
		return classify("update project estimate status", err)
	}
	return requireAffected(res, "update project estimate status")
}

func (r *SQLiteEstimateRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM project_estimates WHERE id = ?`, id)
	if err != nil {
		return classify("delete project estimate", err)
	}
	return requireAffected(res, "delete project estimate")
}

const estimateItemSelect = `
	SELECT i.id, i.estimate_id, i.analysis_id, a.code, a.name, c.name, a.unit,
		i.quantity, i.unit_price, i.description
	FROM project_estimate_items i
	JOIN unit_price_analyses a ON a.id = i.analysis_id
	JOIN service_categories c ON c.id = a.category_id
`

func scanEstimateItem(row interface{ Scan(...any) error }) (model.ProjectEstimateItem, error) {
	var it model.ProjectEstimateItem
	err := row.Scan(
		&it.ID, &it.EstimateID, &it.AnalysisID, &it.AnalysisCode, &it.AnalysisName, &it.CategoryName, &it.Unit,
		&it.Quantity, &it.UnitPrice, &it.Description,
	)
	return it, err
}

func (r *SQLiteEstimateRepository) ListItems(ctx context.Context, estimateIDs ...int64) ([]model.ProjectEstimateItem, error) {
	out := []model.ProjectEstimateItem{}
	if len(estimateIDs) == 0 {
		return out, nil
	}
	args := make([]any, len(estimateIDs))
	for i, id := range estimateIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		estimateItemSelect+` WHERE i.estimate_id IN (`+placeholders(len(args))+`) ORDER BY i.estimate_id, c.name, i.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list project estimate items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		it, err := scanEstimateItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project estimate item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *SQLiteEstimateRepository) GetItem(ctx context.Context, id int64) (model.ProjectEstimateItem, error) {
	it, err := scanEstimateItem(r.db.QueryRowContext(ctx, estimateItemSelect+` WHERE i.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.ProjectEstimateItem{}, ErrNotFound
	}
	if err != nil {
		return model.ProjectEstimateItem{}, fmt.Errorf("get project estimate item: %w", err)
	}
	return it, nil
}

func (r *SQLiteEstimateRepository) AddItem(ctx context.Context, it *model.ProjectEstimateItem) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO project_estimate_items (estimate_id, analysis_id, quantity, unit_price, description)
		VALUES (?, ?, ?, ?, ?)
	`, it.EstimateID, it.AnalysisID, it.Quantity, it.UnitPrice, it.Description)
	if err != nil {
		return classify("add project estimate item", err)
	}
	if it.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("read project estimate item id: %w", err)
	}
	return nil
}

func (r *SQLiteEstimateRepository) UpdateItem(ctx context.Context, it *model.ProjectEstimateItem) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE project_estimate_items SET quantity = ?, unit_price = ?, description = ? WHERE id = ?
	`, it.Quantity, it.UnitPrice, it.Description, it.ID)
	if err != nil {
		return classify("update project estimate item", err)
	}
	return requireAffected(res, "update project estimate item")
}

func (r *SQLiteEstimateRepository) DeleteItem(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM project_estimate_items WHERE id = ?`, id)
	if err != nil {
		return classify("delete project estimate item", err)
	}
	return requireAffected(res, "delete project estimate item")
}
