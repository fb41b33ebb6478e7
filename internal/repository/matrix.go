package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Simplici0/estimator/internal/costmatrix"
	"github.com/Simplici0/estimator/internal/model"
)

// MatrixRepository persists cost matrices and pricing scenarios.
type MatrixRepository interface {
	List(ctx context.Context, activeOnly bool) ([]model.CostMatrix, error)
	Get(ctx context.Context, id int64) (model.CostMatrix, error)
	GetDefault(ctx context.Context) (model.CostMatrix, error)
	// Create and Update clear the default flag of every other matrix when
	// m.IsDefault is set, in the same transaction.
	Create(ctx context.Context, m *model.CostMatrix) error
	Update(ctx context.Context, m *model.CostMatrix) error
	Delete(ctx context.Context, id int64) error

	ListScenarios(ctx context.Context, matrixID int64) ([]model.PricingScenario, error)
	GetScenario(ctx context.Context, id int64) (model.PricingScenario, error)
	CreateScenario(ctx context.Context, s *model.PricingScenario) error
	UpdateScenario(ctx context.Context, s *model.PricingScenario) error
	DeleteScenario(ctx context.Context, id int64) error
}

type SQLiteMatrixRepository struct {
	db *sql.DB
}

func NewSQLiteMatrixRepository(db *sql.DB) *SQLiteMatrixRepository {
	return &SQLiteMatrixRepository{db: db}
}

const matrixColumns = `
	id, name, matrix_type, description, base_margin, administrative_overhead, config,
	effective_date, expiry_date, is_active, is_default, version, created_at, updated_at
`

type jsonColumn struct {
	dst any
}

// scanJSON decodes a JSON text column into dst.
func scanJSON(dst any) sql.Scanner {
	return jsonColumn{dst: dst}
}

func (c jsonColumn) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("scan json: unsupported type %T", src)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, c.dst); err != nil {
		return fmt.Errorf("decode json column: %w", err)
	}
	return nil
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json column: %w", err)
	}
	return string(b), nil
}

func scanMatrix(row interface{ Scan(...any) error }) (model.CostMatrix, error) {
	var (
		m   model.CostMatrix
		cfg costmatrix.Config
	)
	err := row.Scan(
		&m.ID, &m.Name, &m.MatrixType, &m.Description, &m.BaseMargin, &m.AdministrativeOverhead, scanJSON(&cfg),
		&m.EffectiveDate, &m.ExpiryDate, &m.IsActive, &m.IsDefault, &m.Version,
		scanTime(&m.CreatedAt), scanTime(&m.UpdatedAt),
	)
	m.Config = cfg.WithDefaults()
	return m, err
}

func (r *SQLiteMatrixRepository) List(ctx context.Context, activeOnly bool) ([]model.CostMatrix, error) {
	query := `SELECT ` + matrixColumns + ` FROM cost_matrices`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY is_default DESC, name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list cost matrices: %w", err)
	}
	defer rows.Close()

	out := []model.CostMatrix{}
	for rows.Next() {
		m, err := scanMatrix(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cost matrix: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *SQLiteMatrixRepository) getWhere(ctx context.Context, where string, args ...any) (model.CostMatrix, error) {
	m, err := scanMatrix(r.db.QueryRowContext(ctx, `SELECT `+matrixColumns+` FROM cost_matrices WHERE `+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.CostMatrix{}, ErrNotFound
	}
	if err != nil {
		return model.CostMatrix{}, fmt.Errorf("get cost matrix: %w", err)
	}
	return m, nil
}

func (r *SQLiteMatrixRepository) Get(ctx context.Context, id int64) (model.CostMatrix, error) {
	return r.getWhere(ctx, `id = ?`, id)
}

func (r *SQLiteMatrixRepository) GetDefault(ctx context.Context) (model.CostMatrix, error) {
	return r.getWhere(ctx, `is_default = 1`)
}

func clearDefault(ctx context.Context, tx *sql.Tx, except int64) error {
	if _, err := tx.ExecContext(ctx, `UPDATE cost_matrices SET is_default = 0 WHERE is_default = 1 AND id != ?`, except); err != nil {
		return fmt.Errorf("clear default cost matrix: %w", err)
	}
	return nil
}

func (r *SQLiteMatrixRepository) Create(ctx context.Context, m *model.CostMatrix) error {
	cfg, err := encodeJSON(m.Config)
	if err != nil {
		return err
	}
	return WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if m.IsDefault {
			if err := clearDefault(ctx, tx, 0); err != nil {
				return err
			}
		}
		now := stamp()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO cost_matrices (
				name, matrix_type, description, base_margin, administrative_overhead, config,
				effective_date, expiry_date, is_active, is_default, version, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, m.Name, m.MatrixType, m.Description, m.BaseMargin, m.AdministrativeOverhead, cfg,
			m.EffectiveDate, m.ExpiryDate, m.IsActive, m.IsDefault, m.Version, now, now)
		if err != nil {
			return classify("create cost matrix", err)
		}
		if m.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("read cost matrix id: %w", err)
		}
		return nil
	})
}

func (r *SQLiteMatrixRepository) Update(ctx context.Context, m *model.CostMatrix) error {
	cfg, err := encodeJSON(m.Config)
	if err != nil {
		return err
	}
	return WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if m.IsDefault {
			if err := clearDefault(ctx, tx, m.ID); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE cost_matrices
			SET name = ?, matrix_type = ?, description = ?, base_margin = ?, administrative_overhead = ?,
				config = ?, effective_date = ?, expiry_date = ?, is_active = ?, is_default = ?, version = ?,
				updated_at = ?
			WHERE id = ?
		`, m.Name, m.MatrixType, m.Description, m.BaseMargin, m.AdministrativeOverhead,
			cfg, m.EffectiveDate, m.ExpiryDate, m.IsActive, m.IsDefault, m.Version,
			stamp(), m.ID)
		if err != nil {
			return classify("update cost matrix", err)
		}
		return requireAffected(res, "update cost matrix")
	})
}

func (r *SQLiteMatrixRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cost_matrices WHERE id = ?`, id)
	if err != nil {
		return classify("delete cost matrix", err)
	}
	return requireAffected(res, "delete cost matrix")
}

const scenarioColumns = `
	id, name, description, cost_matrix_id, analysis_id, params,
	total_cost, total_price, effective_margin, created_at, updated_at
`

func scanScenario(row interface{ Scan(...any) error }) (model.PricingScenario, error) {
	var s model.PricingScenario
	err := row.Scan(
		&s.ID, &s.Name, &s.Description, &s.CostMatrixID, &s.AnalysisID, scanJSON(&s.Params),
		&s.TotalCost, &s.TotalPrice, &s.EffectiveMargin, scanTime(&s.CreatedAt), scanTime(&s.UpdatedAt),
	)
	return s, err
}

func (r *SQLiteMatrixRepository) ListScenarios(ctx context.Context, matrixID int64) ([]model.PricingScenario, error) {
	query := `SELECT ` + scenarioColumns + ` FROM pricing_scenarios`
	var args []any
	if matrixID != 0 {
		query += ` WHERE cost_matrix_id = ?`
		args = append(args, matrixID)
	}
	query += ` ORDER BY id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pricing scenarios: %w", err)
	}
	defer rows.Close()

	out := []model.PricingScenario{}
	for rows.Next() {
		s, err := scanScenario(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pricing scenario: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteMatrixRepository) GetScenario(ctx context.Context, id int64) (model.PricingScenario, error) {
	s, err := scanScenario(r.db.QueryRowContext(ctx, `SELECT `+scenarioColumns+` FROM pricing_scenarios WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.PricingScenario{}, ErrNotFound
	}
	if err != nil {
		return model.PricingScenario{}, fmt.Errorf("get pricing scenario: %w", err)
	}
	return s, nil
}

func (r *SQLiteMatrixRepository) CreateScenario(ctx context.Context, s *model.PricingScenario) error {
	params, err := encodeJSON(s.Params)
	if err != nil {
		return err
	}
	now := stamp()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO pricing_scenarios (
			name, description, cost_matrix_id, analysis_id, params,
			total_cost, total_price, effective_margin, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.Name, s.Description, s.CostMatrixID, s.AnalysisID, params,
		s.TotalCost, s.TotalPrice, s.EffectiveMargin, now, now)
	if err != nil {
		return classify("create pricing scenario", err)
	}
	if s.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("read pricing scenario id: %w", err)
	}
	return nil
}

func (r *SQLiteMatrixRepository) UpdateScenario(ctx context.Context, s *model.PricingScenario) error {
	params, err := encodeJSON(s.Params)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE pricing_scenarios
		SET name = ?, description = ?, params = ?, total_cost = ?, total_price = ?, effective_margin = ?, updated_at = ?
		WHERE id = ?
	`, s.Name, s.Description, params, s.TotalCost, s.TotalPrice, s.EffectiveMargin, stamp(), s.ID)
	if err != nil {
		return classify("update pricing scenario", err)
	}
	return requireAffected(res, "update pricing scenario")
}

func (r *SQLiteMatrixRepository) DeleteScenario(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pricing_scenarios WHERE id = ?`, id)
	if err != nil {
		return classify("delete pricing scenario", err)
	}
	return requireAffected(res, "delete pricing scenario")
}
