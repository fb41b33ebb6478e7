package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/estimator/internal/model"
)

// AssetRepository persists asset categories, assets, posted depreciation and
// maintenance history.
type AssetRepository interface {
	ListCategories(ctx context.Context) ([]model.AssetCategory, error)
	GetCategory(ctx context.Context, id int64) (model.AssetCategory, error)
	CreateCategory(ctx context.Context, c *model.AssetCategory) error
	UpdateCategory(ctx context.Context, c *model.AssetCategory) error
	DeleteCategory(ctx context.Context, id int64) error

	List(ctx context.Context, f model.AssetFilter) ([]model.Asset, error)
	Get(ctx context.Context, id int64) (model.Asset, error)
	Create(ctx context.Context, a *model.Asset) error
	Update(ctx context.Context, a *model.Asset) error
	Delete(ctx context.Context, id int64) error

	ListEntries(ctx context.Context, assetID int64) ([]model.DepreciationEntry, error)
	CreateEntry(ctx context.Context, e *model.DepreciationEntry) error

	ListMaintenance(ctx context.Context, assetID int64) ([]model.MaintenanceRecord, error)
	// CreateMaintenance stores rec and rolls its date, next due date and cost
	// into the asset in the same transaction.
	CreateMaintenance(ctx context.Context, rec *model.MaintenanceRecord) error
}

type SQLiteAssetRepository struct {
	db *sql.DB
}

func NewSQLiteAssetRepository(db *sql.DB) *SQLiteAssetRepository {
	return &SQLiteAssetRepository{db: db}
}

const assetCategoryColumns = `id, name, description, default_useful_life, default_depreciation_method, is_active, created_at`

func scanAssetCategory(row interface{ Scan(...any) error }) (model.AssetCategory, error) {
	var c model.AssetCategory
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.DefaultUsefulLife, &c.DefaultDepreciationMethod, &c.IsActive, scanTime(&c.CreatedAt))
	return c, err
}

func (r *SQLiteAssetRepository) ListCategories(ctx context.Context) ([]model.AssetCategory, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+assetCategoryColumns+` FROM asset_categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list asset categories: %w", err)
	}
	defer rows.Close()

	out := []model.AssetCategory{}
	for rows.Next() {
		c, err := scanAssetCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteAssetRepository) GetCategory(ctx context.Context, id int64) (model.AssetCategory, error) {
	c, err := scanAssetCategory(r.db.QueryRowContext(ctx, `SELECT `+assetCategoryColumns+` FROM asset_categories WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.AssetCategory{}, ErrNotFound
	}
	if err != nil {
		return model.AssetCategory{}, fmt.Errorf("get asset category: %w", err)
	}
	return c, nil
}

func (r *SQLiteAssetRepository) CreateCategory(ctx context.Context, c *model.AssetCategory) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO asset_categories (name, description, default_useful_life, default_depreciation_method, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.Name, c.Description, c.DefaultUsefulLife, c.DefaultDepreciationMethod, c.IsActive, stamp())
	if err != nil {
		return classify("create asset category", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("read asset category id: %w", err)
	}
	return nil
}

func (r *SQLiteAssetRepository) UpdateCategory(ctx context.Context, c *model.AssetCategory) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE asset_categories
		SET name = ?, description = ?, default_useful_life = ?, default_depreciation_method = ?, is_active = ?
		WHERE id = ?
	`, c.Name, c.Description, c.DefaultUsefulLife, c.DefaultDepreciationMethod, c.IsActive, c.ID)
	if err != nil {
		return classify("update asset category", err)
	}
	return requireAffected(res, "update asset category")
}

func (r *SQLiteAssetRepository) DeleteCategory(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM asset_categories WHERE id = ?`, id)
	if err != nil {
		return classify("delete asset category", err)
	}
	return requireAffected(res, "delete asset category")
}

const assetSelect = `
	SELECT a.id, a.asset_code, a.name, a.description, a.category_id, c.name, a.serial_number,
		a.purchase_date, a.purchase_cost, a.supplier, a.invoice_number,
		a.useful_life_years, a.useful_life_months, a.salvage_value, a.depreciation_method, a.status,
		a.current_value, a.accumulated_depreciation, a.annual_depreciation, a.monthly_depreciation,
		a.location, a.department, a.responsible_person, a.last_maintenance, a.next_maintenance,
		a.maintenance_cost_accumulated, a.disposal_date, a.disposal_value, a.notes,
		a.created_at, a.updated_at
	FROM assets a
	JOIN asset_categories c ON c.id = a.category_id
`

func scanAsset(row interface{ Scan(...any) error }) (model.Asset, error) {
	var a model.Asset
	err := row.Scan(
		&a.ID, &a.AssetCode, &a.Name, &a.Description, &a.CategoryID, &a.CategoryName, &a.SerialNumber,
		&a.PurchaseDate, &a.PurchaseCost, &a.Supplier, &a.InvoiceNumber,
		&a.UsefulLifeYears, &a.UsefulLifeMonths, &a.SalvageValue, &a.DepreciationMethod, &a.Status,
		&a.CurrentValue, &a.AccumulatedDepreciation, &a.AnnualDepreciation, &a.MonthlyDepreciation,
		&a.Location, &a.Department, &a.ResponsiblePerson, &a.LastMaintenance, &a.NextMaintenance,
		&a.MaintenanceCostAccumulated, &a.DisposalDate, &a.DisposalValue, &a.Notes,
		scanTime(&a.CreatedAt), scanTime(&a.UpdatedAt),
	)
	return a, err
}

func (r *SQLiteAssetRepository) List(ctx context.Context, f model.AssetFilter) ([]model.Asset, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, `a.status = ?`)
		args = append(args, f.Status)
	}
	if f.CategoryID != 0 {
		where = append(where, `a.category_id = ?`)
		args = append(args, f.CategoryID)
	}
	if f.From != nil {
		where = append(where, `a.purchase_date >= ?`)
		args = append(args, *f.From)
	}
	if f.To != nil {
		where = append(where, `a.purchase_date <= ?`)
		args = append(args, *f.To)
	}

	query := assetSelect
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY a.asset_code`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	out := []model.Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteAssetRepository) Get(ctx context.Context, id int64) (model.Asset, error) {
	a, err := scanAsset(r.db.QueryRowContext(ctx, assetSelect+` WHERE a.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Asset{}, ErrNotFound
	}
	if err != nil {
		return model.Asset{}, fmt.Errorf("get asset: %w", err)
	}
	return a, nil
}

func (r *SQLiteAssetRepository) Create(ctx context.Context, a *model.Asset) error {
	now := stamp()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO assets (
			asset_code, name, description, category_id, serial_number,
			purchase_date, purchase_cost, supplier, invoice_number,
			useful_life_years, useful_life_months, salvage_value, depreciation_method, status,
			current_value, accumulated_depreciation, annual_depreciation, monthly_depreciation,
			location, department, responsible_person, last_maintenance, next_maintenance,
			maintenance_cost_accumulated, disposal_date, disposal_value, notes,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.AssetCode, a.Name, a.Description, a.CategoryID, a.SerialNumber,
		a.PurchaseDate, a.PurchaseCost, a.Supplier, a.InvoiceNumber,
		a.UsefulLifeYears, a.UsefulLifeMonths, a.SalvageValue, a.DepreciationMethod, a.Status,
		a.CurrentValue, a.AccumulatedDepreciation, a.AnnualDepreciation, a.MonthlyDepreciation,
		a.Location, a.Department, a.ResponsiblePerson, a.LastMaintenance, a.NextMaintenance,
		a.MaintenanceCostAccumulated, a.DisposalDate, a.DisposalValue, a.Notes,
		now, now)
	if err != nil {
		return classify("create asset", err)
	}
	if a.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("read asset id: %w", err)
	}
	return nil
}

func (r *SQLiteAssetRepository) Update(ctx context.Context, a *model.Asset) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE assets
		SET asset_code = ?, name = ?, description = ?, category_id = ?, serial_number = ?,
			purchase_date = ?, purchase_cost = ?, supplier = ?, invoice_number = ?,
			useful_life_years = ?, useful_life_months = ?, salvage_value = ?, depreciation_method = ?, status = ?,
			current_value = ?, accumulated_depreciation = ?, annual_depreciation = ?, monthly_depreciation = ?,
			location = ?, department = ?, responsible_person = ?, last_maintenance = ?, next_maintenance = ?,
			maintenance_cost_accumulated = ?, disposal_date = ?, disposal_value = ?, notes = ?,
			updated_at = ?
		WHERE id = ?
	`, a.AssetCode, a.Name, a.Description, a.CategoryID, a.SerialNumber,
		a.PurchaseDate, a.PurchaseCost, a.Supplier, a.InvoiceNumber,
		a.UsefulLifeYears, a.UsefulLifeMonths, a.SalvageValue, a.DepreciationMethod, a.Status,
		a.CurrentValue, a.AccumulatedDepreciation, a.AnnualDepreciation, a.MonthlyDepreciation,
		a.Location, a.Department, a.ResponsiblePerson, a.LastMaintenance, a.NextMaintenance,
		a.MaintenanceCostAccumulated, a.DisposalDate, a.DisposalValue, a.Notes,
		stamp(), a.ID)
	if err != nil {
		return classify("update asset", err)
	}
	return requireAffected(res, "update asset")
}

func (r *SQLiteAssetRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM assets WHERE id = ?`, id)
	if err != nil {
		return classify("delete asset", err)
	}
	return requireAffected(res, "delete asset")
}

func (r *SQLiteAssetRepository) ListEntries(ctx context.Context, assetID int64) ([]model.DepreciationEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, asset_id, year, month, amount, accumulated, book_value, created_at
		FROM depreciation_entries
		WHERE asset_id = ?
		ORDER BY year, month
	`, assetID)
	if err != nil {
		return nil, fmt.Errorf("list depreciation entries: %w", err)
	}
	defer rows.Close()

	out := []model.DepreciationEntry{}
	for rows.Next() {
		var e model.DepreciationEntry
		if err := rows.Scan(&e.ID, &e.AssetID, &e.Year, &e.Month, &e.Amount, &e.Accumulated, &e.BookValue, scanTime(&e.CreatedAt)); err != nil {
			return nil, fmt.Errorf("scan depreciation entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteAssetRepository) CreateEntry(ctx context.Context, e *model.DepreciationEntry) error {
	e.CreatedAt = Clock().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO depreciation_entries (asset_id, year, month, amount, accumulated, book_value, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.AssetID, e.Year, e.Month, e.Amount, e.Accumulated, e.BookValue, e.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return classify("create depreciation entry", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("read depreciation entry id: %w", err)
	}
	return nil
}

func (r *SQLiteAssetRepository) ListMaintenance(ctx context.Context, assetID int64) ([]model.MaintenanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, asset_id, maintenance_type, performed_on, cost, description, performed_by, next_due, created_at
		FROM maintenance_records
		WHERE asset_id = ?
		ORDER BY performed_on DESC, id DESC
	`, assetID)
	if err != nil {
		return nil, fmt.Errorf("list maintenance records: %w", err)
	}
	defer rows.Close()

	out := []model.MaintenanceRecord{}
	for rows.Next() {
		var m model.MaintenanceRecord
		if err := rows.Scan(
			&m.ID, &m.AssetID, &m.MaintenanceType, &m.PerformedOn, &m.Cost, &m.Description, &m.PerformedBy,
			&m.NextDue, scanTime(&m.CreatedAt),
		); err != nil {
			return nil, fmt.Errorf("scan maintenance record: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *SQLiteAssetRepository) CreateMaintenance(ctx context.Context, rec *model.MaintenanceRecord) error {
	return WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var accumulated decimal.Decimal
		err := tx.QueryRowContext(ctx, `SELECT maintenance_cost_accumulated FROM assets WHERE id = ?`, rec.AssetID).Scan(&accumulated)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("read asset maintenance cost: %w", err)
		}

		rec.CreatedAt = Clock().UTC()
		now := rec.CreatedAt.Format(time.RFC3339Nano)
		res, err := tx.ExecContext(ctx, `
			INSERT INTO maintenance_records (asset_id, maintenance_type, performed_on, cost, description, performed_by, next_due, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, rec.AssetID, rec.MaintenanceType, rec.PerformedOn, rec.Cost, rec.Description, rec.PerformedBy, rec.NextDue, now)
		if err != nil {
			return classify("create maintenance record", err)
		}
		if rec.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("read maintenance record id: %w", err)
		}

		// Older records backfilled out of order must not move last_maintenance back.
		_, err = tx.ExecContext(ctx, `
			UPDATE assets
			SET last_maintenance = CASE WHEN last_maintenance IS NULL OR last_maintenance < ? THEN ? ELSE last_maintenance END,
				next_maintenance = COALESCE(?, next_maintenance),
				maintenance_cost_accumulated = ?,
				updated_at = ?
			WHERE id = ?
		`, rec.PerformedOn, rec.PerformedOn, rec.NextDue, accumulated.Add(rec.Cost), now, rec.AssetID)
		if err != nil {
			return classify("update asset maintenance", err)
		}
		return nil
	})
}
