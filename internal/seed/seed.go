// Package seed inserts the reference rows a fresh database needs.
package seed

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Simplici0/estimator/internal/costmatrix"
)

const (
	defaultCategoryCode  = "GEN"
	defaultCategoryName  = "General"
	defaultMatrixName    = "Default matrix"
	defaultAssetCategory = "General"
)

// resourceTypes are created with a zero overhead percentage.
var resourceTypes = []struct {
	name        string
	description string
}{
	{"material", "Materials"},
	{"labor", "Labor"},
	{"equipment", "Equipment and tools"},
	{"subcontract", "Subcontracts"},
	{"transport", "Transport"},
	{"overhead", "Overhead"},
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

// Run executes the startup seed in an idempotent way.
func Run(ctx context.Context, db *sql.DB) (Stats, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	for _, step := range []func(context.Context, *sql.Tx, string, *Stats) error{
		ensureResourceTypes,
		ensureServiceCategory,
		ensureDefaultMatrix,
		ensureAssetCategory,
	} {
		if err := step(ctx, tx, now, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func exists(ctx context.Context, tx *sql.Tx, query string, args ...any) (bool, error) {
	var ok bool
	err := tx.QueryRowContext(ctx, `SELECT EXISTS(`+query+`)`, args...).Scan(&ok)
	return ok, err
}

func ensureResourceTypes(ctx context.Context, tx *sql.Tx, _ string, stats *Stats) error {
	for _, rt := range resourceTypes {
		ok, err := exists(ctx, tx, `SELECT 1 FROM resource_types WHERE name = ?`, rt.name)
		if err != nil {
			return fmt.Errorf("check resource type %s: %w", rt.name, err)
		}
		if ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO resource_types (name, description, overhead_percentage)
			VALUES (?, ?, '0')
		`, rt.name, rt.description); err != nil {
			return fmt.Errorf("insert resource type %s: %w", rt.name, err)
		}
		stats.Inserts++
	}
	return nil
}

func ensureServiceCategory(ctx context.Context, tx *sql.Tx, now string, stats *Stats) error {
	ok, err := exists(ctx, tx, `SELECT 1 FROM service_categories WHERE code = ?`, defaultCategoryCode)
	if err != nil {
		return fmt.Errorf("check default service category: %w", err)
	}
	if ok {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO service_categories (code, name, description, is_active, created_at)
		VALUES (?, ?, ?, 1, ?)
	`, defaultCategoryCode, defaultCategoryName, "Uncategorized services", now); err != nil {
		return fmt.Errorf("insert default service category: %w", err)
	}
	stats.Inserts++
	return nil
}

// ensureDefaultMatrix leaves an existing default matrix alone, whatever its name.
func ensureDefaultMatrix(ctx context.Context, tx *sql.Tx, now string, stats *Stats) error {
	ok, err := exists(ctx, tx, `SELECT 1 FROM cost_matrices WHERE is_default = 1 OR name = ?`, defaultMatrixName)
	if err != nil {
		return fmt.Errorf("check default cost matrix: %w", err)
	}
	if ok {
		return nil
	}

	config, err := json.Marshal(costmatrix.DefaultConfig())
	if err != nil {
		return fmt.Errorf("encode default matrix config: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO cost_matrices (
			name, matrix_type, description, base_margin, administrative_overhead, config,
			effective_date, is_active, is_default, version, created_at, updated_at
		)
		VALUES (?, 'standard', ?, '20', '15', ?, ?, 1, 1, '1.0', ?, ?)
	`, defaultMatrixName, "Built-in pricing factors", string(config), now[:len(time.DateOnly)], now, now); err != nil {
		return fmt.Errorf("insert default cost matrix: %w", err)
	}
	stats.Inserts++
	return nil
}

func ensureAssetCategory(ctx context.Context, tx *sql.Tx, now string, stats *Stats) error {
	ok, err := exists(ctx, tx, `SELECT 1 FROM asset_categories WHERE name = ?`, defaultAssetCategory)
	if err != nil {
		return fmt.Errorf("check default asset category: %w", err)
	}
	if ok {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO asset_categories (name, description, default_useful_life, default_depreciation_method, is_active, created_at)
		VALUES (?, ?, 5, 'straight_line', 1, ?)
	`, defaultAssetCategory, "Assets without a specific category", now); err != nil {
		return fmt.Errorf("insert default asset category: %w", err)
	}
	stats.Inserts++
	return nil
}
