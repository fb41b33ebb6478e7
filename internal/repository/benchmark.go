package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Simplici0/estimator/internal/model"
)

type BenchmarkFilter struct {
	Category string
	Industry string
	Verified *bool
}

type BenchmarkRepository interface {
	List(ctx context.Context, f BenchmarkFilter) ([]model.Benchmark, error)
	Get(ctx context.Context, id int64) (model.Benchmark, error)
	Create(ctx context.Context, b *model.Benchmark) error
	Update(ctx context.Context, b *model.Benchmark) error
	Delete(ctx context.Context, id int64) error
}

type SQLiteBenchmarkRepository struct {
	db *sql.DB
}

func NewSQLiteBenchmarkRepository(db *sql.DB) *SQLiteBenchmarkRepository {
	return &SQLiteBenchmarkRepository{db: db}
}

const benchmarkColumns = `
	id, name, category, industry, metric_name, unit, industry_average, top_quartile, median,
	bottom_quartile, sample_size, data_period, data_source, is_verified, confidence_level, created_at
`

func scanBenchmark(row interface{ Scan(...any) error }) (model.Benchmark, error) {
	var b model.Benchmark
	err := row.Scan(
		&b.ID, &b.Name, &b.Category, &b.Industry, &b.MetricName, &b.Unit, &b.IndustryAverage, &b.TopQuartile, &b.Median,
		&b.BottomQuartile, &b.SampleSize, &b.DataPeriod, &b.DataSource, &b.IsVerified, &b.ConfidenceLevel,
		scanTime(&b.CreatedAt),
	)
	return b, err
}

func (r *SQLiteBenchmarkRepository) List(ctx context.Context, f BenchmarkFilter) ([]model.Benchmark, error) {
	var (
		where []string
		args  []any
	)
	if f.Category != "" {
		where = append(where, `category = ?`)
		args = append(args, f.Category)
	}
	if f.Industry != "" {
		where = append(where, `industry = ?`)
		args = append(args, f.Industry)
	}
	if f.Verified != nil {
		where = append(where, `is_verified = ?`)
		args = append(args, *f.Verified)
	}

	query := `SELECT ` + benchmarkColumns + ` FROM benchmarks`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY category, metric_name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list benchmarks: %w", err)
	}
	defer rows.Close()

	out := []model.Benchmark{}
	for rows.Next() {
		b, err := scanBenchmark(rows)
		if err != nil {
			return nil, fmt.Errorf("scan benchmark: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteBenchmarkRepository) Get(ctx context.Context, id int64) (model.Benchmark, error) {
	b, err := scanBenchmark(r.db.QueryRowContext(ctx, `SELECT `+benchmarkColumns+` FROM benchmarks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Benchmark{}, ErrNotFound
	}
	if err != nil {
		return model.Benchmark{}, fmt.Errorf("get benchmark: %w", err)
	}
	return b, nil
}

func (r *SQLiteBenchmarkRepository) Create(ctx context.Context, b *model.Benchmark) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO benchmarks (
			name, category, industry, metric_name, unit, industry_average, top_quartile, median,
			bottom_quartile, sample_size, data_period, data_source, is_verified, confidence_level, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.Name, b.Category, b.Industry, b.MetricName, b.Unit, b.IndustryAverage, b.TopQuartile, b.Median,
		b.BottomQuartile, b.SampleSize, b.DataPeriod, b.DataSource, b.IsVerified, b.ConfidenceLevel, stamp())
	if err != nil {
		return classify("create benchmark", err)
	}
	if b.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("read benchmark id: %w", err)
	}
	return nil
}

func (r *SQLiteBenchmarkRepository) Update(ctx context.Context, b *model.Benchmark) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE benchmarks
		SET name = ?, category = ?, industry = ?, metric_name = ?, unit = ?, industry_average = ?,
			top_quartile = ?, median = ?, bottom_quartile = ?, sample_size = ?, data_period = ?,
			data_source = ?, is_verified = ?, confidence_level = ?
		WHERE id = ?
	`, b.Name, b.Category, b.Industry, b.MetricName, b.Unit, b.IndustryAverage,
		b.TopQuartile, b.Median, b.BottomQuartile, b.SampleSize, b.DataPeriod,
		b.DataSource, b.IsVerified, b.ConfidenceLevel, b.ID)
	if err != nil {
		return classify("update benchmark", err)
	}
	return requireAffected(res, "update benchmark")
}

func (r *SQLiteBenchmarkRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM benchmarks WHERE id = ?`, id)
	if err != nil {
		return classify("delete benchmark", err)
	}
	return requireAffected(res, "delete benchmark")
}
