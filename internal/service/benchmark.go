package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/estimator/internal/analytics"
	"github.com/Simplici0/estimator/internal/model"
	"github.com/Simplici0/estimator/internal/repository"
)

// BenchmarkInput creates or patches a market benchmark.
type BenchmarkInput struct {
	Name            *string          `json:"name"`
	Category        *string          `json:"category"`
	Industry        *string          `json:"industry"`
	MetricName      *string          `json:"metric_name"`
	Unit            *string          `json:"unit"`
	IndustryAverage *decimal.Decimal `json:"industry_average"`
	TopQuartile     *decimal.Decimal `json:"top_quartile"`
	Median          *decimal.Decimal `json:"median"`
	BottomQuartile  *decimal.Decimal `json:"bottom_quartile"`
	SampleSize      *int             `json:"sample_size"`
	DataPeriod      *string          `json:"data_period"`
	DataSource      *string          `json:"data_source"`
	IsVerified      *bool            `json:"is_verified"`
	ConfidenceLevel *decimal.Decimal `json:"confidence_level"`
}

// BenchmarkService manages market benchmarks and compares prices against them.
type BenchmarkService interface {
	List(ctx context.Context, f repository.BenchmarkFilter) ([]model.Benchmark, error)
	Get(ctx context.Context, id int64) (model.Benchmark, error)
	Create(ctx context.Context, in BenchmarkInput) (model.Benchmark, error)
	Update(ctx context.Context, id int64, in BenchmarkInput) (model.Benchmark, error)
	Delete(ctx context.Context, id int64) error
	Compare(ctx context.Context, id int64, value decimal.Decimal) (analytics.Comparison, error)
}

// BenchmarkServiceImpl implements BenchmarkService.
type BenchmarkServiceImpl struct {
	repo repository.BenchmarkRepository
}

// NewBenchmarkService returns a BenchmarkService backed by repo.
func NewBenchmarkService(repo repository.BenchmarkRepository) *BenchmarkServiceImpl {
	return &BenchmarkServiceImpl{repo: repo}
}

func (s *BenchmarkServiceImpl) List(ctx context.Context, f repository.BenchmarkFilter) ([]model.Benchmark, error) {
	return s.repo.List(ctx, f)
}

func (s *BenchmarkServiceImpl) Get(ctx context.Context, id int64) (model.Benchmark, error) {
	return s.repo.Get(ctx, id)
}

func applyBenchmark(b *model.Benchmark, in BenchmarkInput) error {
	v := &ValidationError{}
	str := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	num := func(dst *decimal.Decimal, src *decimal.Decimal) {
		if src != nil {
			*dst = *src
		}
	}
	str(&b.Name, in.Name)
	str(&b.Category, in.Category)
	str(&b.Industry, in.Industry)
	str(&b.MetricName, in.MetricName)
	str(&b.Unit, in.Unit)
	str(&b.DataPeriod, in.DataPeriod)
	str(&b.DataSource, in.DataSource)
	num(&b.IndustryAverage, in.IndustryAverage)
	num(&b.TopQuartile, in.TopQuartile)
	num(&b.Median, in.Median)
	num(&b.BottomQuartile, in.BottomQuartile)
	num(&b.ConfidenceLevel, in.ConfidenceLevel)
	if in.SampleSize != nil {
		b.SampleSize = *in.SampleSize
	}
	if in.IsVerified != nil {
		b.IsVerified = *in.IsVerified
	}

	if b.Name == "" {
		v.Add("name", "is required")
	}
	if b.Category == "" {
		v.Add("category", "is required")
	}
	if b.Industry == "" {
		v.Add("industry", "is required")
	}
	if b.MetricName == "" {
		v.Add("metric_name", "is required")
	}
	if b.SampleSize < 0 {
		v.Add("sample_size", "must not be negative")
	}
	if b.ConfidenceLevel.IsNegative() || b.ConfidenceLevel.GreaterThan(hundred) {
		v.Add("confidence_level", "must be between 0 and 100")
	}
	if err := b.Quartiles().Validate(); err != nil {
		v.Add("median", err.Error())
	}
	return v.Err()
}

func (s *BenchmarkServiceImpl) Create(ctx context.Context, in BenchmarkInput) (model.Benchmark, error) {
	b := model.Benchmark{ConfidenceLevel: decimal.NewFromInt(95)}
	if err := applyBenchmark(&b, in); err != nil {
		return model.Benchmark{}, err
	}
	if err := s.repo.Create(ctx, &b); err != nil {
		return model.Benchmark{}, err
	}
	return s.repo.Get(ctx, b.ID)
}

func (s *BenchmarkServiceImpl) Update(ctx context.Context, id int64, in BenchmarkInput) (model.Benchmark, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.Benchmark{}, err
	}
	if err := applyBenchmark(&b, in); err != nil {
		return model.Benchmark{}, err
	}
	if err := s.repo.Update(ctx, &b); err != nil {
		return model.Benchmark{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *BenchmarkServiceImpl) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Compare places value against benchmark id.
func (s *BenchmarkServiceImpl) Compare(ctx context.Context, id int64, value decimal.Decimal) (analytics.Comparison, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return analytics.Comparison{}, err
	}
	return b.Quartiles().Compare(value), nil
}
