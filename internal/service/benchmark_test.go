package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Simplici0/estimator/internal/analytics"
	"github.com/Simplici0/estimator/internal/repository"
)

func ctrBenchmark() BenchmarkInput {
	return BenchmarkInput{
		Name:            ptr("CTR construcción"),
		Category:        ptr("marketing"),
		Industry:        ptr("construction"),
		MetricName:      ptr("ctr"),
		Unit:            ptr("%"),
		BottomQuartile:  decp("1"),
		Median:          decp("2"),
		TopQuartile:     decp("3.5"),
		IndustryAverage: decp("2.2"),
	}
}

func TestBenchmarkCreateAndCompare(t *testing.T) {
	ctx := context.Background()
	svc := NewBenchmarkService(repository.NewSQLiteBenchmarkRepository(newTestDB(t)))

	b, err := svc.Create(ctx, ctrBenchmark())
	require.NoError(t, err)
	requireDec(t, "95", b.ConfidenceLevel)
	require.False(t, b.IsVerified)

	tests := []struct {
		value       string
		performance string
		percentile  int
	}{
		{"4", analytics.Excellent, 75},
		{"3.5", analytics.Excellent, 75},
		{"2", analytics.AboveAverage, 50},
		{"1.2", analytics.BelowAverage, 25},
		{"0.5", analytics.Poor, 10},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			c, err := svc.Compare(ctx, b.ID, dec(tt.value))
			require.NoError(t, err)
			require.Equal(t, tt.performance, c.Performance)
			require.Equal(t, tt.percentile, c.Percentile)
			requireDec(t, tt.value, c.Value)
		})
	}

	_, err = svc.Compare(ctx, 999, dec("1"))
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestBenchmarkValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewBenchmarkService(repository.NewSQLiteBenchmarkRepository(newTestDB(t)))

	tests := []struct {
		name   string
		mutate func(*BenchmarkInput)
		field  string
	}{
		{"missing name", func(in *BenchmarkInput) { in.Name = ptr(" ") }, "name"},
		{"missing industry", func(in *BenchmarkInput) { in.Industry = nil }, "industry"},
		{"missing metric", func(in *BenchmarkInput) { in.MetricName = nil }, "metric_name"},
		{"quartiles out of order", func(in *BenchmarkInput) { in.Median = decp("5") }, "median"},
		{"negative sample", func(in *BenchmarkInput) { in.SampleSize = ptr(-1) }, "sample_size"},
		{"confidence above 100", func(in *BenchmarkInput) { in.ConfidenceLevel = decp("101") }, "confidence_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := ctrBenchmark()
			tt.mutate(&in)
			_, err := svc.Create(ctx, in)
			requireField(t, err, tt.field)
		})
	}
}

func TestBenchmarkUpdateAndFilter(t *testing.T) {
	ctx := context.Background()
	svc := NewBenchmarkService(repository.NewSQLiteBenchmarkRepository(newTestDB(t)))

	b, err := svc.Create(ctx, ctrBenchmark())
	require.NoError(t, err)

	other := ctrBenchmark()
	other.Name = ptr("Costo m2")
	other.Category = ptr("pricing")
	_, err = svc.Create(ctx, other)
	require.NoError(t, err)

	b, err = svc.Update(ctx, b.ID, BenchmarkInput{IsVerified: ptr(true), SampleSize: ptr(250)})
	require.NoError(t, err)
	require.True(t, b.IsVerified)
	require.Equal(t, 250, b.SampleSize)
	require.Equal(t, "ctr", b.MetricName)

	_, err = svc.Update(ctx, b.ID, BenchmarkInput{TopQuartile: decp("1.5")})
	requireField(t, err, "median")

	list, err := svc.List(ctx, repository.BenchmarkFilter{Category: "marketing"})
	require.NoError(t, err)
	require.Len(t, list, 1)

	verified := true
	list, err = svc.List(ctx, repository.BenchmarkFilter{Verified: &verified})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, b.ID, list[0].ID)

	require.NoError(t, svc.Delete(ctx, b.ID))
	_, err = svc.Get(ctx, b.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
}
