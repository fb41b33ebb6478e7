package analytics

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Performance buckets returned by Compare.
const (
	Excellent    = "excellent"
	AboveAverage = "above_average"
	BelowAverage = "below_average"
	Poor         = "poor"
)

// Quartiles are the reference values of an industry benchmark.
type Quartiles struct {
	BottomQuartile decimal.Decimal
	Median         decimal.Decimal
	TopQuartile    decimal.Decimal
}

// Validate checks bottom ≤ median ≤ top.
func (q Quartiles) Validate() error {
	if q.BottomQuartile.GreaterThan(q.Median) {
		return fmt.Errorf("bottom quartile %s exceeds median %s", q.BottomQuartile, q.Median)
	}
	if q.Median.GreaterThan(q.TopQuartile) {
		return fmt.Errorf("median %s exceeds top quartile %s", q.Median, q.TopQuartile)
	}
	return nil
}

// Comparison is the bucket a value falls into.
type Comparison struct {
	Value       decimal.Decimal `json:"value"`
	Performance string          `json:"performance"`
	Percentile  int             `json:"percentile"`
	Message     string          `json:"message"`
}

// Compare places value against the quartiles using fixed thresholds; the
// percentile is the bucket's nominal value, not an interpolation.
func (q Quartiles) Compare(value decimal.Decimal) Comparison {
	c := Comparison{Value: value}
	switch {
	case value.GreaterThanOrEqual(q.TopQuartile):
		c.Performance, c.Percentile = Excellent, 75
		c.Message = "Performance in the top quartile of the industry"
	case value.GreaterThanOrEqual(q.Median):
		c.Performance, c.Percentile = AboveAverage, 50
		c.Message = "Performance above the industry median"
	case value.GreaterThanOrEqual(q.BottomQuartile):
		c.Performance, c.Percentile = BelowAverage, 25
		c.Message = "Performance below the industry median"
	default:
		c.Performance, c.Percentile = Poor, 10
		c.Message = "Performance in the bottom quartile of the industry"
	}
	return c
}
