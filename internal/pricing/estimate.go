package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// EstimateLine is one analysis priced into a project estimate.
type EstimateLine struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// EstimateTotals are the roll-up values of a project estimate.
type EstimateTotals struct {
	Subtotal      decimal.Decimal
	TotalEstimate decimal.Decimal
}

// LineTotal is quantity × unit price.
func LineTotal(line EstimateLine) decimal.Decimal {
	return line.Quantity.Mul(line.UnitPrice)
}

// CalculateEstimate sums the estimate lines and applies the site and season factors.
func CalculateEstimate(lines []EstimateLine, siteFactor, seasonFactor decimal.Decimal) EstimateTotals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(LineTotal(line))
	}
	return EstimateTotals{
		Subtotal:      subtotal,
		TotalEstimate: subtotal.Mul(siteFactor).Mul(seasonFactor),
	}
}

// ValidityEnd returns the last day an estimate dated estimateDate remains valid.
func ValidityEnd(estimateDate time.Time, validityDays int) time.Time {
	return estimateDate.AddDate(0, 0, validityDays)
}
