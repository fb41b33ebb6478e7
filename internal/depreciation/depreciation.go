// Package depreciation values fixed assets under the supported depreciation
// methods and produces their amortization schedules.
package depreciation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Method selects the depreciation formula.
type Method string

const (
	StraightLine      Method = "straight_line"
	DecliningBalance  Method = "declining_balance"
	SumOfYears        Method = "sum_of_years"
	UnitsOfProduction Method = "units_of_production"
)

// Valid reports whether m is a known method.
func (m Method) Valid() bool {
	switch m {
	case StraightLine, DecliningBalance, SumOfYears, UnitsOfProduction:
		return true
	}
	return false
}

var (
	twelve = decimal.NewFromInt(12)
	two    = decimal.NewFromInt(2)
)

// Asset holds the inputs of a depreciation calculation.
type Asset struct {
	PurchaseDate     time.Time
	PurchaseCost     decimal.Decimal
	SalvageValue     decimal.Decimal
	UsefulLifeYears  int
	UsefulLifeMonths int
	Method           Method
}

// TotalMonths is the full useful life in months.
func (a Asset) TotalMonths() int {
	return a.UsefulLifeYears*12 + a.UsefulLifeMonths
}

// Depreciable is purchase cost minus salvage value, never negative.
func (a Asset) Depreciable() decimal.Decimal {
	v := a.PurchaseCost.Sub(a.SalvageValue)
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

func (a Asset) fingerprint() string {
	return fmt.Sprintf("%s|%s|%s|%d|%d|%s",
		a.PurchaseDate.Format(time.DateOnly), a.PurchaseCost, a.SalvageValue,
		a.UsefulLifeYears, a.UsefulLifeMonths, a.Method)
}

// MonthsElapsed is the calendar month difference between the purchase date and
// now, never negative.
func MonthsElapsed(purchase, now time.Time) int {
	months := (now.Year()-purchase.Year())*12 + int(now.Month()) - int(purchase.Month())
	if months < 0 {
		return 0
	}
	return months
}

// Valuation is the state of an asset after a number of elapsed months.
type Valuation struct {
	MonthsElapsed           int
	RemainingMonths         int
	MonthlyDepreciation     decimal.Decimal
	AnnualDepreciation      decimal.Decimal
	AccumulatedDepreciation decimal.Decimal
	CurrentValue            decimal.Decimal
}

// FullyDepreciated reports whether the asset has reached its salvage value.
func (v Valuation) FullyDepreciated(salvage decimal.Decimal) bool {
	return v.CurrentValue.LessThanOrEqual(salvage)
}

// Percentage is accumulated depreciation as a share of the purchase cost.
func (v Valuation) Percentage(purchaseCost decimal.Decimal) decimal.Decimal {
	if !purchaseCost.IsPositive() {
		return decimal.Zero
	}
	return v.AccumulatedDepreciation.Div(purchaseCost).Mul(decimal.NewFromInt(100)).Round(2)
}

// Evaluate values a without memoisation.
func Evaluate(a Asset, months int) Valuation {
	return (*Engine)(nil).Evaluate(0, a, months)
}

// AccumulatedAt returns the accumulated depreciation after months, rounded to cents.
func AccumulatedAt(a Asset, months int) decimal.Decimal {
	return Evaluate(a, months).AccumulatedDepreciation
}

func valuation(a Asset, months int, accumulated, monthly, annual decimal.Decimal) Valuation {
	accumulated = decimal.Min(accumulated, a.Depreciable()).Round(2)
	current := decimal.Max(a.PurchaseCost.Sub(accumulated), a.SalvageValue)
	remaining := a.TotalMonths() - months
	if remaining < 0 {
		remaining = 0
	}
	if remaining == 0 || current.LessThanOrEqual(a.SalvageValue) {
		monthly, annual = decimal.Zero, decimal.Zero
	}
	return Valuation{
		MonthsElapsed:           months,
		RemainingMonths:         remaining,
		MonthlyDepreciation:     monthly.Round(2),
		AnnualDepreciation:      annual.Round(2),
		AccumulatedDepreciation: accumulated,
		CurrentValue:            current,
	}
}

func straightLine(a Asset, months int) Valuation {
	total := a.TotalMonths()
	if total <= 0 {
		return valuation(a, months, decimal.Zero, decimal.Zero, decimal.Zero)
	}
	dep := a.Depreciable()
	totalDec := decimal.NewFromInt(int64(total))
	monthly := dep.Div(totalDec)
	accumulated := dep.Mul(decimal.NewFromInt(int64(months))).Div(totalDec)
	return valuation(a, months, accumulated, monthly, monthly.Mul(twelve))
}

func sumOfYearsAnnual(a Asset, year int) decimal.Decimal {
	n := a.UsefulLifeYears
	if year < 1 || year > n {
		return decimal.Zero
	}
	sum := decimal.NewFromInt(int64(n * (n + 1) / 2))
	remaining := decimal.NewFromInt(int64(n - year + 1))
	return a.Depreciable().Mul(remaining).Div(sum)
}

func sumOfYears(a Asset, months int) Valuation {
	n := a.UsefulLifeYears
	if n <= 0 {
		return straightLine(a, months)
	}

	full := months / 12
	if full > n {
		full = n
	}
	accumulated := decimal.Zero
	for year := 1; year <= full; year++ {
		accumulated = accumulated.Add(sumOfYearsAnnual(a, year))
	}
	if full < n {
		partial := sumOfYearsAnnual(a, full+1).Div(twelve)
		accumulated = accumulated.Add(partial.Mul(decimal.NewFromInt(int64(months % 12))))
	}

	current := months/12 + 1
	if current > n {
		current = n
	}
	annual := sumOfYearsAnnual(a, current)
	return valuation(a, months, accumulated, annual.Div(twelve), annual)
}

// monthlyRate is the double declining-balance rate (2 / years) / 12. Extra
// useful-life months do not change it; they only move the final write-down.
// An asset with no whole years has a zero rate.
func monthlyRate(a Asset) decimal.Decimal {
	if a.UsefulLifeYears <= 0 {
		return decimal.Zero
	}
	return two.Div(decimal.NewFromInt(int64(a.UsefulLifeYears))).Div(twelve)
}

// decliningStep charges one month against book. The last month of useful
// life writes the book value down to salvage.
func decliningStep(a Asset, book decimal.Decimal, month int) decimal.Decimal {
	charge := book.Mul(monthlyRate(a)).Round(2)
	if month >= a.TotalMonths() || book.Sub(charge).LessThan(a.SalvageValue) {
		charge = book.Sub(a.SalvageValue)
	}
	if charge.IsNegative() {
		return book
	}
	return book.Sub(charge)
}

func decliningFrom(a Asset, book decimal.Decimal, from, to int) decimal.Decimal {
	for m := from + 1; m <= to; m++ {
		if book.LessThanOrEqual(a.SalvageValue) {
			break
		}
		book = decliningStep(a, book, m)
	}
	return book
}

func decliningValuation(a Asset, months int, book decimal.Decimal) Valuation {
	next := decliningStep(a, book, months+1)
	monthly := book.Sub(next)
	annual := book.Sub(decliningFrom(a, book, months, months+12))
	return valuation(a, months, a.PurchaseCost.Sub(book), monthly, annual)
}
