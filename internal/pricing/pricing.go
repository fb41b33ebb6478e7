package pricing

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ItemInput represents one resource line of a unit-price analysis.
type ItemInput struct {
	ResourceType string
	Quantity     decimal.Decimal
	UnitCost     decimal.Decimal
	Efficiency   decimal.Decimal
}

// AnalysisInput represents the analysis-level factors applied on top of the item costs.
type AnalysisInput struct {
	PerformanceFactor        decimal.Decimal
	DifficultyFactor         decimal.Decimal
	AdministrativePercentage decimal.Decimal
	ProfitMargin             decimal.Decimal
}

// Breakdown contains all intermediate and line-item values of the unit price calculation.
type Breakdown struct {
	TotalDirectCost    decimal.Decimal
	BaseCost           decimal.Decimal
	AdministrativeCost decimal.Decimal
	Subtotal           decimal.Decimal
	ProfitAmount       decimal.Decimal
	UnitPrice          decimal.Decimal
}

// TypeShare is the cost attributed to one resource type.
type TypeShare struct {
	ResourceType string
	Cost         decimal.Decimal
	Percentage   decimal.Decimal
}

// CostWithOverhead applies a resource type overhead percentage to a unit cost.
func CostWithOverhead(unitCost, overheadPercent decimal.Decimal) decimal.Decimal {
	return unitCost.Mul(decimal.NewFromInt(1).Add(overheadPercent.Div(hundred)))
}

// ItemTotal is quantity × unit cost × efficiency.
func ItemTotal(item ItemInput) decimal.Decimal {
	return item.Quantity.Mul(item.UnitCost).Mul(item.Efficiency)
}

// Calculate computes the unit price breakdown of an analysis. Values are exact;
// callers round for presentation.
func Calculate(items []ItemInput, analysis AnalysisInput) Breakdown {
	direct := decimal.Zero
	for _, item := range items {
		direct = direct.Add(ItemTotal(item))
	}

	base := direct.Mul(analysis.PerformanceFactor).Mul(analysis.DifficultyFactor)
	admin := base.Mul(analysis.AdministrativePercentage).Div(hundred)
	subtotal := base.Add(admin)
	profit := subtotal.Mul(analysis.ProfitMargin).Div(hundred)

	return Breakdown{
		TotalDirectCost:    direct,
		BaseCost:           base,
		AdministrativeCost: admin,
		Subtotal:           subtotal,
		ProfitAmount:       profit,
		UnitPrice:          subtotal.Add(profit),
	}
}

// CostByType splits the direct cost of items across the given resource types,
// in the order given. Types without items report zero; percentages are rounded
// to two places and are zero when the analysis has no cost.
func CostByType(items []ItemInput, types []string) []TypeShare {
	costs := make(map[string]decimal.Decimal, len(types))
	total := decimal.Zero
	for _, item := range items {
		c := ItemTotal(item)
		costs[item.ResourceType] = costs[item.ResourceType].Add(c)
		total = total.Add(c)
	}

	shares := make([]TypeShare, 0, len(types))
	for _, t := range types {
		cost := costs[t]
		pct := decimal.Zero
		if total.IsPositive() {
			pct = cost.Div(total).Mul(hundred).Round(2)
		}
		shares = append(shares, TypeShare{ResourceType: t, Cost: cost, Percentage: pct})
	}
	return shares
}
