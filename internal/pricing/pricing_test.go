package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func equalDec(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s = %s, want %s", name, got, want)
	}
}

func defaultAnalysis() AnalysisInput {
	return AnalysisInput{
		PerformanceFactor:        dec("1"),
		DifficultyFactor:         dec("1"),
		AdministrativePercentage: dec("5"),
		ProfitMargin:             dec("15"),
	}
}

func TestCostWithOverhead(t *testing.T) {
	equalDec(t, "cost", CostWithOverhead(dec("100"), dec("10")), "110")
	equalDec(t, "no overhead", CostWithOverhead(dec("42.5"), dec("0")), "42.5")
}

func TestItemTotal(t *testing.T) {
	item := ItemInput{Quantity: dec("2"), UnitCost: dec("50"), Efficiency: dec("1.0")}
	equalDec(t, "total", ItemTotal(item), "100")
}

func TestCalculate_FullChain(t *testing.T) {
	items := []ItemInput{
		{ResourceType: "material", Quantity: dec("2"), UnitCost: dec("50"), Efficiency: dec("1")},
		{ResourceType: "labor", Quantity: dec("8"), UnitCost: dec("12.5"), Efficiency: dec("1")},
	}
	analysis := AnalysisInput{
		PerformanceFactor:        dec("1.1"),
		DifficultyFactor:         dec("1.2"),
		AdministrativePercentage: dec("5"),
		ProfitMargin:             dec("15"),
	}

	got := Calculate(items, analysis)

	equalDec(t, "direct", got.TotalDirectCost, "200")
	equalDec(t, "base", got.BaseCost, "264")
	equalDec(t, "admin", got.AdministrativeCost, "13.2")
	equalDec(t, "subtotal", got.Subtotal, "277.2")
	equalDec(t, "profit", got.ProfitAmount, "41.58")
	equalDec(t, "unit price", got.UnitPrice, "318.78")
}

func TestCalculate_NoItemsIsZero(t *testing.T) {
	got := Calculate(nil, defaultAnalysis())

	for name, v := range map[string]decimal.Decimal{
		"direct":   got.TotalDirectCost,
		"base":     got.BaseCost,
		"admin":    got.AdministrativeCost,
		"subtotal": got.Subtotal,
		"profit":   got.ProfitAmount,
		"price":    got.UnitPrice,
	} {
		if !v.IsZero() {
			t.Fatalf("%s = %s, want 0", name, v)
		}
	}
}

func TestCalculate_DirectCostIsExactSum(t *testing.T) {
	items := []ItemInput{
		{Quantity: dec("0.1"), UnitCost: dec("0.1"), Efficiency: dec("1")},
		{Quantity: dec("0.2"), UnitCost: dec("0.1"), Efficiency: dec("1")},
		{Quantity: dec("3"), UnitCost: dec("1.333"), Efficiency: dec("0.85")},
	}

	got := Calculate(items, defaultAnalysis())

	equalDec(t, "direct", got.TotalDirectCost, "3.42915")
}

func TestCalculate_UnitPriceMonotoneInMargins(t *testing.T) {
	items := []ItemInput{{Quantity: dec("3"), UnitCost: dec("19.99"), Efficiency: dec("0.9")}}

	prev := decimal.Zero
	for _, margin := range []string{"0", "5", "15", "15.5", "40"} {
		analysis := defaultAnalysis()
		analysis.ProfitMargin = dec(margin)
		price := Calculate(items, analysis).UnitPrice
		if price.LessThan(prev) {
			t.Fatalf("unit price decreased at margin %s: %s < %s", margin, price, prev)
		}
		prev = price
	}

	prev = decimal.Zero
	for _, admin := range []string{"0", "1", "5", "12", "30"} {
		analysis := defaultAnalysis()
		analysis.AdministrativePercentage = dec(admin)
		price := Calculate(items, analysis).UnitPrice
		if price.LessThan(prev) {
			t.Fatalf("unit price decreased at admin %s: %s < %s", admin, price, prev)
		}
		prev = price
	}
}

func TestCostByType(t *testing.T) {
	items := []ItemInput{
		{ResourceType: "material", Quantity: dec("1"), UnitCost: dec("30"), Efficiency: dec("1")},
		{ResourceType: "labor", Quantity: dec("1"), UnitCost: dec("60"), Efficiency: dec("1")},
		{ResourceType: "material", Quantity: dec("1"), UnitCost: dec("10"), Efficiency: dec("1")},
	}

	shares := CostByType(items, []string{"material", "labor", "equipment"})

	if len(shares) != 3 {
		t.Fatalf("len(shares) = %d, want 3", len(shares))
	}
	equalDec(t, "material cost", shares[0].Cost, "40")
	equalDec(t, "material pct", shares[0].Percentage, "40")
	equalDec(t, "labor pct", shares[1].Percentage, "60")
	equalDec(t, "equipment cost", shares[2].Cost, "0")
	equalDec(t, "equipment pct", shares[2].Percentage, "0")
}

func TestCostByType_EmptyAnalysis(t *testing.T) {
	shares := CostByType(nil, []string{"material"})
	equalDec(t, "pct", shares[0].Percentage, "0")
}

func TestCalculateEstimate(t *testing.T) {
	lines := []EstimateLine{
		{Quantity: dec("10"), UnitPrice: dec("318.78")},
		{Quantity: dec("2.5"), UnitPrice: dec("100")},
	}

	got := CalculateEstimate(lines, dec("1.1"), dec("1.05"))

	equalDec(t, "subtotal", got.Subtotal, "3437.8")
	equalDec(t, "total", got.TotalEstimate, "3970.659")
}

func TestValidityEnd(t *testing.T) {
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	got := ValidityEnd(start, 30)
	if want := time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("ValidityEnd = %v, want %v", got, want)
	}
}
