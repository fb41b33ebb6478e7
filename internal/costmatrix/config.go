package costmatrix

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// VolumeTier grants Discount percent when min ≤ project value < max.
// A nil Max is unbounded.
type VolumeTier struct {
	Name     string           `json:"name" yaml:"name"`
	Min      decimal.Decimal  `json:"min" yaml:"min"`
	Max      *decimal.Decimal `json:"max" yaml:"max"`
	Discount decimal.Decimal  `json:"discount" yaml:"discount"`
}

func (t VolumeTier) contains(v decimal.Decimal) bool {
	if v.LessThan(t.Min) {
		return false
	}
	return t.Max == nil || v.LessThan(*t.Max)
}

// Config is the factor table of a cost matrix. Empty sections fall back to
// the defaults in WithDefaults.
type Config struct {
	ComplexityMultipliers map[string]decimal.Decimal `json:"complexity_multipliers,omitempty"`
	VolumeTiers           []VolumeTier               `json:"volume_tiers,omitempty"`
	SeasonalAdjustments   map[int]decimal.Decimal    `json:"seasonal_adjustments,omitempty"`
	LocationMultipliers   map[string]decimal.Decimal `json:"location_multipliers,omitempty"`
	RiskPremiums          map[string]decimal.Decimal `json:"risk_premiums,omitempty"`
}

var (
	defaultLocationFactor = decimal.RequireFromString("1.15")
	defaultRiskPremium    = decimal.NewFromInt(5)
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

// DefaultComplexityMultipliers returns the built-in complexity table.
func DefaultComplexityMultipliers() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"simple":   d("1.0"),
		"moderate": d("1.2"),
		"complex":  d("1.5"),
		"critical": d("2.0"),
	}
}

// DefaultVolumeTiers returns the built-in volume discount tiers.
func DefaultVolumeTiers() []VolumeTier {
	return []VolumeTier{
		{Name: "tier_1", Min: d("0"), Max: dp("50000"), Discount: d("0")},
		{Name: "tier_2", Min: d("50000"), Max: dp("200000"), Discount: d("5")},
		{Name: "tier_3", Min: d("200000"), Max: dp("500000"), Discount: d("10")},
		{Name: "tier_4", Min: d("500000"), Discount: d("15")},
	}
}

// DefaultSeasonalAdjustments returns the built-in month factors.
func DefaultSeasonalAdjustments() map[int]decimal.Decimal {
	return map[int]decimal.Decimal{
		1: d("1.0"), 2: d("0.95"), 3: d("0.9"), 4: d("0.9"),
		5: d("1.0"), 6: d("1.05"), 7: d("1.1"), 8: d("1.1"),
		9: d("1.05"), 10: d("1.0"), 11: d("0.95"), 12: d("1.2"),
	}
}

// DefaultLocationMultipliers returns the built-in location factors.
func DefaultLocationMultipliers() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"lima":      d("1.0"),
		"arequipa":  d("1.05"),
		"trujillo":  d("1.08"),
		"chiclayo":  d("1.08"),
		"piura":     d("1.12"),
		"iquitos":   d("1.25"),
		"cusco":     d("1.15"),
		"huancayo":  d("1.10"),
		"provincia": d("1.15"),
		"selva":     d("1.30"),
		"sierra":    d("1.20"),
	}
}

// DefaultRiskPremiums returns the built-in risk premium percentages.
func DefaultRiskPremiums() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"low":      d("0"),
		"medium":   d("5"),
		"high":     d("15"),
		"critical": d("25"),
	}
}

// DefaultConfig returns a config with every section populated.
func DefaultConfig() Config {
	return Config{}.WithDefaults()
}

// Merge returns c with every non-empty section of patch replacing the stored
// one. Empty sections of patch leave c unchanged.
func (c Config) Merge(patch Config) Config {
	out := c
	if len(patch.ComplexityMultipliers) > 0 {
		out.ComplexityMultipliers = patch.ComplexityMultipliers
	}
	if len(patch.VolumeTiers) > 0 {
		out.VolumeTiers = patch.VolumeTiers
	}
	if len(patch.SeasonalAdjustments) > 0 {
		out.SeasonalAdjustments = patch.SeasonalAdjustments
	}
	if len(patch.LocationMultipliers) > 0 {
		out.LocationMultipliers = patch.LocationMultipliers
	}
	if len(patch.RiskPremiums) > 0 {
		out.RiskPremiums = patch.RiskPremiums
	}
	return out
}

// WithDefaults fills empty sections, normalises location keys to lower case
// and orders volume tiers by their lower bound.
func (c Config) WithDefaults() Config {
	out := Config{
		ComplexityMultipliers: c.ComplexityMultipliers,
		SeasonalAdjustments:   c.SeasonalAdjustments,
		RiskPremiums:          c.RiskPremiums,
	}
	if len(out.ComplexityMultipliers) == 0 {
		out.ComplexityMultipliers = DefaultComplexityMultipliers()
	}
	if len(out.SeasonalAdjustments) == 0 {
		out.SeasonalAdjustments = DefaultSeasonalAdjustments()
	}
	if len(out.RiskPremiums) == 0 {
		out.RiskPremiums = DefaultRiskPremiums()
	}

	if len(c.LocationMultipliers) == 0 {
		out.LocationMultipliers = DefaultLocationMultipliers()
	} else {
		out.LocationMultipliers = make(map[string]decimal.Decimal, len(c.LocationMultipliers))
		for k, v := range c.LocationMultipliers {
			out.LocationMultipliers[strings.ToLower(strings.TrimSpace(k))] = v
		}
	}

	if len(c.VolumeTiers) == 0 {
		out.VolumeTiers = DefaultVolumeTiers()
	} else {
		out.VolumeTiers = append([]VolumeTier(nil), c.VolumeTiers...)
	}
	sort.SliceStable(out.VolumeTiers, func(i, j int) bool {
		return out.VolumeTiers[i].Min.LessThan(out.VolumeTiers[j].Min)
	})

	return out
}

// Validate checks a config after defaults were applied.
func (c Config) Validate() error {
	var errs []error

	for k, v := range c.ComplexityMultipliers {
		if !v.IsPositive() {
			errs = append(errs, fmt.Errorf("complexity multiplier %q must be positive", k))
		}
	}
	for m, v := range c.SeasonalAdjustments {
		if m < 1 || m > 12 {
			errs = append(errs, fmt.Errorf("seasonal adjustment month %d out of range", m))
		}
		if !v.IsPositive() {
			errs = append(errs, fmt.Errorf("seasonal adjustment for month %d must be positive", m))
		}
	}
	for k, v := range c.LocationMultipliers {
		if !v.IsPositive() {
			errs = append(errs, fmt.Errorf("location multiplier %q must be positive", k))
		}
	}
	for k, v := range c.RiskPremiums {
		if v.IsNegative() {
			errs = append(errs, fmt.Errorf("risk premium %q must not be negative", k))
		}
	}

	hundred := decimal.NewFromInt(100)
	for i, t := range c.VolumeTiers {
		if t.Min.IsNegative() {
			errs = append(errs, fmt.Errorf("volume tier %q: min must not be negative", t.Name))
		}
		if t.Max != nil && !t.Max.GreaterThan(t.Min) {
			errs = append(errs, fmt.Errorf("volume tier %q: max must be greater than min", t.Name))
		}
		if t.Discount.IsNegative() || t.Discount.GreaterThan(hundred) {
			errs = append(errs, fmt.Errorf("volume tier %q: discount must be between 0 and 100", t.Name))
		}
		if i > 0 {
			prev := c.VolumeTiers[i-1]
			if prev.Max == nil || prev.Max.GreaterThan(t.Min) {
				errs = append(errs, fmt.Errorf("volume tier %q overlaps %q", t.Name, prev.Name))
			}
		}
	}

	return errors.Join(errs...)
}
