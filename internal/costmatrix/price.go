package costmatrix

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Matrix is a priced configuration: margins plus the factor table.
type Matrix struct {
	BaseMargin             decimal.Decimal
	AdministrativeOverhead decimal.Decimal
	Config                 Config
}

// Factors are the optional adjustments of one price calculation. Zero values
// mean the factor is not applied.
type Factors struct {
	Complexity   string           `json:"complexity,omitempty"`
	Date         *time.Time       `json:"date,omitempty"`
	Location     string           `json:"location,omitempty"`
	RiskLevel    string           `json:"risk_level,omitempty"`
	CustomMargin *decimal.Decimal `json:"custom_margin,omitempty"`
	ProjectValue *decimal.Decimal `json:"project_value,omitempty"`
}

type factorsJSON struct {
	Complexity   string           `json:"complexity,omitempty"`
	Date         string           `json:"date,omitempty"`
	Location     string           `json:"location,omitempty"`
	RiskLevel    string           `json:"risk_level,omitempty"`
	CustomMargin *decimal.Decimal `json:"custom_margin,omitempty"`
	ProjectValue *decimal.Decimal `json:"project_value,omitempty"`
}

// MarshalJSON renders Date as YYYY-MM-DD.
func (f Factors) MarshalJSON() ([]byte, error) {
	out := factorsJSON{
		Complexity:   f.Complexity,
		Location:     f.Location,
		RiskLevel:    f.RiskLevel,
		CustomMargin: f.CustomMargin,
		ProjectValue: f.ProjectValue,
	}
	if f.Date != nil {
		out.Date = f.Date.Format(time.DateOnly)
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts Date as YYYY-MM-DD or RFC 3339.
func (f *Factors) UnmarshalJSON(b []byte) error {
	var in factorsJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*f = Factors{
		Complexity:   in.Complexity,
		Location:     in.Location,
		RiskLevel:    in.RiskLevel,
		CustomMargin: in.CustomMargin,
		ProjectValue: in.ProjectValue,
	}
	if in.Date == "" {
		return nil
	}
	t, err := time.Parse(time.DateOnly, in.Date)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, in.Date); err != nil {
			return fmt.Errorf("factor date %q must be YYYY-MM-DD", in.Date)
		}
	}
	f.Date = &t
	return nil
}

// Quote is the full result of a dynamic price calculation.
type Quote struct {
	BaseCost                 decimal.Decimal `json:"base_cost"`
	ComplexityAdjustedCost   decimal.Decimal `json:"complexity_adjusted_cost"`
	AdministrativeCost       decimal.Decimal `json:"administrative_cost"`
	LocationAdjustedCost     decimal.Decimal `json:"location_adjusted_cost"`
	MarginPercentage         decimal.Decimal `json:"margin_percentage"`
	MarginAmount             decimal.Decimal `json:"margin_amount"`
	Subtotal                 decimal.Decimal `json:"subtotal"`
	VolumeDiscountPercentage decimal.Decimal `json:"volume_discount_percentage"`
	VolumeDiscountAmount     decimal.Decimal `json:"volume_discount_amount"`
	FinalPrice               decimal.Decimal `json:"final_price"`
	EffectiveMargin          decimal.Decimal `json:"effective_margin"`
}

// ComplexityMultiplier returns the factor for level, 1 when unknown.
func (c Config) ComplexityMultiplier(level string) decimal.Decimal {
	if v, ok := c.ComplexityMultipliers[level]; ok {
		return v
	}
	return decimal.NewFromInt(1)
}

// SeasonalFactor returns the factor for the month of date, 1 when unset.
func (c Config) SeasonalFactor(date time.Time) decimal.Decimal {
	if v, ok := c.SeasonalAdjustments[int(date.Month())]; ok {
		return v
	}
	return decimal.NewFromInt(1)
}

// LocationFactor returns the factor for location, case-insensitively,
// falling back to the provincial default.
func (c Config) LocationFactor(location string) decimal.Decimal {
	if v, ok := c.LocationMultipliers[strings.ToLower(strings.TrimSpace(location))]; ok {
		return v
	}
	return defaultLocationFactor
}

// RiskPremium returns the premium percentage for level, 5 when unknown.
func (c Config) RiskPremium(level string) decimal.Decimal {
	if v, ok := c.RiskPremiums[level]; ok {
		return v
	}
	return defaultRiskPremium
}

// VolumeDiscount returns the discount percentage of the first tier, scanned by
// ascending lower bound, containing value. No match means no discount.
func (c Config) VolumeDiscount(value decimal.Decimal) decimal.Decimal {
	for _, t := range c.VolumeTiers {
		if t.contains(value) {
			return t.Discount
		}
	}
	return decimal.Zero
}

// Price runs the pricing chain on baseCost: complexity, administrative
// overhead, season, location, margin, then volume discount on the final price.
func (m Matrix) Price(baseCost decimal.Decimal, f Factors) Quote {
	cfg := m.Config
	cost := baseCost

	if f.Complexity != "" {
		cost = cost.Mul(cfg.ComplexityMultiplier(f.Complexity))
	}
	complexityAdjusted := cost

	admin := cost.Mul(m.AdministrativeOverhead).Div(hundred)
	cost = cost.Add(admin)

	if f.Date != nil {
		cost = cost.Mul(cfg.SeasonalFactor(*f.Date))
	}
	if f.Location != "" {
		cost = cost.Mul(cfg.LocationFactor(f.Location))
	}
	locationAdjusted := cost

	margin := m.BaseMargin
	if f.RiskLevel != "" {
		margin = margin.Add(cfg.RiskPremium(f.RiskLevel))
	}
	if f.CustomMargin != nil {
		margin = *f.CustomMargin
	}
	marginAmount := cost.Mul(margin).Div(hundred)
	subtotal := cost.Add(marginAmount)

	discountPct := decimal.Zero
	if f.ProjectValue != nil {
		discountPct = cfg.VolumeDiscount(*f.ProjectValue)
	}
	discount := subtotal.Mul(discountPct).Div(hundred)
	final := subtotal.Sub(discount)

	return Quote{
		BaseCost:                 baseCost,
		ComplexityAdjustedCost:   complexityAdjusted,
		AdministrativeCost:       admin,
		LocationAdjustedCost:     locationAdjusted,
		MarginPercentage:         margin,
		MarginAmount:             marginAmount,
		Subtotal:                 subtotal,
		VolumeDiscountPercentage: discountPct,
		VolumeDiscountAmount:     discount,
		FinalPrice:               final,
		EffectiveMargin:          EffectiveMargin(baseCost, final),
	}
}

// EffectiveMargin is (final − base) / base × 100, or 0 for a zero base.
func EffectiveMargin(baseCost, finalPrice decimal.Decimal) decimal.Decimal {
	if baseCost.IsZero() {
		return decimal.Zero
	}
	return finalPrice.Sub(baseCost).Div(baseCost).Mul(hundred).Round(2)
}

// Rounded returns q with every money field rounded to cents.
func (q Quote) Rounded() Quote {
	r := func(v decimal.Decimal) decimal.Decimal { return v.Round(2) }
	return Quote{
		BaseCost:                 r(q.BaseCost),
		ComplexityAdjustedCost:   r(q.ComplexityAdjustedCost),
		AdministrativeCost:       r(q.AdministrativeCost),
		LocationAdjustedCost:     r(q.LocationAdjustedCost),
		MarginPercentage:         q.MarginPercentage,
		MarginAmount:             r(q.MarginAmount),
		Subtotal:                 r(q.Subtotal),
		VolumeDiscountPercentage: q.VolumeDiscountPercentage,
		VolumeDiscountAmount:     r(q.VolumeDiscountAmount),
		FinalPrice:               r(q.FinalPrice),
		EffectiveMargin:          q.EffectiveMargin,
	}
}
