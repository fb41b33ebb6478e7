package costmatrix

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func requireDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, got.Equal(d(want)), "got %s, want %s", got, want)
}

func standardMatrix() Matrix {
	return Matrix{
		BaseMargin:             d("20"),
		AdministrativeOverhead: d("15"),
		Config:                 DefaultConfig(),
	}
}

func TestPrice_RiskAndVolumeDiscount(t *testing.T) {
	value := d("300000")
	q := standardMatrix().Price(d("1000"), Factors{RiskLevel: "medium", ProjectValue: &value})

	requireDec(t, "1000", q.ComplexityAdjustedCost)
	requireDec(t, "150", q.AdministrativeCost)
	requireDec(t, "1150", q.LocationAdjustedCost)
	requireDec(t, "25", q.MarginPercentage)
	requireDec(t, "287.5", q.MarginAmount)
	requireDec(t, "1437.5", q.Subtotal)
	requireDec(t, "10", q.VolumeDiscountPercentage)
	requireDec(t, "143.75", q.VolumeDiscountAmount)
	requireDec(t, "1293.75", q.FinalPrice)
	requireDec(t, "29.38", q.EffectiveMargin)
}

func TestPrice_NoFactors(t *testing.T) {
	q := standardMatrix().Price(d("200"), Factors{})

	requireDec(t, "230", q.LocationAdjustedCost)
	requireDec(t, "20", q.MarginPercentage)
	requireDec(t, "276", q.FinalPrice)
	requireDec(t, "0", q.VolumeDiscountAmount)
}

func TestPrice_ChainOrder(t *testing.T) {
	date := time.Date(2024, time.December, 3, 0, 0, 0, 0, time.UTC)
	margin := d("10")
	q := standardMatrix().Price(d("100"), Factors{
		Complexity:   "complex",
		Date:         &date,
		Location:     "Cusco",
		RiskLevel:    "critical",
		CustomMargin: &margin,
	})

	// 100 × 1.5 = 150; +15% = 172.5; × 1.2 = 207; × 1.15 = 238.05
	requireDec(t, "150", q.ComplexityAdjustedCost)
	requireDec(t, "22.5", q.AdministrativeCost)
	requireDec(t, "238.05", q.LocationAdjustedCost)
	// custom margin overrides base + risk
	requireDec(t, "10", q.MarginPercentage)
	requireDec(t, "261.855", q.FinalPrice)
}

func TestPrice_ZeroBase(t *testing.T) {
	q := standardMatrix().Price(decimal.Zero, Factors{Complexity: "critical"})
	requireDec(t, "0", q.FinalPrice)
	requireDec(t, "0", q.EffectiveMargin)
}

func TestLookupFallbacks(t *testing.T) {
	cfg := DefaultConfig()

	requireDec(t, "1", cfg.ComplexityMultiplier("unheard-of"))
	requireDec(t, "1.15", cfg.LocationFactor("atlantis"))
	requireDec(t, "1.3", cfg.LocationFactor(" SELVA "))
	requireDec(t, "5", cfg.RiskPremium("unknown"))
	requireDec(t, "0.9", cfg.SeasonalFactor(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)))

	partial := Config{SeasonalAdjustments: map[int]decimal.Decimal{12: d("1.3")}}.WithDefaults()
	requireDec(t, "1", partial.SeasonalFactor(time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)))
}

func TestVolumeDiscount_Boundaries(t *testing.T) {
	cfg := DefaultConfig()
	cases := map[string]string{
		"0":        "0",
		"49999.99": "0",
		"50000":    "5",
		"199999":   "5",
		"200000":   "10",
		"500000":   "15",
		"9000000":  "15",
		"-1":       "0",
	}
	for value, want := range cases {
		requireDec(t, want, cfg.VolumeDiscount(d(value)))
	}
}

func TestVolumeDiscount_IndependentOfInputOrder(t *testing.T) {
	tiers := DefaultVolumeTiers()
	reversed := make([]VolumeTier, 0, len(tiers))
	for i := len(tiers) - 1; i >= 0; i-- {
		reversed = append(reversed, tiers[i])
	}
	cfg := Config{VolumeTiers: reversed}.WithDefaults()

	require.NoError(t, cfg.Validate())
	requireDec(t, "0", cfg.VolumeTiers[0].Min)
	requireDec(t, "10", cfg.VolumeDiscount(d("250000")))
}

func TestValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	overlapping := Config{VolumeTiers: []VolumeTier{
		{Name: "a", Min: d("0"), Max: dp("100"), Discount: d("0")},
		{Name: "b", Min: d("50"), Max: dp("200"), Discount: d("5")},
	}}.WithDefaults()
	require.ErrorContains(t, overlapping.Validate(), "overlaps")

	inverted := Config{VolumeTiers: []VolumeTier{
		{Name: "a", Min: d("100"), Max: dp("10"), Discount: d("0")},
	}}.WithDefaults()
	require.ErrorContains(t, inverted.Validate(), "greater than min")

	badFactor := Config{LocationMultipliers: map[string]decimal.Decimal{"lima": d("0")}}.WithDefaults()
	require.ErrorContains(t, badFactor.Validate(), "lima")

	badMonth := Config{SeasonalAdjustments: map[int]decimal.Decimal{13: d("1")}}.WithDefaults()
	require.ErrorContains(t, badMonth.Validate(), "month 13")
}

func TestMerge_KeepsSectionsMissingFromPatch(t *testing.T) {
	stored := Config{VolumeTiers: []VolumeTier{{Name: "all", Min: d("0"), Discount: d("7")}}}.WithDefaults()

	merged := stored.Merge(Config{RiskPremiums: map[string]decimal.Decimal{"high": d("30")}})
	require.Len(t, merged.VolumeTiers, 1)
	require.True(t, merged.VolumeTiers[0].Discount.Equal(d("7")))
	require.Len(t, merged.RiskPremiums, 1)
	require.True(t, merged.RiskPremiums["high"].Equal(d("30")))
	require.Equal(t, stored.LocationMultipliers, merged.LocationMultipliers)

	require.Equal(t, stored, stored.Merge(Config{}))
}

func TestFactorsJSON(t *testing.T) {
	var f Factors
	require.NoError(t, json.Unmarshal([]byte(`{"complexity":"moderate","date":"2024-07-15","project_value":"60000"}`), &f))
	require.Equal(t, "moderate", f.Complexity)
	require.NotNil(t, f.Date)
	require.Equal(t, time.July, f.Date.Month())
	requireDec(t, "60000", *f.ProjectValue)

	out, err := json.Marshal(f)
	require.NoError(t, err)
	require.JSONEq(t, `{"complexity":"moderate","date":"2024-07-15","project_value":"60000"}`, string(out))

	require.Error(t, json.Unmarshal([]byte(`{"date":"15/07/2024"}`), &f))
}
