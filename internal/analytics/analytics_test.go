package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCompare(t *testing.T) {
	q := Quartiles{BottomQuartile: d("10"), Median: d("20"), TopQuartile: d("30")}

	cases := []struct {
		value       string
		performance string
		percentile  int
	}{
		{"45", Excellent, 75},
		{"30", Excellent, 75},
		{"29.99", AboveAverage, 50},
		{"20", AboveAverage, 50},
		{"10", BelowAverage, 25},
		{"9.99", Poor, 10},
		{"-3", Poor, 10},
	}
	for _, tc := range cases {
		got := q.Compare(d(tc.value))
		require.Equal(t, tc.performance, got.Performance, tc.value)
		require.Equal(t, tc.percentile, got.Percentile, tc.value)
		require.NotEmpty(t, got.Message)
	}
}

func TestCompare_IndustryAverageAtOrAboveMedian(t *testing.T) {
	q := Quartiles{BottomQuartile: d("1.2"), Median: d("2.5"), TopQuartile: d("4")}
	for _, avg := range []string{"2.5", "3.1", "4", "7"} {
		got := q.Compare(d(avg)).Performance
		require.Contains(t, []string{AboveAverage, Excellent}, got)
	}
}

func TestQuartilesValidate(t *testing.T) {
	require.NoError(t, Quartiles{BottomQuartile: d("1"), Median: d("1"), TopQuartile: d("2")}.Validate())
	require.Error(t, Quartiles{BottomQuartile: d("3"), Median: d("2"), TopQuartile: d("4")}.Validate())
	require.Error(t, Quartiles{BottomQuartile: d("1"), Median: d("5"), TopQuartile: d("4")}.Validate())
}

func TestRates(t *testing.T) {
	m := DailyMetrics{
		Impressions: 1000, Clicks: 50, Conversions: 5,
		Likes: 10, Comments: 5, Shares: 3, Saves: 2,
		Spend: d("100"), Revenue: d("250"),
	}

	require.InDelta(t, 5.0, m.CTR(), 1e-9)
	require.InDelta(t, 10.0, m.ConversionRate(), 1e-9)
	require.InDelta(t, 2.0, m.EngagementRate(), 1e-9)
	require.InDelta(t, 250.0, m.ROAS(), 1e-9)
	require.True(t, m.CostPerConversion().Equal(d("20")))

	var empty DailyMetrics
	require.Zero(t, empty.CTR())
	require.Zero(t, empty.ConversionRate())
	require.Zero(t, empty.ROAS())
	require.True(t, empty.CostPerConversion().IsZero())
}

func day(n int) time.Time {
	return time.Date(2024, time.May, n, 0, 0, 0, 0, time.UTC)
}

func TestPerformanceInsights_NeedsTwoDays(t *testing.T) {
	require.Empty(t, PerformanceInsights([]DailyMetrics{{Date: day(1), Impressions: 1000, Clicks: 1}}, d("100")))
}

func TestPerformanceInsights_AllRules(t *testing.T) {
	metrics := []DailyMetrics{
		// older day first to check ordering
		{Date: day(1), Impressions: 1000, Clicks: 9, Conversions: 1, Spend: d("90")},
		{Date: day(2), Impressions: 1000, Clicks: 5, Conversions: 0, Spend: d("40")},
	}

	insights := PerformanceInsights(metrics, d("100"))

	require.Len(t, insights, 3)
	require.Equal(t, TypePerformance, insights[0].Type)
	require.Equal(t, PriorityHigh, insights[0].Priority)
	require.Equal(t, 85, insights[0].ConfidenceScore)
	require.Contains(t, insights[0].Description, "44.4%")
	require.Equal(t, TypeOptimization, insights[1].Type)
	require.Equal(t, 75, insights[1].ConfidenceScore)
	require.Equal(t, TypeBudget, insights[2].Type)
	require.Equal(t, 80, insights[2].ConfidenceScore)
}

func TestPerformanceInsights_HealthyCampaign(t *testing.T) {
	metrics := []DailyMetrics{
		{Date: day(2), Impressions: 1000, Clicks: 30, Conversions: 3, Spend: d("90")},
		{Date: day(1), Impressions: 1000, Clicks: 25, Conversions: 2, Spend: d("95")},
	}
	require.Empty(t, PerformanceInsights(metrics, d("100")))
}

func TestBudgetInsights(t *testing.T) {
	high := []DailyMetrics{
		{Spend: d("100"), Revenue: d("500")},
		{Spend: d("100"), Revenue: d("300")},
	}
	got := BudgetInsights(high)
	require.Len(t, got, 1)
	require.Equal(t, PriorityHigh, got[0].Priority)
	require.Equal(t, 90, got[0].ConfidenceScore)

	low := []DailyMetrics{{Spend: d("100"), Revenue: d("50")}}
	got = BudgetInsights(low)
	require.Len(t, got, 1)
	require.Equal(t, PriorityCritical, got[0].Priority)
	require.Equal(t, 95, got[0].ConfidenceScore)

	require.Empty(t, BudgetInsights([]DailyMetrics{{Spend: d("100"), Revenue: d("200")}}))
	require.Empty(t, BudgetInsights(nil))
}

func TestAudienceInsights(t *testing.T) {
	got := AudienceInsights(Audience{
		AgeGroups:    map[string]float64{"18-24": 12, "25-34": 65, "35-44": 23},
		TopLocations: []Location{{City: "Lima", Percentage: 82}, {City: "Cusco", Percentage: 8}},
	})

	require.Len(t, got, 2)
	require.Equal(t, PriorityLow, got[0].Priority)
	require.Contains(t, got[0].Description, "25-34")
	require.Equal(t, PriorityMedium, got[1].Priority)
	require.Contains(t, got[1].Description, "Lima")

	require.Empty(t, AudienceInsights(Audience{
		AgeGroups:    map[string]float64{"18-24": 50, "25-34": 50},
		TopLocations: []Location{{Country: "PE", Percentage: 70}},
	}))
}
