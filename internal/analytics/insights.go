package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Insight types and priorities.
const (
	TypePerformance  = "performance"
	TypeOptimization = "optimization"
	TypeBudget       = "budget"
	TypeAudience     = "audience"

	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Insight is a generated recommendation.
type Insight struct {
	Type               string   `json:"type"`
	Priority           string   `json:"priority"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	RecommendedActions []string `json:"recommended_actions"`
	ConfidenceScore    int      `json:"confidence_score"`
}

// DailyMetrics are one day of campaign counters.
type DailyMetrics struct {
	Date        time.Time
	Impressions int64
	Reach       int64
	Clicks      int64
	Likes       int64
	Comments    int64
	Shares      int64
	Saves       int64
	Conversions int64
	Spend       decimal.Decimal
	Revenue     decimal.Decimal
}

func pct(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den * 100
}

// CTR is clicks per impression, in percent.
func (m DailyMetrics) CTR() float64 {
	return pct(float64(m.Clicks), float64(m.Impressions))
}

// ConversionRate is conversions per click, in percent.
func (m DailyMetrics) ConversionRate() float64 {
	return pct(float64(m.Conversions), float64(m.Clicks))
}

// EngagementRate is interactions per impression, in percent.
func (m DailyMetrics) EngagementRate() float64 {
	return pct(float64(m.Likes+m.Comments+m.Shares+m.Saves), float64(m.Impressions))
}

// ROAS is revenue over spend, in percent.
func (m DailyMetrics) ROAS() float64 {
	return pct(m.Revenue.InexactFloat64(), m.Spend.InexactFloat64())
}

// CostPerConversion is spend per conversion, zero without conversions.
func (m DailyMetrics) CostPerConversion() decimal.Decimal {
	if m.Conversions <= 0 {
		return decimal.Zero
	}
	return m.Spend.Div(decimal.NewFromInt(m.Conversions)).Round(2)
}

func newestFirst(metrics []DailyMetrics) []DailyMetrics {
	out := append([]DailyMetrics(nil), metrics...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

// PerformanceInsights evaluates the most recent days of a campaign. At least two
// days of metrics are required.
func PerformanceInsights(recent []DailyMetrics, dailyBudget decimal.Decimal) []Insight {
	if len(recent) < 2 {
		return nil
	}
	ordered := newestFirst(recent)
	current, previous := ordered[0], ordered[1]

	var out []Insight

	ctr, prevCTR := current.CTR(), previous.CTR()
	if ctr < 1 && prevCTR > 0 {
		change := (ctr - prevCTR) / prevCTR * 100
		if change < -20 {
			out = append(out, Insight{
				Type:        TypePerformance,
				Priority:    PriorityHigh,
				Title:       "Low CTR detected",
				Description: fmt.Sprintf("CTR dropped %.1f%% to %.2f%%", -change, ctr),
				RecommendedActions: []string{
					"Refresh the ad creatives",
					"Tighten audience targeting",
					"Test new ad copy",
				},
				ConfidenceScore: 85,
			})
		}
	}

	if conv := current.ConversionRate(); conv < 2 {
		out = append(out, Insight{
			Type:        TypeOptimization,
			Priority:    PriorityMedium,
			Title:       "Conversion rate can improve",
			Description: fmt.Sprintf("Current conversion rate is %.2f%%", conv),
			RecommendedActions: []string{
				"Optimise the landing page",
				"Review the checkout flow",
				"Segment the audience further",
			},
			ConfidenceScore: 75,
		})
	}

	if current.Spend.IsPositive() && dailyBudget.IsPositive() {
		ratio := pct(current.Spend.InexactFloat64(), dailyBudget.InexactFloat64())
		if ratio < 50 {
			out = append(out, Insight{
				Type:        TypeBudget,
				Priority:    PriorityMedium,
				Title:       "Budget under-used",
				Description: fmt.Sprintf("Only %.1f%% of the daily budget is being spent", ratio),
				RecommendedActions: []string{
					"Raise bids",
					"Broaden targeting",
					"Move budget to the best campaigns",
				},
				ConfidenceScore: 80,
			})
		}
	}

	return out
}

// BudgetInsights evaluates the average ROAS over a window of metrics.
func BudgetInsights(window []DailyMetrics) []Insight {
	if len(window) == 0 {
		return nil
	}
	sum := 0.0
	for _, m := range window {
		sum += m.ROAS()
	}
	avg := sum / float64(len(window))

	switch {
	case avg > 300:
		return []Insight{{
			Type:        TypeBudget,
			Priority:    PriorityHigh,
			Title:       "Room to scale",
			Description: fmt.Sprintf("Average ROAS of %.1f%% shows strong returns", avg),
			RecommendedActions: []string{
				"Raise the daily budget by 20-30%",
				"Extend targeting to lookalike audiences",
				"Clone the campaign with a larger budget",
			},
			ConfidenceScore: 90,
		}}
	case avg < 100:
		return []Insight{{
			Type:        TypeBudget,
			Priority:    PriorityCritical,
			Title:       "Low ROAS, action required",
			Description: fmt.Sprintf("Average ROAS of %.1f%% means the campaign is losing money", avg),
			RecommendedActions: []string{
				"Cut the budget now",
				"Pause the campaign to optimise it",
				"Review targeting and creatives",
			},
			ConfidenceScore: 95,
		}}
	}
	return nil
}

// Location is an audience share for a place.
type Location struct {
	City       string  `json:"city,omitempty"`
	Country    string  `json:"country,omitempty"`
	Percentage float64 `json:"percentage"`
}

// Audience is a platform's audience distribution on a given day.
type Audience struct {
	AgeGroups    map[string]float64 `json:"age_groups"`
	TopLocations []Location         `json:"top_locations"`
}

// AudienceInsights flags audiences concentrated in one age group or place.
func AudienceInsights(a Audience) []Insight {
	var out []Insight

	if len(a.AgeGroups) > 0 {
		groups := make([]string, 0, len(a.AgeGroups))
		for g := range a.AgeGroups {
			groups = append(groups, g)
		}
		sort.Strings(groups)
		dominant := groups[0]
		for _, g := range groups[1:] {
			if a.AgeGroups[g] > a.AgeGroups[dominant] {
				dominant = g
			}
		}
		if share := a.AgeGroups[dominant]; share > 60 {
			out = append(out, Insight{
				Type:        TypeAudience,
				Priority:    PriorityLow,
				Title:       "Audience concentrated in one age group",
				Description: fmt.Sprintf("%.1f%% of the audience is in the %s range", share, dominant),
				RecommendedActions: []string{
					"Reach out to other age groups",
					"Create content for other segments",
					"Look for untapped markets",
				},
				ConfidenceScore: 70,
			})
		}
	}

	if len(a.TopLocations) > 0 {
		top := a.TopLocations[0]
		if top.Percentage > 70 {
			place := top.City
			if place == "" {
				place = top.Country
			}
			if place == "" {
				place = "a single location"
			}
			out = append(out, Insight{
				Type:        TypeAudience,
				Priority:    PriorityMedium,
				Title:       "High geographic concentration",
				Description: fmt.Sprintf("%.1f%% of the audience is in %s", top.Percentage, place),
				RecommendedActions: []string{
					"Expand to new cities or countries",
					"Run localised campaigns",
				},
				ConfidenceScore: 75,
			})
		}
	}

	return out
}
