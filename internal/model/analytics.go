package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/estimator/internal/analytics"
)

type Benchmark struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Category        string          `json:"category"`
	Industry        string          `json:"industry"`
	MetricName      string          `json:"metric_name"`
	Unit            string          `json:"unit"`
	IndustryAverage decimal.Decimal `json:"industry_average"`
	TopQuartile     decimal.Decimal `json:"top_quartile"`
	Median          decimal.Decimal `json:"median"`
	BottomQuartile  decimal.Decimal `json:"bottom_quartile"`
	SampleSize      int             `json:"sample_size"`
	DataPeriod      string          `json:"data_period"`
	DataSource      string          `json:"data_source"`
	IsVerified      bool            `json:"is_verified"`
	ConfidenceLevel decimal.Decimal `json:"confidence_level"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Quartiles returns the comparison view of b.
func (b Benchmark) Quartiles() analytics.Quartiles {
	return analytics.Quartiles{
		BottomQuartile: b.BottomQuartile,
		Median:         b.Median,
		TopQuartile:    b.TopQuartile,
	}
}

// Platform types.
const (
	PlatformGoogleAds   = "google_ads"
	PlatformInstagram   = "instagram"
	PlatformFacebookAds = "facebook_ads"
	PlatformLinkedInAds = "linkedin_ads"
	PlatformTikTokAds   = "tiktok_ads"
	PlatformYouTubeAds  = "youtube_ads"
)

// ValidPlatformType reports whether s is a known platform type.
func ValidPlatformType(s string) bool {
	switch s {
	case PlatformGoogleAds, PlatformInstagram, PlatformFacebookAds, PlatformLinkedInAds, PlatformTikTokAds, PlatformYouTubeAds:
		return true
	}
	return false
}

type MarketingPlatform struct {
	ID                 int64      `json:"id"`
	Name               string     `json:"name"`
	PlatformType       string     `json:"platform_type"`
	APIBaseURL         string     `json:"api_base_url"`
	APIKey             string     `json:"-"`
	AccountID          string     `json:"account_id"`
	IsActive           bool       `json:"is_active"`
	LastSync           *time.Time `json:"last_sync"`
	SyncFrequencyHours int        `json:"sync_frequency_hours"`
	CreatedAt          time.Time  `json:"created_at"`
}

type MarketingCampaign struct {
	ID          int64           `json:"id"`
	PlatformID  int64           `json:"platform_id"`
	CampaignID  string          `json:"campaign_id"`
	Name        string          `json:"name"`
	Status      string          `json:"status"`
	Objective   string          `json:"objective"`
	DailyBudget decimal.Decimal `json:"daily_budget"`
	StartDate   *Date           `json:"start_date"`
	EndDate     *Date           `json:"end_date"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// MarketingMetric is one day of campaign counters with derived rates.
type MarketingMetric struct {
	ID          int64           `json:"id"`
	CampaignID  int64           `json:"campaign_id"`
	Date        Date            `json:"date"`
	Impressions int64           `json:"impressions"`
	Reach       int64           `json:"reach"`
	Clicks      int64           `json:"clicks"`
	Likes       int64           `json:"likes"`
	Comments    int64           `json:"comments"`
	Shares      int64           `json:"shares"`
	Saves       int64           `json:"saves"`
	Conversions int64           `json:"conversions"`
	Spend       decimal.Decimal `json:"spend"`
	Revenue     decimal.Decimal `json:"revenue"`

	CostPerConversion decimal.Decimal `json:"cost_per_conversion"`
	CTR               float64         `json:"click_through_rate"`
	ConversionRate    float64         `json:"conversion_rate"`
	EngagementRate    float64         `json:"engagement_rate"`
	ROAS              float64         `json:"return_on_ad_spend"`
}

// Daily returns the analytics view of m.
func (m MarketingMetric) Daily() analytics.DailyMetrics {
	return analytics.DailyMetrics{
		Date:        m.Date.Time,
		Impressions: m.Impressions,
		Reach:       m.Reach,
		Clicks:      m.Clicks,
		Likes:       m.Likes,
		Comments:    m.Comments,
		Shares:      m.Shares,
		Saves:       m.Saves,
		Conversions: m.Conversions,
		Spend:       m.Spend,
		Revenue:     m.Revenue,
	}
}

// WithRates fills the derived rate fields.
func (m MarketingMetric) WithRates() MarketingMetric {
	daily := m.Daily()
	m.CostPerConversion = daily.CostPerConversion()
	m.CTR = daily.CTR()
	m.ConversionRate = daily.ConversionRate()
	m.EngagementRate = daily.EngagementRate()
	m.ROAS = daily.ROAS()
	return m
}

// AudienceSnapshot is a platform's audience distribution on one day.
type AudienceSnapshot struct {
	ID         int64              `json:"id"`
	PlatformID int64              `json:"platform_id"`
	Date       Date               `json:"date"`
	Audience   analytics.Audience `json:"audience"`
}

type MarketingInsight struct {
	ID         int64  `json:"id"`
	CampaignID *int64 `json:"campaign_id"`
	PlatformID *int64 `json:"platform_id"`
	analytics.Insight
	CreatedAt time.Time `json:"created_at"`
}
