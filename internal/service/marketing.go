package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/estimator/internal/analytics"
	"github.com/Simplici0/estimator/internal/model"
	"github.com/Simplici0/estimator/internal/repository"
)

// Insight windows, in days including today.
const (
	performanceWindow = 7
	budgetWindow      = 30
	summaryWindow     = 30
)

// PlatformInput registers a marketing platform account.
type PlatformInput struct {
	Name               *string `json:"name"`
	PlatformType       *string `json:"platform_type"`
	APIBaseURL         *string `json:"api_base_url"`
	APIKey             *string `json:"api_key"`
	AccountID          *string `json:"account_id"`
	IsActive           *bool   `json:"is_active"`
	SyncFrequencyHours *int    `json:"sync_frequency_hours"`
}

// CampaignInput creates a campaign on a platform.
type CampaignInput struct {
	PlatformID  *int64           `json:"platform_id"`
	CampaignID  *string          `json:"campaign_id"`
	Name        *string          `json:"name"`
	Status      *string          `json:"status"`
	Objective   *string          `json:"objective"`
	DailyBudget *decimal.Decimal `json:"daily_budget"`
	StartDate   *model.Date      `json:"start_date"`
	EndDate     *model.Date      `json:"end_date"`
}

// AudienceInput records an audience snapshot for a platform.
type AudienceInput struct {
	Date model.Date `json:"date"`
	analytics.Audience
}

// PerformanceSummary aggregates a campaign's recent metrics.
type PerformanceSummary struct {
	StartDate      model.Date              `json:"start_date"`
	EndDate        model.Date              `json:"end_date"`
	Days           int                     `json:"days"`
	Spend          decimal.Decimal         `json:"total_spend"`
	Revenue        decimal.Decimal         `json:"total_revenue"`
	Impressions    int64                   `json:"total_impressions"`
	Clicks         int64                   `json:"total_clicks"`
	Conversions    int64                   `json:"total_conversions"`
	CTR            float64                 `json:"ctr"`
	ConversionRate float64                 `json:"conversion_rate"`
	ROAS           float64                 `json:"roas"`
	Status         string                  `json:"performance_status"`
	Daily          []model.MarketingMetric `json:"daily_metrics"`
}

// MarketingService manages platforms, campaigns, metrics and insights.
type MarketingService interface {
	ListPlatforms(ctx context.Context, activeOnly bool) ([]model.MarketingPlatform, error)
	GetPlatform(ctx context.Context, id int64) (model.MarketingPlatform, error)
	CreatePlatform(ctx context.Context, in PlatformInput) (model.MarketingPlatform, error)
	DeletePlatform(ctx context.Context, id int64) error

	ListCampaigns(ctx context.Context, platformID int64) ([]model.MarketingCampaign, error)
	GetCampaign(ctx context.Context, id int64) (model.MarketingCampaign, error)
	CreateCampaign(ctx context.Context, in CampaignInput) (model.MarketingCampaign, error)

	ListMetrics(ctx context.Context, campaignID int64, from, to model.Date) ([]model.MarketingMetric, error)
	RecordMetric(ctx context.Context, campaignID int64, m model.MarketingMetric) (model.MarketingMetric, error)
	RecordAudience(ctx context.Context, platformID int64, in AudienceInput) (model.AudienceSnapshot, error)
	Performance(ctx context.Context, campaignID int64) (PerformanceSummary, error)

	ListInsights(ctx context.Context, campaignID, platformID int64) ([]model.MarketingInsight, error)
	CampaignInsights(ctx context.Context, campaignID int64) ([]model.MarketingInsight, error)
	PlatformInsights(ctx context.Context, platformID int64) ([]model.MarketingInsight, error)
}

// MarketingServiceImpl implements MarketingService.
type MarketingServiceImpl struct {
	repo repository.MarketingRepository
	now  func() time.Time
}

// NewMarketingService returns a MarketingService backed by repo.
func NewMarketingService(repo repository.MarketingRepository) *MarketingServiceImpl {
	return &MarketingServiceImpl{repo: repo, now: time.Now}
}

func (s *MarketingServiceImpl) today() model.Date {
	return model.DateOf(s.now())
}

func (s *MarketingServiceImpl) ListPlatforms(ctx context.Context, activeOnly bool) ([]model.MarketingPlatform, error) {
	return s.repo.ListPlatforms(ctx, activeOnly)
}

func (s *MarketingServiceImpl) GetPlatform(ctx context.Context, id int64) (model.MarketingPlatform, error) {
	return s.repo.GetPlatform(ctx, id)
}

func (s *MarketingServiceImpl) CreatePlatform(ctx context.Context, in PlatformInput) (model.MarketingPlatform, error) {
	p := model.MarketingPlatform{IsActive: true, SyncFrequencyHours: 24}
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.PlatformType != nil {
		p.PlatformType = *in.PlatformType
	}
	if in.APIBaseURL != nil {
		p.APIBaseURL = strings.TrimRight(strings.TrimSpace(*in.APIBaseURL), "/")
	}
	if in.APIKey != nil {
		p.APIKey = *in.APIKey
	}
	if in.AccountID != nil {
		p.AccountID = strings.TrimSpace(*in.AccountID)
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if in.SyncFrequencyHours != nil {
		p.SyncFrequencyHours = *in.SyncFrequencyHours
	}

	v := &ValidationError{}
	if p.Name == "" {
		v.Add("name", "is required")
	}
	if !model.ValidPlatformType(p.PlatformType) {
		v.Add("platform_type", "unknown platform type")
	}
	if p.SyncFrequencyHours <= 0 {
		v.Add("sync_frequency_hours", "must be greater than 0")
	}
	if err := v.Err(); err != nil {
		return model.MarketingPlatform{}, err
	}

	if err := s.repo.CreatePlatform(ctx, &p); err != nil {
		return model.MarketingPlatform{}, err
	}
	return s.repo.GetPlatform(ctx, p.ID)
}

func (s *MarketingServiceImpl) DeletePlatform(ctx context.Context, id int64) error {
	return s.repo.DeletePlatform(ctx, id)
}

func (s *MarketingServiceImpl) ListCampaigns(ctx context.Context, platformID int64) ([]model.MarketingCampaign, error) {
	return s.repo.ListCampaigns(ctx, platformID)
}

func (s *MarketingServiceImpl) GetCampaign(ctx context.Context, id int64) (model.MarketingCampaign, error) {
	return s.repo.GetCampaign(ctx, id)
}

func (s *MarketingServiceImpl) CreateCampaign(ctx context.Context, in CampaignInput) (model.MarketingCampaign, error) {
	c := model.MarketingCampaign{Status: "active", DailyBudget: decimal.Zero}
	if in.PlatformID != nil {
		c.PlatformID = *in.PlatformID
	}
	if in.CampaignID != nil {
		c.CampaignID = strings.TrimSpace(*in.CampaignID)
	}
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Status != nil {
		c.Status = strings.ToLower(strings.TrimSpace(*in.Status))
	}
	if in.Objective != nil {
		c.Objective = *in.Objective
	}
	if in.DailyBudget != nil {
		c.DailyBudget = *in.DailyBudget
	}
	if in.StartDate != nil && !in.StartDate.IsZero() {
		d := *in.StartDate
		c.StartDate = &d
	}
	if in.EndDate != nil && !in.EndDate.IsZero() {
		d := *in.EndDate
		c.EndDate = &d
	}

	v := &ValidationError{}
	if c.PlatformID == 0 {
		v.Add("platform_id", "is required")
	}
	if c.CampaignID == "" {
		v.Add("campaign_id", "is required")
	}
	if c.Name == "" {
		v.Add("name", "is required")
	}
	if c.DailyBudget.IsNegative() {
		v.Add("daily_budget", "must not be negative")
	}
	if c.StartDate != nil && c.EndDate != nil && c.EndDate.Before(c.StartDate.Time) {
		v.Add("end_date", "must not be before start_date")
	}
	if err := v.Err(); err != nil {
		return model.MarketingCampaign{}, err
	}

	if err := s.repo.CreateCampaign(ctx, &c); err != nil {
		err = referenceAs(err, "platform_id", "unknown marketing platform")
		return model.MarketingCampaign{}, duplicateAs(err, "campaign_id", "already exists for this platform")
	}
	return s.repo.GetCampaign(ctx, c.ID)
}

func (s *MarketingServiceImpl) ListMetrics(ctx context.Context, campaignID int64, from, to model.Date) ([]model.MarketingMetric, error) {
	if campaignID != 0 {
		if _, err := s.repo.GetCampaign(ctx, campaignID); err != nil {
			return nil, err
		}
	}
	return s.repo.ListMetrics(ctx, campaignID, from, to)
}

// RecordMetric stores one day of counters, replacing any earlier values for
// that day.
func (s *MarketingServiceImpl) RecordMetric(ctx context.Context, campaignID int64, m model.MarketingMetric) (model.MarketingMetric, error) {
	if _, err := s.repo.GetCampaign(ctx, campaignID); err != nil {
		return model.MarketingMetric{}, err
	}
	m.CampaignID = campaignID

	v := &ValidationError{}
	if m.Date.IsZero() {
		v.Add("date", "is required")
	}
	counters := map[string]int64{
		"impressions": m.Impressions, "reach": m.Reach, "clicks": m.Clicks, "likes": m.Likes,
		"comments": m.Comments, "shares": m.Shares, "saves": m.Saves, "conversions": m.Conversions,
	}
	for field, n := range counters {
		if n < 0 {
			v.Add(field, "must not be negative")
		}
	}
	if m.Spend.IsNegative() {
		v.Add("spend", "must not be negative")
	}
	if m.Revenue.IsNegative() {
		v.Add("revenue", "must not be negative")
	}
	if err := v.Err(); err != nil {
		return model.MarketingMetric{}, err
	}

	if err := s.repo.UpsertMetric(ctx, &m); err != nil {
		return model.MarketingMetric{}, err
	}
	return m.WithRates(), nil
}

func (s *MarketingServiceImpl) RecordAudience(ctx context.Context, platformID int64, in AudienceInput) (model.AudienceSnapshot, error) {
	if _, err := s.repo.GetPlatform(ctx, platformID); err != nil {
		return model.AudienceSnapshot{}, err
	}
	snap := model.AudienceSnapshot{PlatformID: platformID, Date: in.Date, Audience: in.Audience}
	if snap.Date.IsZero() {
		snap.Date = s.today()
	}
	if snap.Audience.AgeGroups == nil {
		snap.Audience.AgeGroups = map[string]float64{}
	}
	if snap.Audience.TopLocations == nil {
		snap.Audience.TopLocations = []analytics.Location{}
	}

	v := &ValidationError{}
	for group, share := range snap.Audience.AgeGroups {
		if share < 0 || share > 100 {
			v.Add("age_groups."+group, "must be between 0 and 100")
		}
	}
	for _, l := range snap.Audience.TopLocations {
		if l.Percentage < 0 || l.Percentage > 100 {
			v.Add("top_locations", "percentages must be between 0 and 100")
			break
		}
	}
	if err := v.Err(); err != nil {
		return model.AudienceSnapshot{}, err
	}

	if err := s.repo.UpsertAudience(ctx, &snap); err != nil {
		return model.AudienceSnapshot{}, err
	}
	return snap, nil
}

// window returns the metrics of a campaign over the last days days.
func (s *MarketingServiceImpl) window(ctx context.Context, campaignID int64, days int) (model.Date, model.Date, []model.MarketingMetric, error) {
	to := s.today()
	from := to.AddDays(-(days - 1))
	metrics, err := s.repo.ListMetrics(ctx, campaignID, from, to)
	return from, to, metrics, err
}

func dailies(metrics []model.MarketingMetric) []analytics.DailyMetrics {
	out := make([]analytics.DailyMetrics, len(metrics))
	for i, m := range metrics {
		out[i] = m.Daily()
	}
	return out
}

func performanceStatus(roas, ctr, conv float64) string {
	switch {
	case roas >= 300 && ctr >= 2 && conv >= 3:
		return "excellent"
	case roas >= 200 && ctr >= 1.5 && conv >= 2:
		return "good"
	case roas >= 100 && ctr >= 1 && conv >= 1:
		return "average"
	}
	return "poor"
}

func (s *MarketingServiceImpl) Performance(ctx context.Context, campaignID int64) (PerformanceSummary, error) {
	if _, err := s.repo.GetCampaign(ctx, campaignID); err != nil {
		return PerformanceSummary{}, err
	}
	from, to, metrics, err := s.window(ctx, campaignID, summaryWindow)
	if err != nil {
		return PerformanceSummary{}, err
	}

	total := analytics.DailyMetrics{Spend: decimal.Zero, Revenue: decimal.Zero}
	for _, m := range metrics {
		total.Impressions += m.Impressions
		total.Clicks += m.Clicks
		total.Conversions += m.Conversions
		total.Spend = total.Spend.Add(m.Spend)
		total.Revenue = total.Revenue.Add(m.Revenue)
	}
	sum := PerformanceSummary{
		StartDate:      from,
		EndDate:        to,
		Days:           summaryWindow,
		Spend:          total.Spend,
		Revenue:        total.Revenue,
		Impressions:    total.Impressions,
		Clicks:         total.Clicks,
		Conversions:    total.Conversions,
		CTR:            total.CTR(),
		ConversionRate: total.ConversionRate(),
		ROAS:           total.ROAS(),
		Daily:          metrics,
	}
	sum.Status = performanceStatus(sum.ROAS, sum.CTR, sum.ConversionRate)
	return sum, nil
}

func (s *MarketingServiceImpl) ListInsights(ctx context.Context, campaignID, platformID int64) ([]model.MarketingInsight, error) {
	return s.repo.ListInsights(ctx, campaignID, platformID)
}

func (s *MarketingServiceImpl) persist(ctx context.Context, campaignID, platformID *int64, found []analytics.Insight) ([]model.MarketingInsight, error) {
	out := make([]model.MarketingInsight, 0, len(found))
	for _, in := range found {
		mi := model.MarketingInsight{CampaignID: campaignID, PlatformID: platformID, Insight: in}
		if err := s.repo.CreateInsight(ctx, &mi); err != nil {
			return nil, err
		}
		out = append(out, mi)
	}
	return out, nil
}

// CampaignInsights runs the performance and budget generators for a
// campaign and stores what they find.
func (s *MarketingServiceImpl) CampaignInsights(ctx context.Context, campaignID int64) ([]model.MarketingInsight, error) {
	c, err := s.repo.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	_, _, recent, err := s.window(ctx, campaignID, performanceWindow)
	if err != nil {
		return nil, err
	}
	_, _, month, err := s.window(ctx, campaignID, budgetWindow)
	if err != nil {
		return nil, err
	}

	found := analytics.PerformanceInsights(dailies(recent), c.DailyBudget)
	found = append(found, analytics.BudgetInsights(dailies(month))...)
	return s.persist(ctx, &c.ID, &c.PlatformID, found)
}

// PlatformInsights runs the audience generator on the latest snapshot of a
// platform. A platform without snapshots yields no insights.
func (s *MarketingServiceImpl) PlatformInsights(ctx context.Context, platformID int64) ([]model.MarketingInsight, error) {
	p, err := s.repo.GetPlatform(ctx, platformID)
	if err != nil {
		return nil, err
	}
	snap, err := s.repo.LatestAudience(ctx, platformID)
	if errors.Is(err, repository.ErrNotFound) {
		return []model.MarketingInsight{}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, nil, &p.ID, analytics.AudienceInsights(snap.Audience))
}
