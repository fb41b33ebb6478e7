package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Simplici0/estimator/internal/analytics"
	"github.com/Simplici0/estimator/internal/model"
)

// MarketingRepository persists platforms, campaigns, daily metrics, audience
// snapshots and generated insights.
type MarketingRepository interface {
	ListPlatforms(ctx context.Context, activeOnly bool) ([]model.MarketingPlatform, error)
	GetPlatform(ctx context.Context, id int64) (model.MarketingPlatform, error)
	CreatePlatform(ctx context.Context, p *model.MarketingPlatform) error
	DeletePlatform(ctx context.Context, id int64) error
	SetLastSync(ctx context.Context, id int64, at time.Time) error

	ListCampaigns(ctx context.Context, platformID int64) ([]model.MarketingCampaign, error)
	GetCampaign(ctx context.Context, id int64) (model.MarketingCampaign, error)
	CreateCampaign(ctx context.Context, c *model.MarketingCampaign) error
	// UpsertCampaign matches on (platform_id, campaign_id) and sets c.ID.
	UpsertCampaign(ctx context.Context, c *model.MarketingCampaign) error

	// UpsertMetric matches on (campaign_id, date) and sets m.ID.
	UpsertMetric(ctx context.Context, m *model.MarketingMetric) error
	// ListMetrics returns the metrics of a campaign, oldest first. A zero
	// campaignID lists every campaign. Zero bounds are open.
	ListMetrics(ctx context.Context, campaignID int64, from, to model.Date) ([]model.MarketingMetric, error)

	UpsertAudience(ctx context.Context, s *model.AudienceSnapshot) error
	LatestAudience(ctx context.Context, platformID int64) (model.AudienceSnapshot, error)

	CreateInsight(ctx context.Context, in *model.MarketingInsight) error
	ListInsights(ctx context.Context, campaignID, platformID int64) ([]model.MarketingInsight, error)
}

type SQLiteMarketingRepository struct {
	db *sql.DB
}

func NewSQLiteMarketingRepository(db *sql.DB) *SQLiteMarketingRepository {
	return &SQLiteMarketingRepository{db: db}
}

const platformColumns = `
	id, name, platform_type, api_base_url, api_key, account_id, is_active, last_sync,
	sync_frequency_hours, created_at
`

func scanPlatform(row interface{ Scan(...any) error }) (model.MarketingPlatform, error) {
	var p model.MarketingPlatform
	err := row.Scan(
		&p.ID, &p.Name, &p.PlatformType, &p.APIBaseURL, &p.APIKey, &p.AccountID, &p.IsActive, scanNullTime(&p.LastSync),
		&p.SyncFrequencyHours, scanTime(&p.CreatedAt),
	)
	return p, err
}

func (r *SQLiteMarketingRepository) ListPlatforms(ctx context.Context, activeOnly bool) ([]model.MarketingPlatform, error) {
	query := `SELECT ` + platformColumns + ` FROM marketing_platforms`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list marketing platforms: %w", err)
	}
	defer rows.Close()

	out := []model.MarketingPlatform{}
	for rows.Next() {
		p, err := scanPlatform(rows)
		if err != nil {
			return nil, fmt.Errorf("scan marketing platform: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteMarketingRepository) GetPlatform(ctx context.Context, id int64) (model.MarketingPlatform, error) {
	p, err := scanPlatform(r.db.QueryRowContext(ctx, `SELECT `+platformColumns+` FROM marketing_platforms WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.MarketingPlatform{}, ErrNotFound
	}
	if err != nil {
		return model.MarketingPlatform{}, fmt.Errorf("get marketing platform: %w", err)
	}
	return p, nil
}

func (r *SQLiteMarketingRepository) CreatePlatform(ctx context.Context, p *model.MarketingPlatform) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO marketing_platforms (
			name, platform_type, api_base_url, api_key, account_id, is_active, last_sync, sync_frequency_hours, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.Name, p.PlatformType, p.APIBaseURL, p.APIKey, p.AccountID, p.IsActive, formatNullTime(p.LastSync),
		p.SyncFrequencyHours, stamp())
	if err != nil {
		return classify("create marketing platform", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("read marketing platform id: %w", err)
	}
	return nil
}

func (r *SQLiteMarketingRepository) DeletePlatform(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM marketing_platforms WHERE id = ?`, id)
	if err != nil {
		return classify("delete marketing platform", err)
	}
	return requireAffected(res, "delete marketing platform")
}

func (r *SQLiteMarketingRepository) SetLastSync(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE marketing_platforms SET last_sync = ? WHERE id = ?`, formatNullTime(&at), id)
	if err != nil {
		return classify("set marketing platform last sync", err)
	}
	return requireAffected(res, "set marketing platform last sync")
}

const campaignColumns = `
	id, platform_id, campaign_id, name, status, objective, daily_budget, start_date, end_date, created_at, updated_at
`

func scanCampaign(row interface{ Scan(...any) error }) (model.MarketingCampaign, error) {
	var c model.MarketingCampaign
	err := row.Scan(
		&c.ID, &c.PlatformID, &c.CampaignID, &c.Name, &c.Status, &c.Objective, &c.DailyBudget, &c.StartDate, &c.EndDate,
		scanTime(&c.CreatedAt), scanTime(&c.UpdatedAt),
	)
	return c, err
}

func (r *SQLiteMarketingRepository) ListCampaigns(ctx context.Context, platformID int64) ([]model.MarketingCampaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM marketing_campaigns`
	var args []any
	if platformID != 0 {
		query += ` WHERE platform_id = ?`
		args = append(args, platformID)
	}
	query += ` ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list marketing campaigns: %w", err)
	}
	defer rows.Close()

	out := []model.MarketingCampaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan marketing campaign: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteMarketingRepository) GetCampaign(ctx context.Context, id int64) (model.MarketingCampaign, error) {
	c, err := scanCampaign(r.db.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM marketing_campaigns WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.MarketingCampaign{}, ErrNotFound
	}
	if err != nil {
		return model.MarketingCampaign{}, fmt.Errorf("get marketing campaign: %w", err)
	}
	return c, nil
}

func (r *SQLiteMarketingRepository) CreateCampaign(ctx context.Context, c *model.MarketingCampaign) error {
	now := stamp()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO marketing_campaigns (
			platform_id, campaign_id, name, status, objective, daily_budget, start_date, end_date, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.PlatformID, c.CampaignID, c.Name, c.Status, c.Objective, c.DailyBudget, c.StartDate, c.EndDate, now, now)
	if err != nil {
		return classify("create marketing campaign", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("read marketing campaign id: %w", err)
	}
	return nil
}

func (r *SQLiteMarketingRepository) UpsertCampaign(ctx context.Context, c *model.MarketingCampaign) error {
	now := stamp()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO marketing_campaigns (
			platform_id, campaign_id, name, status, objective, daily_budget, start_date, end_date, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (platform_id, campaign_id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			objective = excluded.objective,
			daily_budget = excluded.daily_budget,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			updated_at = excluded.updated_at
		RETURNING id
	`, c.PlatformID, c.CampaignID, c.Name, c.Status, c.Objective, c.DailyBudget, c.StartDate, c.EndDate, now, now).Scan(&c.ID)
	if err != nil {
		return classify("upsert marketing campaign", err)
	}
	return nil
}

const metricColumns = `
	id, campaign_id, date, impressions, reach, clicks, likes, comments, shares, saves, conversions, spend, revenue
`

func (r *SQLiteMarketingRepository) UpsertMetric(ctx context.Context, m *model.MarketingMetric) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO marketing_metrics (
			campaign_id, date, impressions, reach, clicks, likes, comments, shares, saves, conversions, spend, revenue
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (campaign_id, date) DO UPDATE SET
			impressions = excluded.impressions,
			reach = excluded.reach,
			clicks = excluded.clicks,
			likes = excluded.likes,
			comments = excluded.comments,
			shares = excluded.shares,
			saves = excluded.saves,
			conversions = excluded.conversions,
			spend = excluded.spend,
			revenue = excluded.revenue
		RETURNING id
	`, m.CampaignID, m.Date, m.Impressions, m.Reach, m.Clicks, m.Likes, m.Comments, m.Shares, m.Saves,
		m.Conversions, m.Spend, m.Revenue).Scan(&m.ID)
	if err != nil {
		return classify("upsert marketing metric", err)
	}
	return nil
}

func (r *SQLiteMarketingRepository) ListMetrics(ctx context.Context, campaignID int64, from, to model.Date) ([]model.MarketingMetric, error) {
	query := `SELECT ` + metricColumns + ` FROM marketing_metrics WHERE 1 = 1`
	var args []any
	if campaignID != 0 {
		query += ` AND campaign_id = ?`
		args = append(args, campaignID)
	}
	if !from.IsZero() {
		query += ` AND date >= ?`
		args = append(args, from)
	}
	if !to.IsZero() {
		query += ` AND date <= ?`
		args = append(args, to)
	}
	query += ` ORDER BY date, campaign_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list marketing metrics: %w", err)
	}
	defer rows.Close()

	out := []model.MarketingMetric{}
	for rows.Next() {
		var m model.MarketingMetric
		if err := rows.Scan(
			&m.ID, &m.CampaignID, &m.Date, &m.Impressions, &m.Reach, &m.Clicks, &m.Likes, &m.Comments,
			&m.Shares, &m.Saves, &m.Conversions, &m.Spend, &m.Revenue,
		); err != nil {
			return nil, fmt.Errorf("scan marketing metric: %w", err)
		}
		out = append(out, m.WithRates())
	}
	return out, rows.Err()
}

func (r *SQLiteMarketingRepository) UpsertAudience(ctx context.Context, s *model.AudienceSnapshot) error {
	audience, err := encodeJSON(s.Audience)
	if err != nil {
		return err
	}
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO marketing_audience (platform_id, date, audience)
		VALUES (?, ?, ?)
		ON CONFLICT (platform_id, date) DO UPDATE SET audience = excluded.audience
		RETURNING id
	`, s.PlatformID, s.Date, audience).Scan(&s.ID)
	if err != nil {
		return classify("upsert audience snapshot", err)
	}
	return nil
}

func (r *SQLiteMarketingRepository) LatestAudience(ctx context.Context, platformID int64) (model.AudienceSnapshot, error) {
	var (
		s        model.AudienceSnapshot
		audience analytics.Audience
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, platform_id, date, audience
		FROM marketing_audience
		WHERE platform_id = ?
		ORDER BY date DESC
		LIMIT 1
	`, platformID).Scan(&s.ID, &s.PlatformID, &s.Date, scanJSON(&audience))
	if errors.Is(err, sql.ErrNoRows) {
		return model.AudienceSnapshot{}, ErrNotFound
	}
	if err != nil {
		return model.AudienceSnapshot{}, fmt.Errorf("get latest audience snapshot: %w", err)
	}
	s.Audience = audience
	return s, nil
}

func (r *SQLiteMarketingRepository) CreateInsight(ctx context.Context, in *model.MarketingInsight) error {
	actions, err := encodeJSON(in.RecommendedActions)
	if err != nil {
		return err
	}
	now := Clock()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO marketing_insights (
			campaign_id, platform_id, insight_type, priority, title, description,
			recommended_actions, confidence_score, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, in.CampaignID, in.PlatformID, in.Type, in.Priority, in.Title, in.Description,
		actions, in.ConfidenceScore, formatNullTime(&now))
	if err != nil {
		return classify("create marketing insight", err)
	}
	if in.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("read marketing insight id: %w", err)
	}
	in.CreatedAt = now
	return nil
}

// ListInsights filters by campaign, platform, or both when non-zero, newest first.
func (r *SQLiteMarketingRepository) ListInsights(ctx context.Context, campaignID, platformID int64) ([]model.MarketingInsight, error) {
	query := `
		SELECT id, campaign_id, platform_id, insight_type, priority, title, description,
			recommended_actions, confidence_score, created_at
		FROM marketing_insights WHERE 1 = 1`
	var args []any
	if campaignID != 0 {
		query += ` AND campaign_id = ?`
		args = append(args, campaignID)
	}
	if platformID != 0 {
		query += ` AND platform_id = ?`
		args = append(args, platformID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list marketing insights: %w", err)
	}
	defer rows.Close()

	out := []model.MarketingInsight{}
	for rows.Next() {
		var in model.MarketingInsight
		if err := rows.Scan(
			&in.ID, &in.CampaignID, &in.PlatformID, &in.Type, &in.Priority, &in.Title, &in.Description,
			scanJSON(&in.RecommendedActions), &in.ConfidenceScore, scanTime(&in.CreatedAt),
		); err != nil {
			return nil, fmt.Errorf("scan marketing insight: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}
