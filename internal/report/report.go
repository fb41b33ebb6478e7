package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/estimator/internal/analytics"
	"github.com/Simplici0/estimator/internal/depreciation"
	"github.com/Simplici0/estimator/internal/model"
)

// ErrUnknownKind is returned by Build for a report kind it does not know.
var ErrUnknownKind = errors.New("unknown report kind")

// Report kinds.
const (
	KindEstimates    = "estimates"
	KindDepreciation = "depreciation"
	KindMarketing    = "marketing"
)

// Type describes an available report.
type Type struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Types lists the period reports Build can produce.
func Types() []Type {
	return []Type{
		{Key: KindEstimates, Name: "Estimates report", Description: "Project estimates issued in the period with status breakdown"},
		{Key: KindDepreciation, Name: "Depreciation report", Description: "Book value and accumulated depreciation of assets purchased in the period"},
		{Key: KindMarketing, Name: "Marketing report", Description: "Campaign spend, results and rates for the period"},
	}
}

type EstimateLister interface {
	List(ctx context.Context, f model.EstimateFilter) ([]model.ProjectEstimate, error)
}

type AssetLister interface {
	List(ctx context.Context, f model.AssetFilter) ([]model.Asset, error)
}

// MarketingSource lists campaigns and metrics. A zero id lists across all
// platforms or campaigns.
type MarketingSource interface {
	ListPlatforms(ctx context.Context, activeOnly bool) ([]model.MarketingPlatform, error)
	ListCampaigns(ctx context.Context, platformID int64) ([]model.MarketingCampaign, error)
	ListMetrics(ctx context.Context, campaignID int64, from, to model.Date) ([]model.MarketingMetric, error)
}

// Builder assembles period reports from the domain services.
type Builder struct {
	estimates EstimateLister
	assets    AssetLister
	marketing MarketingSource
	now       func() time.Time
}

func NewBuilder(estimates EstimateLister, assets AssetLister, marketing MarketingSource) *Builder {
	return &Builder{estimates: estimates, assets: assets, marketing: marketing, now: time.Now}
}

// Build produces the report of the given kind over r.
func (b *Builder) Build(ctx context.Context, kind string, r Range) (Document, error) {
	switch kind {
	case KindEstimates:
		return document(b.Estimates(ctx, r))
	case KindDepreciation:
		return document(b.Depreciation(ctx, r))
	case KindMarketing:
		return document(b.Marketing(ctx, r))
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

func document[T Document](doc T, err error) (Document, error) {
	if err != nil {
		return nil, err
	}
	return doc, nil
}

type EstimatesSummary struct {
	TotalEstimates int             `json:"total_estimates"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	AverageAmount  decimal.Decimal `json:"average_amount"`
	ApprovalRate   float64         `json:"approval_rate"`
}

type StatusCount struct {
	Status string          `json:"status"`
	Count  int             `json:"count"`
	Total  decimal.Decimal `json:"total"`
}

type EstimateRow struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Client        string          `json:"client"`
	EstimateDate  model.Date      `json:"estimate_date"`
	Status        string          `json:"status"`
	TotalEstimate decimal.Decimal `json:"total_estimate"`
}

type EstimatesReport struct {
	Period          Range            `json:"period"`
	Summary         EstimatesSummary `json:"summary"`
	StatusBreakdown []StatusCount    `json:"status_breakdown"`
	Estimates       []EstimateRow    `json:"estimates"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// Estimates summarizes estimates dated within r. Approved and executed
// estimates count towards the approval rate.
func (b *Builder) Estimates(ctx context.Context, r Range) (*EstimatesReport, error) {
	from, to := r.bounds()
	estimates, err := b.estimates.List(ctx, model.EstimateFilter{From: from, To: to})
	if err != nil {
		return nil, err
	}

	rep := &EstimatesReport{
		Period:          r,
		Summary:         EstimatesSummary{TotalAmount: decimal.Zero, AverageAmount: decimal.Zero},
		StatusBreakdown: []StatusCount{},
		Estimates:       make([]EstimateRow, 0, len(estimates)),
		GeneratedAt:     b.now().UTC(),
	}
	index := map[string]int{}
	approved := 0
	for _, e := range estimates {
		rep.Summary.TotalEstimates++
		rep.Summary.TotalAmount = rep.Summary.TotalAmount.Add(e.TotalEstimate)
		if e.Status == model.EstimateApproved || e.Status == model.EstimateExecuted {
			approved++
		}

		i, ok := index[e.Status]
		if !ok {
			i = len(rep.StatusBreakdown)
			index[e.Status] = i
			rep.StatusBreakdown = append(rep.StatusBreakdown, StatusCount{Status: e.Status, Total: decimal.Zero})
		}
		rep.StatusBreakdown[i].Count++
		rep.StatusBreakdown[i].Total = rep.StatusBreakdown[i].Total.Add(e.TotalEstimate)

		rep.Estimates = append(rep.Estimates, EstimateRow{
			ID:            e.ID,
			Name:          e.Name,
			Client:        e.Client,
			EstimateDate:  e.EstimateDate,
			Status:        e.Status,
			TotalEstimate: e.TotalEstimate,
		})
	}
	if n := rep.Summary.TotalEstimates; n > 0 {
		rep.Summary.AverageAmount = rep.Summary.TotalAmount.Div(decimal.NewFromInt(int64(n))).Round(2)
		rep.Summary.ApprovalRate = round2(float64(approved) / float64(n) * 100)
	}
	sort.Slice(rep.StatusBreakdown, func(i, j int) bool {
		return rep.StatusBreakdown[i].Status < rep.StatusBreakdown[j].Status
	})
	return rep, nil
}

func (r *EstimatesReport) Sheet() Sheet {
	s := Sheet{
		Title: "Estimates report " + periodLabel(r.Period),
		Summary: []Field{
			{"Total estimates", r.Summary.TotalEstimates},
			{"Total amount", r.Summary.TotalAmount},
			{"Average amount", r.Summary.AverageAmount},
			{"Approval rate", r.Summary.ApprovalRate},
		},
	}
	status := Table{Title: "Status breakdown", Columns: []string{"Status", "Count", "Total"}}
	for _, c := range r.StatusBreakdown {
		status.Rows = append(status.Rows, []any{c.Status, c.Count, c.Total})
	}
	list := Table{Title: "Estimates", Columns: []string{"ID", "Name", "Client", "Date", "Status", "Total"}}
	for _, e := range r.Estimates {
		list.Rows = append(list.Rows, []any{e.ID, e.Name, e.Client, e.EstimateDate, e.Status, e.TotalEstimate})
	}
	s.Tables = []Table{status, list}
	return s
}

type DepreciationSummary struct {
	TotalAssets                   int             `json:"total_assets"`
	TotalPurchaseCost             decimal.Decimal `json:"total_purchase_cost"`
	TotalAccumulated              decimal.Decimal `json:"total_accumulated_depreciation"`
	TotalCurrentValue             decimal.Decimal `json:"total_current_value"`
	TotalMonthlyDepreciation      decimal.Decimal `json:"total_monthly_depreciation"`
	FullyDepreciatedAssets        int             `json:"fully_depreciated_assets"`
	AverageDepreciationPercentage float64         `json:"average_depreciation_percentage"`
}

type CategoryTotals struct {
	Category            string          `json:"category"`
	Assets              int             `json:"assets"`
	PurchaseCost        decimal.Decimal `json:"purchase_cost"`
	Accumulated         decimal.Decimal `json:"accumulated_depreciation"`
	CurrentValue        decimal.Decimal `json:"current_value"`
	MonthlyDepreciation decimal.Decimal `json:"monthly_depreciation"`
}

type AssetRow struct {
	AssetCode              string          `json:"asset_code"`
	Name                   string          `json:"name"`
	Category               string          `json:"category"`
	Status                 string          `json:"status"`
	PurchaseDate           model.Date      `json:"purchase_date"`
	PurchaseCost           decimal.Decimal `json:"purchase_cost"`
	Accumulated            decimal.Decimal `json:"accumulated_depreciation"`
	CurrentValue           decimal.Decimal `json:"current_value"`
	DepreciationPercentage decimal.Decimal `json:"depreciation_percentage"`
}

type DepreciationReport struct {
	Period            Range               `json:"period"`
	Summary           DepreciationSummary `json:"summary"`
	CategoryBreakdown []CategoryTotals    `json:"category_breakdown"`
	Assets            []AssetRow          `json:"assets"`
	GeneratedAt       time.Time           `json:"generated_at"`
}

// Depreciation summarizes the assets purchased within r.
func (b *Builder) Depreciation(ctx context.Context, r Range) (*DepreciationReport, error) {
	from, to := r.bounds()
	assets, err := b.assets.List(ctx, model.AssetFilter{From: from, To: to})
	if err != nil {
		return nil, err
	}

	rep := &DepreciationReport{
		Period: r,
		Summary: DepreciationSummary{
			TotalPurchaseCost:        decimal.Zero,
			TotalAccumulated:         decimal.Zero,
			TotalCurrentValue:        decimal.Zero,
			TotalMonthlyDepreciation: decimal.Zero,
		},
		CategoryBreakdown: []CategoryTotals{},
		Assets:            make([]AssetRow, 0, len(assets)),
		GeneratedAt:       b.now().UTC(),
	}
	index := map[string]int{}
	var pctSum float64
	for _, a := range assets {
		sum := &rep.Summary
		sum.TotalAssets++
		sum.TotalPurchaseCost = sum.TotalPurchaseCost.Add(a.PurchaseCost)
		sum.TotalAccumulated = sum.TotalAccumulated.Add(a.AccumulatedDepreciation)
		sum.TotalCurrentValue = sum.TotalCurrentValue.Add(a.CurrentValue)
		sum.TotalMonthlyDepreciation = sum.TotalMonthlyDepreciation.Add(a.MonthlyDepreciation)
		if a.Status == depreciation.StatusFullyDepreciated {
			sum.FullyDepreciatedAssets++
		}
		pctSum += a.DepreciationPercentage.InexactFloat64()

		i, ok := index[a.CategoryName]
		if !ok {
			i = len(rep.CategoryBreakdown)
			index[a.CategoryName] = i
			rep.CategoryBreakdown = append(rep.CategoryBreakdown, CategoryTotals{
				Category:            a.CategoryName,
				PurchaseCost:        decimal.Zero,
				Accumulated:         decimal.Zero,
				CurrentValue:        decimal.Zero,
				MonthlyDepreciation: decimal.Zero,
			})
		}
		c := &rep.CategoryBreakdown[i]
		c.Assets++
		c.PurchaseCost = c.PurchaseCost.Add(a.PurchaseCost)
		c.Accumulated = c.Accumulated.Add(a.AccumulatedDepreciation)
		c.CurrentValue = c.CurrentValue.Add(a.CurrentValue)
		c.MonthlyDepreciation = c.MonthlyDepreciation.Add(a.MonthlyDepreciation)

		rep.Assets = append(rep.Assets, AssetRow{
			AssetCode:              a.AssetCode,
			Name:                   a.Name,
			Category:               a.CategoryName,
			Status:                 string(a.Status),
			PurchaseDate:           a.PurchaseDate,
			PurchaseCost:           a.PurchaseCost,
			Accumulated:            a.AccumulatedDepreciation,
			CurrentValue:           a.CurrentValue,
			DepreciationPercentage: a.DepreciationPercentage,
		})
	}
	if n := rep.Summary.TotalAssets; n > 0 {
		rep.Summary.AverageDepreciationPercentage = round2(pctSum / float64(n))
	}
	sort.Slice(rep.CategoryBreakdown, func(i, j int) bool {
		return rep.CategoryBreakdown[i].Category < rep.CategoryBreakdown[j].Category
	})
	return rep, nil
}

func (r *DepreciationReport) Sheet() Sheet {
	s := Sheet{
		Title: "Depreciation report " + periodLabel(r.Period),
		Summary: []Field{
			{"Total assets", r.Summary.TotalAssets},
			{"Total purchase cost", r.Summary.TotalPurchaseCost},
			{"Total accumulated depreciation", r.Summary.TotalAccumulated},
			{"Total current value", r.Summary.TotalCurrentValue},
			{"Total monthly depreciation", r.Summary.TotalMonthlyDepreciation},
			{"Fully depreciated assets", r.Summary.FullyDepreciatedAssets},
			{"Average depreciation percentage", r.Summary.AverageDepreciationPercentage},
		},
	}
	cats := Table{Title: "By category", Columns: []string{"Category", "Assets", "Purchase cost", "Accumulated", "Current value", "Monthly depreciation"}}
	for _, c := range r.CategoryBreakdown {
		cats.Rows = append(cats.Rows, []any{c.Category, c.Assets, c.PurchaseCost, c.Accumulated, c.CurrentValue, c.MonthlyDepreciation})
	}
	list := Table{Title: "Assets", Columns: []string{"Code", "Name", "Category", "Status", "Purchase date", "Purchase cost", "Accumulated", "Current value", "Depreciation %"}}
	for _, a := range r.Assets {
		list.Rows = append(list.Rows, []any{a.AssetCode, a.Name, a.Category, a.Status, a.PurchaseDate, a.PurchaseCost, a.Accumulated, a.CurrentValue, a.DepreciationPercentage})
	}
	s.Tables = []Table{cats, list}
	return s
}

// Totals are summed counters with their derived rates.
type Totals struct {
	Impressions       int64           `json:"impressions"`
	Clicks            int64           `json:"clicks"`
	Conversions       int64           `json:"conversions"`
	Spend             decimal.Decimal `json:"spend"`
	Revenue           decimal.Decimal `json:"revenue"`
	CTR               float64         `json:"click_through_rate"`
	ConversionRate    float64         `json:"conversion_rate"`
	EngagementRate    float64         `json:"engagement_rate"`
	ROAS              float64         `json:"return_on_ad_spend"`
	CostPerConversion decimal.Decimal `json:"cost_per_conversion"`
}

func totals(d analytics.DailyMetrics) Totals {
	return Totals{
		Impressions:       d.Impressions,
		Clicks:            d.Clicks,
		Conversions:       d.Conversions,
		Spend:             d.Spend,
		Revenue:           d.Revenue,
		CTR:               round2(d.CTR()),
		ConversionRate:    round2(d.ConversionRate()),
		EngagementRate:    round2(d.EngagementRate()),
		ROAS:              round2(d.ROAS()),
		CostPerConversion: d.CostPerConversion().Round(2),
	}
}

func accumulate(into *analytics.DailyMetrics, m analytics.DailyMetrics) {
	into.Impressions += m.Impressions
	into.Reach += m.Reach
	into.Clicks += m.Clicks
	into.Likes += m.Likes
	into.Comments += m.Comments
	into.Shares += m.Shares
	into.Saves += m.Saves
	into.Conversions += m.Conversions
	into.Spend = into.Spend.Add(m.Spend)
	into.Revenue = into.Revenue.Add(m.Revenue)
}

func zeroMetrics() analytics.DailyMetrics {
	return analytics.DailyMetrics{Spend: decimal.Zero, Revenue: decimal.Zero}
}

type CampaignTotals struct {
	CampaignID int64  `json:"campaign_id"`
	Platform   string `json:"platform"`
	Campaign   string `json:"campaign"`
	Totals
}

type DailyTotals struct {
	Date model.Date `json:"date"`
	Totals
}

type MarketingReport struct {
	Period      Range            `json:"period"`
	Summary     Totals           `json:"summary"`
	Campaigns   []CampaignTotals `json:"campaigns"`
	Daily       []DailyTotals    `json:"daily"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Marketing totals campaign metrics dated within r, per campaign and per day.
// Campaigns without metrics in the period are left out.
func (b *Builder) Marketing(ctx context.Context, r Range) (*MarketingReport, error) {
	platforms, err := b.marketing.ListPlatforms(ctx, false)
	if err != nil {
		return nil, err
	}
	platformNames := make(map[int64]string, len(platforms))
	for _, p := range platforms {
		platformNames[p.ID] = p.Name
	}
	campaigns, err := b.marketing.ListCampaigns(ctx, 0)
	if err != nil {
		return nil, err
	}
	metrics, err := b.marketing.ListMetrics(ctx, 0, r.Start, r.End)
	if err != nil {
		return nil, err
	}

	overall := zeroMetrics()
	byCampaign := map[int64]*analytics.DailyMetrics{}
	byDay := map[model.Date]*analytics.DailyMetrics{}
	for _, m := range metrics {
		d := m.Daily()
		accumulate(&overall, d)

		c, ok := byCampaign[m.CampaignID]
		if !ok {
			z := zeroMetrics()
			c = &z
			byCampaign[m.CampaignID] = c
		}
		accumulate(c, d)

		day, ok := byDay[m.Date]
		if !ok {
			z := zeroMetrics()
			day = &z
			byDay[m.Date] = day
		}
		accumulate(day, d)
	}

	rep := &MarketingReport{
		Period:      r,
		Summary:     totals(overall),
		Campaigns:   []CampaignTotals{},
		Daily:       make([]DailyTotals, 0, len(byDay)),
		GeneratedAt: b.now().UTC(),
	}
	for _, c := range campaigns {
		sum, ok := byCampaign[c.ID]
		if !ok {
			continue
		}
		rep.Campaigns = append(rep.Campaigns, CampaignTotals{
			CampaignID: c.ID,
			Platform:   platformNames[c.PlatformID],
			Campaign:   c.Name,
			Totals:     totals(*sum),
		})
	}
	for day, sum := range byDay {
		rep.Daily = append(rep.Daily, DailyTotals{Date: day, Totals: totals(*sum)})
	}
	sort.Slice(rep.Daily, func(i, j int) bool { return rep.Daily[i].Date.Before(rep.Daily[j].Date.Time) })
	return rep, nil
}

func totalsRow(t Totals) []any {
	return []any{t.Impressions, t.Clicks, t.Conversions, t.Spend, t.Revenue, t.CTR, t.ConversionRate, t.ROAS, t.CostPerConversion}
}

var totalsColumns = []string{"Impressions", "Clicks", "Conversions", "Spend", "Revenue", "CTR %", "Conversion rate %", "ROAS %", "Cost per conversion"}

func (r *MarketingReport) Sheet() Sheet {
	s := Sheet{
		Title: "Marketing report " + periodLabel(r.Period),
		Summary: []Field{
			{"Impressions", r.Summary.Impressions},
			{"Clicks", r.Summary.Clicks},
			{"Conversions", r.Summary.Conversions},
			{"Spend", r.Summary.Spend},
			{"Revenue", r.Summary.Revenue},
			{"Click through rate", r.Summary.CTR},
			{"Conversion rate", r.Summary.ConversionRate},
			{"Engagement rate", r.Summary.EngagementRate},
			{"Return on ad spend", r.Summary.ROAS},
			{"Cost per conversion", r.Summary.CostPerConversion},
		},
	}
	camps := Table{Title: "By campaign", Columns: append([]string{"Platform", "Campaign"}, totalsColumns...)}
	for _, c := range r.Campaigns {
		camps.Rows = append(camps.Rows, append([]any{c.Platform, c.Campaign}, totalsRow(c.Totals)...))
	}
	daily := Table{Title: "Daily", Columns: append([]string{"Date"}, totalsColumns...)}
	for _, d := range r.Daily {
		daily.Rows = append(daily.Rows, append([]any{d.Date}, totalsRow(d.Totals)...))
	}
	s.Tables = []Table{camps, daily}
	return s
}

// Estimate is the printable report of a single estimate.
type Estimate struct {
	model.EstimateReport
}

func (r Estimate) Sheet() Sheet {
	e := r.Estimate
	s := Sheet{
		Title: fmt.Sprintf("Estimate %d: %s", e.ID, e.Name),
		Summary: []Field{
			{"Client", e.Client},
			{"Location", e.Location},
			{"Estimate date", e.EstimateDate},
			{"Valid until", e.ValidityEndDate},
			{"Status", e.Status},
			{"Subtotal", r.Summary.Subtotal},
			{"Site factor", r.Summary.SiteFactor},
			{"Season factor", r.Summary.SeasonFactor},
			{"Total estimate", r.Summary.TotalEstimate},
		},
	}
	for _, sec := range r.CategoryBreakdown {
		t := Table{Title: sec.Category, Columns: []string{"Code", "Analysis", "Unit", "Quantity", "Unit price", "Total"}}
		for _, it := range sec.Items {
			t.Rows = append(t.Rows, []any{it.AnalysisCode, it.AnalysisName, it.Unit, it.Quantity, it.UnitPrice, it.TotalAmount})
		}
		t.Rows = append(t.Rows, []any{"", "Subtotal", "", "", "", sec.Subtotal})
		s.Tables = append(s.Tables, t)
	}
	return s
}

func periodLabel(r Range) string {
	start, end := r.Start.String(), r.End.String()
	switch {
	case start == "" && end == "":
		return "(all dates)"
	case start == "":
		return "up to " + end
	case end == "":
		return "from " + start
	}
	return start + " to " + end
}
