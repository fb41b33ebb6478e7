package marketing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/Simplici0/estimator/internal/analytics"
	"github.com/Simplici0/estimator/internal/model"
)

const googleBaseURL = "https://googleads.googleapis.com/v14"

const googleCampaignQuery = `
SELECT campaign.id, campaign.name, campaign.status, campaign.advertising_channel_type,
  campaign.start_date, campaign.end_date, campaign_budget.amount_micros
FROM campaign`

// googleClient reads a Google Ads customer through searchStream queries.
// YouTube campaigns are served by the same API.
type googleClient struct {
	t        *transport
	customer string
}

// micros converts a cost_micros style field to currency units.
func micros(r gjson.Result) decimal.Decimal {
	return decimal.NewFromInt(r.Int()).Shift(-6)
}

func (c *googleClient) search(ctx context.Context, query string) ([]gjson.Result, error) {
	res, err := c.t.call(ctx, http.MethodPost, "/customers/"+c.customer+"/googleAds:searchStream", nil,
		map[string]string{"query": query})
	if err != nil {
		return nil, err
	}
	// searchStream answers with an array of batches, search with a single one.
	if res.IsArray() {
		return res.Get("#.results|@flatten").Array(), nil
	}
	return res.Get("results").Array(), nil
}

func (c *googleClient) Ping(ctx context.Context) error {
	res, err := c.t.call(ctx, http.MethodGet, "/customers/"+c.customer, nil, nil)
	if err != nil {
		return err
	}
	if !res.Get("resourceName").Exists() {
		return errors.New("unexpected customer response")
	}
	return nil
}

func (c *googleClient) Campaigns(ctx context.Context) ([]model.MarketingCampaign, error) {
	rows, err := c.search(ctx, googleCampaignQuery)
	if err != nil {
		return nil, fmt.Errorf("search campaigns: %w", err)
	}
	out := make([]model.MarketingCampaign, 0, len(rows))
	for _, r := range rows {
		id := r.Get("campaign.id").String()
		if id == "" {
			continue
		}
		out = append(out, model.MarketingCampaign{
			CampaignID:  id,
			Name:        r.Get("campaign.name").String(),
			Status:      strings.ToLower(r.Get("campaign.status").String()),
			Objective:   r.Get("campaign.advertisingChannelType").String(),
			DailyBudget: micros(r.Get("campaignBudget.amountMicros")),
			StartDate:   optionalDay(r.Get("campaign.startDate")),
			EndDate:     optionalDay(r.Get("campaign.endDate")),
		})
	}
	return out, nil
}

func (c *googleClient) Metrics(ctx context.Context, campaignID string, from, to model.Date) ([]model.MarketingMetric, error) {
	id, err := strconv.ParseInt(campaignID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("google ads campaign id %q is not numeric", campaignID)
	}
	rows, err := c.search(ctx, fmt.Sprintf(`
SELECT segments.date, metrics.impressions, metrics.clicks, metrics.conversions,
  metrics.cost_micros, metrics.conversions_value
FROM campaign
WHERE campaign.id = %d AND segments.date BETWEEN '%s' AND '%s'`, id, from, to))
	if err != nil {
		return nil, fmt.Errorf("search campaign metrics: %w", err)
	}

	days := dailyRows{}
	for _, r := range rows {
		d, ok := day(r.Get("segments.date"))
		if !ok {
			continue
		}
		m := days.at(d)
		m.Impressions += r.Get("metrics.impressions").Int()
		m.Clicks += r.Get("metrics.clicks").Int()
		m.Conversions += int64(math.Round(r.Get("metrics.conversions").Float()))
		m.Spend = m.Spend.Add(micros(r.Get("metrics.costMicros")))
		m.Revenue = m.Revenue.Add(amount(r.Get("metrics.conversionsValue")))
	}
	return days.sorted(), nil
}

// ageLabel turns AGE_RANGE_25_34 into 25-34 and AGE_RANGE_65_UP into 65+.
func ageLabel(t string) string {
	t = strings.TrimPrefix(t, "AGE_RANGE_")
	if strings.HasSuffix(t, "_UP") {
		return strings.TrimSuffix(t, "_UP") + "+"
	}
	return strings.ReplaceAll(strings.ToLower(t), "_", "-")
}

func (c *googleClient) Audience(ctx context.Context, from, to model.Date) (analytics.Audience, error) {
	period := fmt.Sprintf(`segments.date BETWEEN '%s' AND '%s'`, from, to)

	ages, err := c.search(ctx, `SELECT ad_group_criterion.age_range.type, metrics.impressions FROM age_range_view WHERE `+period)
	if err != nil {
		return analytics.Audience{}, fmt.Errorf("search age ranges: %w", err)
	}
	ageCounts := map[string]int64{}
	for _, r := range ages {
		t := r.Get("adGroupCriterion.ageRange.type").String()
		if t == "" {
			continue
		}
		ageCounts[ageLabel(t)] += r.Get("metrics.impressions").Int()
	}

	geo, err := c.search(ctx, `SELECT geographic_view.country_criterion_id, metrics.impressions FROM geographic_view WHERE `+period)
	if err != nil {
		return analytics.Audience{}, fmt.Errorf("search geography: %w", err)
	}
	countryCounts := map[string]int64{}
	for _, r := range geo {
		country := r.Get("geographicView.countryCriterionId").String()
		if country == "" {
			continue
		}
		countryCounts[country] += r.Get("metrics.impressions").Int()
	}

	return analytics.Audience{AgeGroups: shares(ageCounts), TopLocations: locations(countryCounts)}, nil
}
