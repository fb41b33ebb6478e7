package marketing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/Simplici0/estimator/internal/analytics"
	"github.com/Simplici0/estimator/internal/model"
)

const graphBaseURL = "https://graph.facebook.com/v18.0"

// instagramAccountCampaign is the campaign id under which account level
// Instagram metrics are stored.
const instagramAccountCampaign = "instagram_account"

func graphAuth(token string) func(*http.Request) {
	return func(r *http.Request) {
		q := r.URL.Query()
		q.Set("access_token", token)
		r.URL.RawQuery = q.Encode()
	}
}

func graphPing(ctx context.Context, t *transport) error {
	res, err := t.call(ctx, http.MethodGet, "/me", url.Values{"fields": {"id"}}, nil)
	if err != nil {
		return err
	}
	if res.Get("id").String() == "" {
		return errors.New("unexpected /me response")
	}
	return nil
}

func timeRange(from, to model.Date) string {
	return fmt.Sprintf(`{"since":"%s","until":"%s"}`, from, to)
}

// instagramClient reads an Instagram business account. The account has no
// campaigns of its own, so its daily insights are reported under a single
// virtual campaign.
type instagramClient struct {
	t       *transport
	account string
	name    string
}

func (c *instagramClient) Ping(ctx context.Context) error {
	return graphPing(ctx, c.t)
}

func (c *instagramClient) Campaigns(context.Context) ([]model.MarketingCampaign, error) {
	return []model.MarketingCampaign{{
		CampaignID:  instagramAccountCampaign,
		Name:        c.name + " - main account",
		Status:      "active",
		Objective:   "engagement",
		DailyBudget: decimal.Zero,
	}}, nil
}

func (c *instagramClient) Metrics(ctx context.Context, campaignID string, from, to model.Date) ([]model.MarketingMetric, error) {
	if campaignID != instagramAccountCampaign {
		return []model.MarketingMetric{}, nil
	}
	res, err := c.t.call(ctx, http.MethodGet, "/"+c.account+"/insights", url.Values{
		"metric": {"impressions,reach"},
		"period": {"day"},
		"since":  {from.String()},
		"until":  {to.String()},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("get account insights: %w", err)
	}

	days := dailyRows{}
	for _, series := range res.Get("data").Array() {
		name := series.Get("name").String()
		for _, v := range series.Get("values").Array() {
			d, ok := day(v.Get("end_time"))
			if !ok {
				continue
			}
			m := days.at(d)
			switch name {
			case "impressions":
				m.Impressions += v.Get("value").Int()
			case "reach":
				m.Reach += v.Get("value").Int()
			}
		}
	}
	return days.sorted(), nil
}

func (c *instagramClient) Audience(ctx context.Context, _, _ model.Date) (analytics.Audience, error) {
	res, err := c.t.call(ctx, http.MethodGet, "/"+c.account+"/insights", url.Values{
		"metric": {"audience_gender_age,audience_country"},
		"period": {"lifetime"},
	}, nil)
	if err != nil {
		return analytics.Audience{}, fmt.Errorf("get audience insights: %w", err)
	}

	ages := map[string]int64{}
	countries := map[string]int64{}
	for _, series := range res.Get("data").Array() {
		value := series.Get("values.0.value")
		switch series.Get("name").String() {
		case "audience_gender_age":
			// keys are gender.range, e.g. F.25-34
			value.ForEach(func(k, v gjson.Result) bool {
				if _, age, ok := strings.Cut(k.String(), "."); ok {
					ages[age] += v.Int()
				}
				return true
			})
		case "audience_country":
			value.ForEach(func(k, v gjson.Result) bool {
				countries[k.String()] += v.Int()
				return true
			})
		}
	}
	return analytics.Audience{AgeGroups: shares(ages), TopLocations: locations(countries)}, nil
}

// facebookClient reads a Facebook ad account.
type facebookClient struct {
	t       *transport
	account string
}

func adAccount(id string) string {
	if strings.HasPrefix(id, "act_") {
		return id
	}
	return "act_" + id
}

// cents converts a minor-unit budget to currency units.
func cents(r gjson.Result) decimal.Decimal {
	return decimal.NewFromInt(r.Int()).Shift(-2)
}

func (c *facebookClient) Ping(ctx context.Context) error {
	return graphPing(ctx, c.t)
}

// TODO: follow paging.next for ad accounts with more than 100 campaigns.
func (c *facebookClient) Campaigns(ctx context.Context) ([]model.MarketingCampaign, error) {
	res, err := c.t.call(ctx, http.MethodGet, "/"+c.account+"/campaigns", url.Values{
		"fields": {"id,name,status,objective,daily_budget,start_time,stop_time"},
		"limit":  {"100"},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}

	data := res.Get("data").Array()
	out := make([]model.MarketingCampaign, 0, len(data))
	for _, r := range data {
		id := r.Get("id").String()
		if id == "" {
			continue
		}
		out = append(out, model.MarketingCampaign{
			CampaignID:  id,
			Name:        r.Get("name").String(),
			Status:      strings.ToLower(r.Get("status").String()),
			Objective:   r.Get("objective").String(),
			DailyBudget: cents(r.Get("daily_budget")),
			StartDate:   optionalDay(r.Get("start_time")),
			EndDate:     optionalDay(r.Get("stop_time")),
		})
	}
	return out, nil
}

// actionCount reads the value of one action type from an actions list.
func actionCount(r gjson.Result, actionType string) gjson.Result {
	return r.Get(fmt.Sprintf(`#(action_type==%q).value`, actionType))
}

func (c *facebookClient) Metrics(ctx context.Context, campaignID string, from, to model.Date) ([]model.MarketingMetric, error) {
	res, err := c.t.call(ctx, http.MethodGet, "/"+url.PathEscape(campaignID)+"/insights", url.Values{
		"fields":         {"impressions,reach,clicks,spend,actions,action_values"},
		"time_increment": {"1"},
		"time_range":     {timeRange(from, to)},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("get campaign insights: %w", err)
	}

	days := dailyRows{}
	for _, r := range res.Get("data").Array() {
		d, ok := day(r.Get("date_start"))
		if !ok {
			continue
		}
		actions := r.Get("actions")
		m := days.at(d)
		m.Impressions += r.Get("impressions").Int()
		m.Reach += r.Get("reach").Int()
		m.Clicks += r.Get("clicks").Int()
		m.Likes += actionCount(actions, "post_reaction").Int()
		m.Comments += actionCount(actions, "comment").Int()
		m.Shares += actionCount(actions, "post").Int()
		m.Saves += actionCount(actions, "onsite_conversion.post_save").Int()
		m.Conversions += actionCount(actions, "purchase").Int()
		m.Spend = m.Spend.Add(amount(r.Get("spend")))
		m.Revenue = m.Revenue.Add(amount(actionCount(r.Get("action_values"), "purchase")))
	}
	return days.sorted(), nil
}

func (c *facebookClient) breakdown(ctx context.Context, by string, from, to model.Date) (map[string]int64, error) {
	res, err := c.t.call(ctx, http.MethodGet, "/"+c.account+"/insights", url.Values{
		"fields":     {"impressions"},
		"breakdowns": {by},
		"time_range": {timeRange(from, to)},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("get %s breakdown: %w", by, err)
	}
	counts := map[string]int64{}
	for _, r := range res.Get("data").Array() {
		if key := r.Get(by).String(); key != "" {
			counts[key] += r.Get("impressions").Int()
		}
	}
	return counts, nil
}

func (c *facebookClient) Audience(ctx context.Context, from, to model.Date) (analytics.Audience, error) {
	ages, err := c.breakdown(ctx, "age", from, to)
	if err != nil {
		return analytics.Audience{}, err
	}
	countries, err := c.breakdown(ctx, "country", from, to)
	if err != nil {
		return analytics.Audience{}, err
	}
	return analytics.Audience{AgeGroups: shares(ages), TopLocations: locations(countries)}, nil
}
