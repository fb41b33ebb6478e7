// Package marketing pulls campaigns, daily metrics and audience data from
// advertising platforms into the marketing tables.
package marketing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/Simplici0/estimator/internal/analytics"
	"github.com/Simplici0/estimator/internal/model"
)

// ErrUnsupported is returned for platform types without a client.
var ErrUnsupported = errors.New("platform type not supported for sync")

const maxResponseBytes = 8 << 20

// Client reads one advertising account.
type Client interface {
	// Ping checks that the credentials are accepted.
	Ping(ctx context.Context) error
	// Campaigns lists the account's campaigns keyed by their platform id.
	Campaigns(ctx context.Context) ([]model.MarketingCampaign, error)
	// Metrics returns one row per day between from and to for a campaign.
	Metrics(ctx context.Context, campaignID string, from, to model.Date) ([]model.MarketingMetric, error)
	// Audience returns the age and location distribution over the period.
	Audience(ctx context.Context, from, to model.Date) (analytics.Audience, error)
}

// APIError is a non-2xx answer from a platform API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform api returned %d: %s", e.Status, e.Message)
}

// Factory builds clients for stored platforms. Requests to the same platform
// share one token bucket.
type Factory struct {
	httpClient *http.Client
	limit      rate.Limit
	burst      int

	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
}

// NewFactory returns a factory whose clients send at most rps requests per
// second to each platform. A nil httpClient uses a 30 second timeout.
func NewFactory(httpClient *http.Client, rps float64, burst int) *Factory {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if burst < 1 {
		burst = 1
	}
	return &Factory{
		httpClient: httpClient,
		limit:      rate.Limit(rps),
		burst:      burst,
		limiters:   make(map[int64]*rate.Limiter),
	}
}

func (f *Factory) limiter(platformID int64) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.limiters[platformID]
	if !ok {
		l = rate.NewLimiter(f.limit, f.burst)
		f.limiters[platformID] = l
	}
	return l
}

// Client returns the client for p's platform type.
func (f *Factory) Client(p model.MarketingPlatform) (Client, error) {
	if p.AccountID == "" {
		return nil, errors.New("platform has no account_id")
	}
	t := &transport{http: f.httpClient, limiter: f.limiter(p.ID)}

	switch p.PlatformType {
	case model.PlatformGoogleAds, model.PlatformYouTubeAds:
		t.base = baseURL(p, googleBaseURL)
		t.auth = func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+p.APIKey)
			r.Header.Set("login-customer-id", p.AccountID)
		}
		return &googleClient{t: t, customer: p.AccountID}, nil
	case model.PlatformInstagram:
		t.base = baseURL(p, graphBaseURL)
		t.auth = graphAuth(p.APIKey)
		return &instagramClient{t: t, account: p.AccountID, name: p.Name}, nil
	case model.PlatformFacebookAds:
		t.base = baseURL(p, graphBaseURL)
		t.auth = graphAuth(p.APIKey)
		return &facebookClient{t: t, account: adAccount(p.AccountID)}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, p.PlatformType)
}

func baseURL(p model.MarketingPlatform, fallback string) string {
	if p.APIBaseURL != "" {
		return strings.TrimRight(p.APIBaseURL, "/")
	}
	return fallback
}

type transport struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
	auth    func(*http.Request)
}

// call sends one request and parses the JSON answer.
func (t *transport) call(ctx context.Context, method, path string, query url.Values, body any) (gjson.Result, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return gjson.Result{}, fmt.Errorf("wait for rate limit: %w", err)
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return gjson.Result{}, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	target := t.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t.auth != nil {
		t.auth(req)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := gjson.GetBytes(raw, "error.message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return gjson.Result{}, &APIError{Status: resp.StatusCode, Message: msg}
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("%s %s: response is not valid JSON", method, path)
	}
	return gjson.ParseBytes(raw), nil
}

// amount reads a decimal from a JSON number or numeric string.
func amount(r gjson.Result) decimal.Decimal {
	if !r.Exists() {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(r.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

// day reads the YYYY-MM-DD prefix of a date or timestamp field.
func day(r gjson.Result) (model.Date, bool) {
	s := r.String()
	if len(s) < len(time.DateOnly) {
		return model.Date{}, false
	}
	d, err := model.ParseDate(s[:len(time.DateOnly)])
	if err != nil {
		return model.Date{}, false
	}
	return d, true
}

func optionalDay(r gjson.Result) *model.Date {
	d, ok := day(r)
	if !ok {
		return nil
	}
	return &d
}

// dailyRows accumulates metrics per day and returns them oldest first.
type dailyRows map[model.Date]*model.MarketingMetric

func (rows dailyRows) at(d model.Date) *model.MarketingMetric {
	m, ok := rows[d]
	if !ok {
		m = &model.MarketingMetric{Date: d, Spend: decimal.Zero, Revenue: decimal.Zero}
		rows[d] = m
	}
	return m
}

func (rows dailyRows) sorted() []model.MarketingMetric {
	out := make([]model.MarketingMetric, 0, len(rows))
	for _, m := range rows {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out
}

// shares converts counts into percentages of their total, rounded to 2 places.
func shares(counts map[string]int64) map[string]float64 {
	var total int64
	for _, n := range counts {
		total += n
	}
	out := make(map[string]float64, len(counts))
	if total <= 0 {
		return out
	}
	for k, n := range counts {
		out[k] = decimal.NewFromInt(n * 100).Div(decimal.NewFromInt(total)).Round(2).InexactFloat64()
	}
	return out
}

// locations ranks countries by share, largest first.
func locations(counts map[string]int64) []analytics.Location {
	pct := shares(counts)
	out := make([]analytics.Location, 0, len(pct))
	for country, p := range pct {
		out = append(out, analytics.Location{Country: country, Percentage: p})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Percentage != out[j].Percentage {
			return out[i].Percentage > out[j].Percentage
		}
		return out[i].Country < out[j].Country
	})
	return out
}
