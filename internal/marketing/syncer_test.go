package marketing

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/estimator/internal/analytics"
	"github.com/Simplici0/estimator/internal/db"
	"github.com/Simplici0/estimator/internal/migrations"
	"github.com/Simplici0/estimator/internal/model"
	"github.com/Simplici0/estimator/internal/repository"
)

type fakeClient struct {
	pingErr   error
	campaigns []model.MarketingCampaign
	metrics   map[string][]model.MarketingMetric
	audience  analytics.Audience

	from, to model.Date
}

func (c *fakeClient) Ping(context.Context) error { return c.pingErr }

func (c *fakeClient) Campaigns(context.Context) ([]model.MarketingCampaign, error) {
	return c.campaigns, nil
}

func (c *fakeClient) Metrics(_ context.Context, id string, from, to model.Date) ([]model.MarketingMetric, error) {
	c.from, c.to = from, to
	return c.metrics[id], nil
}

func (c *fakeClient) Audience(context.Context, model.Date, model.Date) (analytics.Audience, error) {
	return c.audience, nil
}

type fakeConnector map[int64]Client

func (f fakeConnector) Client(p model.MarketingPlatform) (Client, error) {
	c, ok := f[p.ID]
	if !ok {
		return nil, ErrUnsupported
	}
	return c, nil
}

func newRepo(t *testing.T) *repository.SQLiteMarketingRepository {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "marketing-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, migrations.Up(database))
	return repository.NewSQLiteMarketingRepository(database)
}

func createPlatform(t *testing.T, repo *repository.SQLiteMarketingRepository, name string, active bool) model.MarketingPlatform {
	t.Helper()
	p := model.MarketingPlatform{
		Name:               name,
		PlatformType:       model.PlatformGoogleAds,
		AccountID:          "1",
		IsActive:           active,
		SyncFrequencyHours: 24,
	}
	require.NoError(t, repo.CreatePlatform(context.Background(), &p))
	return p
}

var syncNow = time.Date(2024, time.May, 10, 15, 0, 0, 0, time.UTC)

func newSyncer(repo repository.MarketingRepository, conn Connector) (*Syncer, *test.Hook) {
	log, hook := test.NewNullLogger()
	s := NewSyncer(repo, conn, log)
	s.now = func() time.Time { return syncNow }
	return s, hook
}

func TestSyncStoresPlatformData(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	p := createPlatform(t, repo, "Google", true)

	client := &fakeClient{
		campaigns: []model.MarketingCampaign{{CampaignID: "111", Name: "Casas", DailyBudget: decimal.NewFromInt(50)}},
		metrics: map[string][]model.MarketingMetric{"111": {
			{Date: model.NewDate(2024, time.May, 9), Impressions: 500, Clicks: 5, Spend: decimal.NewFromInt(2), Revenue: decimal.Zero},
			{Date: model.NewDate(2024, time.May, 10), Impressions: 1000, Clicks: 20, Spend: decimal.NewFromInt(10), Revenue: decimal.NewFromInt(40)},
		}},
		audience: analytics.Audience{AgeGroups: map[string]float64{"25-34": 100}, TopLocations: []analytics.Location{}},
	}
	s, hook := newSyncer(repo, fakeConnector{p.ID: client})

	var outcomes []string
	s.OnSync(func(platformType, outcome string) { outcomes = append(outcomes, platformType+":"+outcome) })

	at, err := s.Sync(ctx, p.ID, 7)
	require.NoError(t, err)
	require.True(t, at.Equal(syncNow))
	require.Equal(t, "2024-05-04", client.from.String())
	require.Equal(t, "2024-05-10", client.to.String())
	require.Equal(t, []string{"google_ads:success"}, outcomes)
	require.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)

	campaigns, err := repo.ListCampaigns(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	require.Equal(t, "active", campaigns[0].Status)

	metrics, err := repo.ListMetrics(ctx, campaigns[0].ID, model.Date{}, model.Date{})
	require.NoError(t, err)
	require.Len(t, metrics, 2)
	require.InDelta(t, 400, metrics[1].ROAS, 1e-9)

	snap, err := repo.LatestAudience(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "2024-05-10", snap.Date.String())

	got, err := repo.GetPlatform(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastSync)
	require.True(t, got.LastSync.Equal(syncNow))

	// a second sync updates in place
	client.campaigns[0].Name = "Casas 2"
	_, err = s.Sync(ctx, p.ID, 0)
	require.NoError(t, err)
	campaigns, err = repo.ListCampaigns(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	require.Equal(t, "Casas 2", campaigns[0].Name)
}

func TestSyncFailures(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	inactive := createPlatform(t, repo, "Off", false)
	unsupported := createPlatform(t, repo, "TikTok", true)
	rejected := createPlatform(t, repo, "Bad key", true)

	s, hook := newSyncer(repo, fakeConnector{rejected.ID: &fakeClient{pingErr: errors.New("401")}})

	_, err := s.Sync(ctx, 999, 7)
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = s.Sync(ctx, inactive.ID, 7)
	require.ErrorIs(t, err, ErrInactive)

	_, err = s.Sync(ctx, unsupported.ID, 7)
	require.ErrorIs(t, err, ErrUnsupported)

	_, err = s.Sync(ctx, rejected.ID, 7)
	require.ErrorContains(t, err, "authenticate")
	require.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)

	got, err := repo.GetPlatform(ctx, rejected.ID)
	require.NoError(t, err)
	require.Nil(t, got.LastSync)

	require.Error(t, s.TestConnection(ctx, rejected.ID))
	require.ErrorIs(t, s.TestConnection(ctx, 999), repository.ErrNotFound)
}

func TestSyncAll(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	good := createPlatform(t, repo, "Good", true)
	bad := createPlatform(t, repo, "Bad", true)
	createPlatform(t, repo, "Off", false)

	s, _ := newSyncer(repo, fakeConnector{good.ID: &fakeClient{}})

	results, err := s.SyncAll(ctx, 7, false)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byID := map[int64]Result{}
	for _, r := range results {
		byID[r.PlatformID] = r
	}
	require.Equal(t, "success", byID[good.ID].Status)
	require.NotNil(t, byID[good.ID].LastSync)
	require.Equal(t, "error", byID[bad.ID].Status)
	require.NotEmpty(t, byID[bad.ID].Message)

	// only the platform that never synced is still due
	results, err = s.SyncAll(ctx, 7, true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, bad.ID, results[0].PlatformID)
}

func TestDue(t *testing.T) {
	p := model.MarketingPlatform{SyncFrequencyHours: 6}
	require.True(t, Due(p, syncNow))

	last := syncNow.Add(-5 * time.Hour)
	p.LastSync = &last
	require.False(t, Due(p, syncNow))
	require.True(t, Due(p, syncNow.Add(time.Hour)))
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	log, _ := test.NewNullLogger()
	s, _ := newSyncer(nil, fakeConnector{})

	_, err := NewScheduler("every tuesday", s, 7, log)
	require.Error(t, err)

	sched, err := NewScheduler("@hourly", s, 7, log)
	require.NoError(t, err)
	sched.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sched.Stop(ctx)
}
