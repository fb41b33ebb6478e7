package marketing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Simplici0/estimator/internal/model"
	"github.com/Simplici0/estimator/internal/repository"
)

// DefaultDaysBack is the sync window when none is given.
const DefaultDaysBack = 7

// ErrInactive is returned when syncing a disabled platform.
var ErrInactive = errors.New("marketing platform is inactive")

// Connector returns the client of a platform. *Factory implements it.
type Connector interface {
	Client(p model.MarketingPlatform) (Client, error)
}

// Result is the outcome of syncing one platform.
type Result struct {
	PlatformID int64      `json:"platform_id"`
	Platform   string     `json:"platform"`
	Status     string     `json:"status"`
	Message    string     `json:"message"`
	LastSync   *time.Time `json:"last_sync,omitempty"`
}

// Syncer copies platform data into the marketing repository.
type Syncer struct {
	repo      repository.MarketingRepository
	connector Connector
	log       logrus.FieldLogger
	now       func() time.Time
	observe   func(platformType, outcome string)
}

func NewSyncer(repo repository.MarketingRepository, connector Connector, log logrus.FieldLogger) *Syncer {
	return &Syncer{repo: repo, connector: connector, log: log, now: time.Now}
}

// OnSync registers fn to be told the outcome ("success" or "error") of every
// sync attempt.
func (s *Syncer) OnSync(fn func(platformType, outcome string)) {
	s.observe = fn
}

func (s *Syncer) report(p model.MarketingPlatform, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	if s.observe != nil {
		s.observe(p.PlatformType, outcome)
	}
}

// TestConnection checks a platform's credentials. Unknown ids return
// repository.ErrNotFound.
func (s *Syncer) TestConnection(ctx context.Context, platformID int64) error {
	p, err := s.repo.GetPlatform(ctx, platformID)
	if err != nil {
		return err
	}
	client, err := s.connector.Client(p)
	if err != nil {
		return err
	}
	if err := client.Ping(ctx); err != nil {
		s.log.WithError(err).WithField("platform_id", p.ID).Warn("marketing platform connection test failed")
		return err
	}
	return nil
}

// Sync pulls the last daysBack days of a platform, including today, and
// stamps its last sync time. Unknown ids return repository.ErrNotFound.
func (s *Syncer) Sync(ctx context.Context, platformID int64, daysBack int) (time.Time, error) {
	p, err := s.repo.GetPlatform(ctx, platformID)
	if err != nil {
		return time.Time{}, err
	}
	at, err := s.sync(ctx, p, daysBack)
	s.report(p, err)
	log := s.log.WithFields(logrus.Fields{"platform_id": p.ID, "platform_type": p.PlatformType})
	if err != nil {
		log.WithError(err).Error("marketing sync failed")
		return time.Time{}, err
	}
	log.Info("marketing sync completed")
	return at, nil
}

func (s *Syncer) sync(ctx context.Context, p model.MarketingPlatform, daysBack int) (time.Time, error) {
	if !p.IsActive {
		return time.Time{}, ErrInactive
	}
	if daysBack <= 0 {
		daysBack = DefaultDaysBack
	}
	client, err := s.connector.Client(p)
	if err != nil {
		return time.Time{}, err
	}

	now := s.now().UTC()
	to := model.DateOf(now)
	from := to.AddDays(-(daysBack - 1))

	if err := client.Ping(ctx); err != nil {
		return time.Time{}, fmt.Errorf("authenticate: %w", err)
	}

	campaigns, err := client.Campaigns(ctx)
	if err != nil {
		return time.Time{}, err
	}
	for _, c := range campaigns {
		c.PlatformID = p.ID
		if c.Status == "" {
			c.Status = "active"
		}
		if err := s.repo.UpsertCampaign(ctx, &c); err != nil {
			return time.Time{}, err
		}

		metrics, err := client.Metrics(ctx, c.CampaignID, from, to)
		if err != nil {
			return time.Time{}, fmt.Errorf("campaign %s: %w", c.CampaignID, err)
		}
		for _, m := range metrics {
			m.CampaignID = c.ID
			if err := s.repo.UpsertMetric(ctx, &m); err != nil {
				return time.Time{}, err
			}
		}
	}

	audience, err := client.Audience(ctx, from, to)
	if err != nil {
		return time.Time{}, err
	}
	if len(audience.AgeGroups) > 0 || len(audience.TopLocations) > 0 {
		snap := model.AudienceSnapshot{PlatformID: p.ID, Date: to, Audience: audience}
		if err := s.repo.UpsertAudience(ctx, &snap); err != nil {
			return time.Time{}, err
		}
	}

	if err := s.repo.SetLastSync(ctx, p.ID, now); err != nil {
		return time.Time{}, err
	}
	return now, nil
}

// Due reports whether p's sync frequency has elapsed since its last sync.
func Due(p model.MarketingPlatform, now time.Time) bool {
	if p.LastSync == nil {
		return true
	}
	return now.Sub(*p.LastSync) >= time.Duration(p.SyncFrequencyHours)*time.Hour
}

// SyncAll syncs every active platform in turn, or only those that are due.
// One platform failing does not stop the others.
func (s *Syncer) SyncAll(ctx context.Context, daysBack int, onlyDue bool) ([]Result, error) {
	platforms, err := s.repo.ListPlatforms(ctx, true)
	if err != nil {
		return nil, err
	}

	now := s.now()
	results := make([]Result, 0, len(platforms))
	for _, p := range platforms {
		if onlyDue && !Due(p, now) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		r := Result{PlatformID: p.ID, Platform: p.Name}
		at, err := s.Sync(ctx, p.ID, daysBack)
		if err != nil {
			r.Status, r.Message = "error", err.Error()
		} else {
			r.Status, r.Message, r.LastSync = "success", "sync completed", &at
		}
		results = append(results, r)
	}
	return results, nil
}
