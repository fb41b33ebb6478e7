package marketing

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const scheduledSyncTimeout = 10 * time.Minute

// Scheduler runs SyncAll on a cron schedule for the platforms that are due.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler parses spec, a standard five field cron expression or a
// descriptor such as @hourly.
func NewScheduler(spec string, syncer *Syncer, daysBack int, log logrus.FieldLogger) (*Scheduler, error) {
	logger := cron.PrintfLogger(log)
	c := cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), scheduledSyncTimeout)
		defer cancel()

		results, err := syncer.SyncAll(ctx, daysBack, true)
		if err != nil {
			log.WithError(err).Error("scheduled marketing sync aborted")
			return
		}
		failed := 0
		for _, r := range results {
			if r.Status != "success" {
				failed++
			}
		}
		log.WithFields(logrus.Fields{"platforms": len(results), "failed": failed}).Info("scheduled marketing sync finished")
	})
	if err != nil {
		return nil, fmt.Errorf("parse sync schedule %q: %w", spec, err)
	}
	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for a running sync until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
