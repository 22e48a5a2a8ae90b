// Package jobs runs periodic maintenance while the server is up.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultPurgeSpec runs the archive purge once a day.
const DefaultPurgeSpec = "@daily"

// Purger removes archived photo folders past retention.
type Purger interface {
	PurgeArchive(ctx context.Context, retention time.Duration) (int, error)
}

// Scheduler runs the archive purge on a cron spec.
type Scheduler struct {
	cron      *cron.Cron
	purger    Purger
	retention time.Duration
	log       *zap.Logger
}

// NewScheduler returns a scheduler purging with purger every time spec
// fires. An empty spec means DefaultPurgeSpec.
func NewScheduler(purger Purger, spec string, retention time.Duration, log *zap.Logger) (*Scheduler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if spec == "" {
		spec = DefaultPurgeSpec
	}

	s := &Scheduler{
		cron:      cron.New(),
		purger:    purger,
		retention: retention,
		log:       log.Named("jobs"),
	}
	if _, err := s.cron.AddFunc(spec, s.RunPurge); err != nil {
		return nil, fmt.Errorf("scheduling archive purge %q: %w", spec, err)
	}
	s.log.Info("archive purge scheduled", zap.String("spec", spec), zap.Duration("retention", retention))
	return s, nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running job to finish or ctx
// to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("stopped before running job finished")
	}
}

// RunPurge purges the archive once.
func (s *Scheduler) RunPurge() {
	start := time.Now()
	removed, err := s.purger.PurgeArchive(context.Background(), s.retention)
	if err != nil {
		s.log.Error("archive purge failed", zap.Int("removed", removed), zap.Error(err))
		return
	}
	s.log.Info("archive purge finished", zap.Int("removed", removed), zap.Duration("took", time.Since(start)))
}
