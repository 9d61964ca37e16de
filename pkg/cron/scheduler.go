// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/FACorreiaa/echo-voice-assistant/pkg/metrics"
)

// Sweeper is the store surface the maintenance jobs need.
type Sweeper interface {
	ExpireStalePending(ctx context.Context, createdBefore time.Time) (int64, error)
	ExpireIdleSessions(ctx context.Context, now time.Time) (int64, error)
}

const jobTimeout = time.Minute

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron     *cron.Cron
	store    Sweeper
	window   time.Duration
	schedule string
	metrics  *metrics.Assistant
	now      func() time.Time
	logger   *slog.Logger
}

// NewScheduler creates a new job scheduler. Pending commands older than
// window are expired on every run of schedule.
func NewScheduler(store Sweeper, window time.Duration, schedule string, m *metrics.Assistant, logger *slog.Logger) *Scheduler {
	c := cron.New(
		cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	return &Scheduler{
		cron:     c,
		store:    store,
		window:   window,
		schedule: schedule,
		metrics:  m,
		now:      time.Now,
		logger:   logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.RunNow); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.String("schedule", s.schedule),
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow runs both sweeps synchronously.
func (s *Scheduler) RunNow() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	s.expireStalePending(ctx)
	s.expireIdleSessions(ctx)
}

// expireStalePending closes commands nobody answered inside the window, so
// the audit trail does not keep them pending forever.
func (s *Scheduler) expireStalePending(ctx context.Context) {
	n, err := s.store.ExpireStalePending(ctx, s.now().Add(-s.window))
	if err != nil {
		s.logger.Error("failed to expire stale commands", slog.Any("error", err))
		return
	}
	s.metrics.ObserveSweep("stale_pending", n)
	if n > 0 {
		s.logger.Info("expired stale commands", slog.Int64("count", n))
	}
}

func (s *Scheduler) expireIdleSessions(ctx context.Context) {
	n, err := s.store.ExpireIdleSessions(ctx, s.now())
	if err != nil {
		s.logger.Error("failed to expire idle sessions", slog.Any("error", err))
		return
	}
	s.metrics.ObserveSweep("idle_sessions", n)
	if n > 0 {
		s.logger.Debug("expired idle sessions", slog.Int64("count", n))
	}
}
