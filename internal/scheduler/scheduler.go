// Package scheduler runs periodic maintenance while the API server is up:
// pruning persisted history past its retention and refreshing the workflow
// listing cache so discovery requests are served warm.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/mattjoyce/dabops/internal/events"
	"github.com/mattjoyce/dabops/internal/workflow"
)

//go:generate mockgen -destination=mocks/mock_scheduler.go -package=mocks github.com/mattjoyce/dabops/internal/scheduler HistoryPruner,ListingWarmer

// HistoryPruner deletes history entries older than a cutoff.
type HistoryPruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// ListingWarmer re-reads the workflow listing, repopulating any cache in
// front of it.
type ListingWarmer interface {
	ListWorkflows(ctx context.Context, userOnly bool) ([]workflow.Summary, error)
}

// Config controls the tick loop. Retention of zero disables pruning.
type Config struct {
	Interval  time.Duration
	Jitter    time.Duration
	Retention time.Duration
}

// Scheduler owns the maintenance tick loop.
type Scheduler struct {
	cfg    Config
	pruner HistoryPruner
	warmer ListingWarmer
	events *events.Hub
	logger *slog.Logger
	now    func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a Scheduler. pruner, warmer and hub may each be nil.
func New(cfg Config, pruner HistoryPruner, warmer ListingWarmer, hub *events.Hub, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:    cfg,
		pruner: pruner,
		warmer: warmer,
		events: hub,
		logger: logger.With("component", "scheduler"),
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
}

// Start runs one tick immediately, then keeps ticking in the background until
// ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Interval <= 0 {
		return errors.New("scheduler interval must be positive")
	}
	s.logger.Info("Starting scheduler", "interval", s.cfg.Interval, "retention", s.cfg.Retention)

	s.wg.Add(1)
	go s.tickLoop(ctx)
	return nil
}

// Stop ends the tick loop and waits for an in-flight tick.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) tickLoop(ctx context.Context) {
	defer s.wg.Done()

	s.tick(ctx)

	timer := time.NewTimer(calculateJitteredInterval(s.cfg.Interval, s.cfg.Jitter))
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			s.tick(ctx)
			timer.Reset(calculateJitteredInterval(s.cfg.Interval, s.cfg.Jitter))
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// tick performs one maintenance pass. Failures are logged and retried on the
// next tick.
func (s *Scheduler) tick(ctx context.Context) {
	s.logger.Debug("Scheduler tick")

	if s.pruner != nil && s.cfg.Retention > 0 {
		cutoff := s.now().Add(-s.cfg.Retention)
		removed, err := s.pruner.Prune(ctx, cutoff)
		switch {
		case err != nil:
			s.logger.Error("Failed to prune history", "error", err)
		case removed > 0:
			s.logger.Info("Pruned history", "removed", removed, "cutoff", cutoff.UTC())
			s.publish(events.TypeHistoryPruned, map[string]any{"removed": removed, "cutoff": cutoff.UTC()})
		}
	}

	if s.warmer != nil {
		list, err := s.warmer.ListWorkflows(ctx, false)
		if err != nil {
			s.logger.Warn("Failed to refresh workflow listing", "error", err)
			return
		}
		s.publish(events.TypeWorkflowsRefreshed, map[string]any{"count": len(list)})
	}
}

func (s *Scheduler) publish(eventType string, data any) {
	if s.events != nil {
		s.events.Publish(eventType, data)
	}
}

// calculateJitteredInterval adds a random delay in [0, jitter) to base.
func calculateJitteredInterval(base, jitter time.Duration) time.Duration {
	if jitter <= 0 {
		return base
	}
	return base + time.Duration(rand.Int63n(jitter.Nanoseconds()))
}
