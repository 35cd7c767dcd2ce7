// Package maintenance runs periodic housekeeping against the memory store.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Cleaner removes expired short-term memories. Empty namespace means all.
type Cleaner interface {
	CleanupExpired(ctx context.Context, namespace string) (int64, error)
}

// Options configures a Scheduler.
type Options struct {
	// Schedule is a 5-field cron spec or a descriptor such as @hourly or
	// "@every 10m".
	Schedule  string
	Namespace string
	Logger    *slog.Logger
}

// Scheduler runs cleanup passes on a cron schedule. A pass still running
// when the next one fires causes that run to be skipped.
type Scheduler struct {
	cleaner Cleaner
	opts    Options
	logger  *slog.Logger
	cron    *cron.Cron

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	lastRun time.Time
	removed int64
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// New validates the schedule and returns a stopped Scheduler.
func New(c Cleaner, opts Options) (*Scheduler, error) {
	if opts.Schedule == "" {
		opts.Schedule = "@hourly"
	}
	if _, err := parser.Parse(opts.Schedule); err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", opts.Schedule, err)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Scheduler{cleaner: c, opts: opts, logger: opts.Logger}, nil
}

// Start registers the cleanup job and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return fmt.Errorf("scheduler already started")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron = cron.New(
		cron.WithParser(parser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := s.cron.AddFunc(s.opts.Schedule, func() {
		if _, err := s.RunOnce(s.ctx); err != nil {
			s.logger.Warn("scheduled cleanup failed", "error", err)
		}
	}); err != nil {
		s.cron = nil
		s.cancel()
		return fmt.Errorf("schedule cleanup: %w", err)
	}
	s.cron.Start()
	s.logger.Info("maintenance scheduler started", "schedule", s.opts.Schedule)
	return nil
}

// Stop halts the cron loop and waits up to ten seconds for a running pass.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron = nil
	s.mu.Unlock()

	if c != nil {
		done := c.Stop()
		select {
		case <-done.Done():
		case <-time.After(10 * time.Second):
			s.logger.Warn("maintenance scheduler stop timed out")
		}
	}
	if cancel != nil {
		cancel()
	}
	s.logger.Info("maintenance scheduler stopped")
}

// RunOnce performs one cleanup pass and returns the rows removed.
func (s *Scheduler) RunOnce(ctx context.Context) (int64, error) {
	n, err := s.cleaner.CleanupExpired(ctx, s.opts.Namespace)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.lastRun = time.Now()
	s.removed += n
	s.mu.Unlock()

	if n > 0 {
		s.logger.Info("expired memories removed", "count", n, "namespace", s.opts.Namespace)
	}
	return n, nil
}

// Status reports the last completed pass and the total rows removed.
func (s *Scheduler) Status() (lastRun time.Time, removed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.removed
}
