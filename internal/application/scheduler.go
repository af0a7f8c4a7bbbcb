package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/bidwatch/internal/domain/model"
)

// DefaultScrapeInterval is how often the scheduler triggers a run.
const DefaultScrapeInterval = 15 * time.Minute

// ScrapeRunner is the single-flight entry point the scheduler drives.
type ScrapeRunner interface {
	RunScraper(ctx context.Context) (model.RunResult, error)
	IsRunning() bool
}

// Scheduler triggers the runner on a fixed interval and on manual request.
// A tick that arrives while a run is in progress is skipped, not queued.
type Scheduler struct {
	runner     ScrapeRunner
	interval   time.Duration
	runOnStart bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a Scheduler. A non-positive interval falls back to DefaultScrapeInterval.
func NewScheduler(runner ScrapeRunner, interval time.Duration, runOnStart bool) *Scheduler {
	if interval <= 0 {
		interval = DefaultScrapeInterval
	}
	return &Scheduler{
		runner:     runner,
		interval:   interval,
		runOnStart: runOnStart,
	}
}

// Start launches the periodic loop in the background. Calling Start on a
// running scheduler does nothing. The loop ends when ctx is canceled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(loopCtx, s.done)

	slog.Info("scheduler started", "schedule", s.describe())
}

// Stop cancels the periodic loop and waits for it to exit. It is idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	slog.Info("scheduler stopped")
}

// RunManual runs a scrape outside the periodic cadence. It returns
// ErrAlreadyRunning when a run is already in progress. The run is detached
// from ctx cancellation: once started it finishes, bounded by its step timeouts.
func (s *Scheduler) RunManual(ctx context.Context) (model.RunResult, error) {
	slog.Info("manual scrape requested")
	return s.runner.RunScraper(context.WithoutCancel(ctx))
}

// Status reports whether a run is in progress and the schedule description.
func (s *Scheduler) Status() model.SchedulerStatus {
	return model.SchedulerStatus{
		IsRunning: s.runner.IsRunning(),
		Schedule:  s.describe(),
	}
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	if s.runOnStart {
		s.tick(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one scheduled cycle unless a run is already in flight.
func (s *Scheduler) tick(ctx context.Context) {
	if s.runner.IsRunning() {
		slog.Info("scraper is already running, skipping this cycle")
		return
	}

	result, err := s.runner.RunScraper(ctx)
	if errors.Is(err, ErrAlreadyRunning) {
		slog.Info("scraper is already running, skipping this cycle")
		return
	}
	if err != nil {
		slog.Error("scheduled scrape failed", "error", err)
		return
	}
	if !result.Success {
		slog.Warn("scheduled scrape unsuccessful", "message", result.Message, "errors", result.Errors)
	}
}

func (s *Scheduler) describe() string {
	return DescribeInterval(s.interval)
}

// DescribeInterval renders an interval as a human-readable schedule.
func DescribeInterval(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return "Every " + d.String()
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "Every " + unit
	}
	return fmt.Sprintf("Every %d %ss", n, unit)
}
