package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/air-quality-monitor/internal/aqi"
)

// Poller runs one poll cycle.
type Poller interface {
	Poll(ctx context.Context) (aqi.PollResult, error)
}

// Scheduler periodically polls the monitored station.
type Scheduler struct {
	scheduler *gocron.Scheduler
	poller    Poller
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
}

// New creates a new Scheduler. Each run is bounded by timeout.
func New(poller Poller, interval, timeout time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := gocron.NewScheduler(time.UTC)
	// Never run two cycles at once; a slow cycle delays the next one.
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		poller:    poller,
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
	}
}

// Start schedules the periodic job, runs it once immediately and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		return fmt.Errorf("scheduler: interval must be positive, got %v", s.interval)
	}

	_, err := s.scheduler.Every(s.interval).Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", "interval", s.interval)
	return nil
}

func (s *Scheduler) run() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.poller.Poll(ctx)
	if err != nil {
		// The next run is the retry.
		s.logger.Error("scheduled poll failed", "kind", aqi.Kind(err), "error", err)
		return
	}
	s.logger.Info("scheduled poll completed",
		"aqi", res.Reading.AQI,
		"level", res.Level.Label,
		"changed", res.Changed,
	)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
