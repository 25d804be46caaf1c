package aqi

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Service runs poll cycles: fetch, classify, persist and notify on level changes.
type Service struct {
	provider Provider
	store    Store
	notifier Notifier
	logger   *slog.Logger
}

// NewService creates a new Service. A nil notifier disables notifications
// and a nil logger falls back to slog.Default().
func NewService(provider Provider, store Store, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		provider: provider,
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// Poll runs one cycle. Nothing is written when the fetch fails, and a failing
// notifier never turns a stored reading into an error.
func (s *Service) Poll(ctx context.Context) (PollResult, error) {
	logger := s.logger.With("cycle_id", uuid.NewString())

	if s.provider == nil {
		return PollResult{}, fmt.Errorf("%w: no provider configured", ErrConfiguration)
	}

	logger.Info("fetching reading", "provider", s.provider.Name())
	reading, err := s.provider.Fetch(ctx)
	if err != nil {
		logger.Error("fetch failed", "provider", s.provider.Name(), "kind", Kind(err), "error", err)
		return PollResult{}, err
	}

	level := Classify(reading.AQI)
	logger.Info("reading classified",
		"station", reading.Station,
		"aqi", reading.AQI,
		"level", level.Label,
		"dominentpol", reading.DominantPollutant,
		"observed_at", reading.ObservedAt,
	)

	prev, ok, err := s.store.MostRecent(ctx)
	if err != nil {
		logger.Error("load previous record failed", "error", err)
		return PollResult{}, err
	}
	var previous Label
	if ok {
		previous = prev.Level
	}

	rec, err := s.store.Append(ctx, NewRecord(reading, level.Label))
	if err != nil {
		logger.Error("store reading failed", "error", err)
		return PollResult{}, err
	}
	logger.Debug("reading stored", "id", rec.ID)

	res := PollResult{
		Reading:  reading,
		Level:    level,
		Record:   rec,
		Previous: previous,
		Changed:  DetectChange(previous, level.Label),
	}

	if !res.Changed {
		logger.Debug("level unchanged", "level", level.Label, "previous", previous)
		return res, nil
	}

	logger.Info("level changed", "from", previous, "to", level.Label, "aqi", reading.AQI)
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, reading, previous, level.Label); err != nil {
			logger.Warn("notification failed", "error", err)
		}
	}
	return res, nil
}

// Latest delegates to the underlying store.
func (s *Service) Latest(ctx context.Context) (Record, bool, error) {
	return s.store.MostRecent(ctx)
}

// History delegates to the underlying store.
func (s *Service) History(ctx context.Context, limit int) ([]Record, error) {
	return s.store.Recent(ctx, limit)
}
