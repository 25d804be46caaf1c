// Package notify holds the sinks told about AQI level transitions.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/i474232898/air-quality-monitor/internal/aqi"
)

// Message renders the human-readable transition line shared by all sinks.
func Message(r aqi.Reading, previous, current aqi.Label) string {
	return fmt.Sprintf("AQI %d (%s), was %s, dominant pollutant %s, station %s",
		r.AQI, current, previous, r.DominantPollutant, r.Station)
}

// Console writes one line per transition to an io.Writer.
type Console struct {
	w io.Writer
}

// NewConsole returns a Console writing to w, or to stdout when w is nil.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{w: w}
}

func (c *Console) Notify(_ context.Context, r aqi.Reading, previous, current aqi.Label) error {
	_, err := fmt.Fprintln(c.w, Message(r, previous, current))
	return err
}

// Log records transitions as structured log entries.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Notify(ctx context.Context, r aqi.Reading, previous, current aqi.Label) error {
	l.logger.WarnContext(ctx, "aqi level changed",
		"station", r.Station,
		"aqi", r.AQI,
		"from", previous,
		"to", current,
		"dominentpol", r.DominantPollutant,
		"observed_at", r.ObservedAt,
	)
	return nil
}

// Multi fans a transition out to every notifier, even when some fail.
type Multi []aqi.Notifier

func (m Multi) Notify(ctx context.Context, r aqi.Reading, previous, current aqi.Label) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, r, previous, current); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
