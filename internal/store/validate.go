package store

import (
	"errors"
	"fmt"

	"github.com/i474232898/air-quality-monitor/internal/aqi"
)

// ErrInvalidLimit is returned by Recent for a non-positive limit.
var ErrInvalidLimit = errors.New("limit must be positive")

func validate(rec aqi.Record) error {
	if rec.Timestamp.IsZero() {
		return fmt.Errorf("%w: record has no timestamp", aqi.ErrPersistence)
	}
	if rec.Level == "" {
		return fmt.Errorf("%w: record has no level", aqi.ErrPersistence)
	}
	return nil
}

func errInvalidLimit(limit int) error {
	return fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
}
