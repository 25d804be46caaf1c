package aqi

import (
	"time"
)

// Reading is one observation reported by the upstream API for the monitored station.
// It is built once per poll and never mutated.
type Reading struct {
	AQI               int       `json:"aqi"`
	ObservedAt        time.Time `json:"observedAt"`
	Station           string    `json:"station"`
	DominantPollutant string    `json:"dominantPollutant"`
}

// Record is a persisted reading together with its classified level.
type Record struct {
	ID                int64     `json:"id"`
	Timestamp         time.Time `json:"timestamp"` // always UTC once stored
	AQI               int       `json:"aqi"`
	Level             Label     `json:"level"`
	Station           string    `json:"station"`
	DominantPollutant string    `json:"dominantPollutant"`
}

// NewRecord pairs a reading with the level it was classified into.
func NewRecord(r Reading, level Label) Record {
	return Record{
		Timestamp:         r.ObservedAt.UTC(),
		AQI:               r.AQI,
		Level:             level,
		Station:           r.Station,
		DominantPollutant: r.DominantPollutant,
	}
}

// PollResult describes the outcome of a single poll cycle.
type PollResult struct {
	Reading Reading
	Level   Level
	Record  Record

	// Previous is empty when the store had no earlier record.
	Previous Label
	Changed  bool
}
