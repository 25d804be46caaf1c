package aqi

import (
	"context"
)

// Provider abstracts the upstream air-quality source (e.g. the WAQI feed).
type Provider interface {
	Name() string
	Fetch(ctx context.Context) (Reading, error)
}

// Store is the contract every history store implementation must satisfy.
// Append is the only mutation; records are never updated or deleted.
type Store interface {
	// MostRecent returns the latest record by timestamp. ok is false on an empty store.
	MostRecent(ctx context.Context) (rec Record, ok bool, err error)
	// Append writes a new record and returns it with its assigned ID.
	Append(ctx context.Context, rec Record) (Record, error)
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)
}

// Notifier is told about level transitions. Implementations may deliver
// anywhere; the poll cycle ignores their errors apart from logging them.
type Notifier interface {
	Notify(ctx context.Context, r Reading, previous, current Label) error
}
