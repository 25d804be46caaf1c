package store

import (
	"context"
	"sort"
	"sync"

	"github.com/i474232898/air-quality-monitor/internal/aqi"
)

// MemoryStore is a concurrency-safe in-memory implementation of aqi.Store.
type MemoryStore struct {
	mu sync.RWMutex

	// ordered by (Timestamp, ID) ascending
	records []aqi.Record
	nextID  int64

	// retention configuration
	maxHistory int // max number of records kept (0 = unlimited)
}

// NewMemoryStore creates a new MemoryStore.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int) *MemoryStore {
	return &MemoryStore{
		nextID:     1,
		maxHistory: maxHistory,
	}
}

// Append stores a new record and enforces retention.
func (s *MemoryStore) Append(_ context.Context, rec aqi.Record) (aqi.Record, error) {
	if err := validate(rec); err != nil {
		return aqi.Record{}, err
	}
	rec.Timestamp = rec.Timestamp.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = s.nextID
	s.nextID++

	// Insert after every record with an equal or earlier timestamp.
	i := sort.Search(len(s.records), func(i int) bool {
		return s.records[i].Timestamp.After(rec.Timestamp)
	})
	s.records = append(s.records, aqi.Record{})
	copy(s.records[i+1:], s.records[i:])
	s.records[i] = rec

	// Enforce retention by count, dropping the oldest.
	if s.maxHistory > 0 && len(s.records) > s.maxHistory {
		over := len(s.records) - s.maxHistory
		s.records = append([]aqi.Record(nil), s.records[over:]...)
	}

	return rec, nil
}

// MostRecent returns the record with the latest timestamp.
func (s *MemoryStore) MostRecent(_ context.Context) (aqi.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return aqi.Record{}, false, nil
	}
	return s.records[len(s.records)-1], true, nil
}

// Recent returns up to limit records, newest first.
func (s *MemoryStore) Recent(_ context.Context, limit int) ([]aqi.Record, error) {
	if limit <= 0 {
		return nil, errInvalidLimit(limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := min(limit, len(s.records))
	out := make([]aqi.Record, 0, n)
	for i := len(s.records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}
