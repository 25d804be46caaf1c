package store

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/i474232898/air-quality-monitor/internal/aqi"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), ":memory:", quietLogger())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return s
}

func sampleRecord(ts time.Time, index int) aqi.Record {
	return aqi.Record{
		Timestamp:         ts,
		AQI:               index,
		Level:             aqi.Classify(index).Label,
		Station:           "Pudong Huinan, Shanghai",
		DominantPollutant: "pm25",
	}
}

func TestSQLite_MostRecentEmpty(t *testing.T) {
	s := setupTestStore(t)

	rec, ok, err := s.MostRecent(context.Background())
	if err != nil {
		t.Fatalf("MostRecent: %v", err)
	}
	if ok {
		t.Fatalf("MostRecent on empty store returned %+v", rec)
	}
}

func TestSQLite_RoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	want := sampleRecord(time.Date(2025, 3, 1, 8, 0, 0, 123456789, time.UTC), 120)
	written, err := s.Append(ctx, want)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if written.ID == 0 {
		t.Fatal("Append did not assign an ID")
	}
	want.ID = written.ID

	got, ok, err := s.MostRecent(ctx)
	if err != nil || !ok {
		t.Fatalf("MostRecent: ok=%v err=%v", ok, err)
	}
	if !got.Timestamp.Equal(want.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, want.Timestamp)
	}
	got.Timestamp = want.Timestamp
	if got != want {
		t.Errorf("MostRecent = %+v, want %+v", got, want)
	}
}

func TestSQLite_AppendNormalisesToUTC(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	shanghai := time.FixedZone("CST", 8*60*60)
	rec, err := s.Append(ctx, sampleRecord(time.Date(2025, 3, 1, 16, 0, 0, 0, shanghai), 42))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if rec.Timestamp.Location() != time.UTC || rec.Timestamp.Hour() != 8 {
		t.Errorf("Timestamp = %v, want 08:00 UTC", rec.Timestamp)
	}
}

func TestSQLite_MostRecentOrdersByTimestamp(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	// Inserted out of order: the newest observation is written first.
	for _, r := range []aqi.Record{
		sampleRecord(base.Add(2*time.Hour), 160),
		sampleRecord(base, 20),
		sampleRecord(base.Add(time.Hour).Add(500*time.Millisecond), 70),
	} {
		if _, err := s.Append(ctx, r); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, ok, err := s.MostRecent(ctx)
	if err != nil || !ok {
		t.Fatalf("MostRecent: ok=%v err=%v", ok, err)
	}
	if got.AQI != 160 {
		t.Errorf("MostRecent AQI = %d, want 160", got.AQI)
	}

	recent, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	var values []int
	for _, r := range recent {
		values = append(values, r.AQI)
	}
	if len(values) != 3 || values[0] != 160 || values[1] != 70 || values[2] != 20 {
		t.Errorf("Recent order = %v, want [160 70 20]", values)
	}
}

func TestSQLite_RecentRespectsLimit(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if _, err := s.Append(ctx, sampleRecord(base.Add(time.Duration(i)*time.Hour), 10*i)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	recent, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 || recent[0].AQI != 40 || recent[1].AQI != 30 {
		t.Errorf("Recent(2) = %+v", recent)
	}

	if _, err := s.Recent(ctx, 0); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("Recent(0) error = %v, want ErrInvalidLimit", err)
	}
}

func TestSQLite_AppendRejectsInvalidRecord(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		rec  aqi.Record
	}{
		{name: "zero timestamp", rec: aqi.Record{AQI: 10, Level: aqi.Good}},
		{name: "empty level", rec: aqi.Record{Timestamp: time.Now(), AQI: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Append(ctx, tt.rec); !errors.Is(err, aqi.ErrPersistence) {
				t.Fatalf("Append error = %v, want ErrPersistence", err)
			}
		})
	}

	if _, ok, _ := s.MostRecent(ctx); ok {
		t.Error("invalid records were written")
	}
}

func TestSQLite_ReopenIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "aqi_history.db")

	s, err := OpenSQLite(ctx, path, quietLogger())
	if err != nil {
		t.Fatalf("first OpenSQLite: %v", err)
	}
	if _, err := s.Append(ctx, sampleRecord(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC), 55)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = OpenSQLite(ctx, path, quietLogger())
	if err != nil {
		t.Fatalf("second OpenSQLite: %v", err)
	}
	defer func() { _ = s.Close() }()

	got, ok, err := s.MostRecent(ctx)
	if err != nil || !ok {
		t.Fatalf("MostRecent after reopen: ok=%v err=%v", ok, err)
	}
	if got.AQI != 55 || got.Level != aqi.Moderate {
		t.Errorf("MostRecent after reopen = %+v", got)
	}

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if n != 2 {
		t.Errorf("schema_migrations has %d rows, want 2", n)
	}
}

func TestSQLite_ReadsLegacyRows(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.db.Exec(`
		INSERT INTO aqi_records (timestamp, aqi, level, station, dominentpol)
		VALUES ('2024-01-15T14:00:00+08:00', 35, 'GOOD', 'Pudong Huinan, Shanghai', 'pm25')
	`)
	if err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}

	got, ok, err := s.MostRecent(ctx)
	if err != nil || !ok {
		t.Fatalf("MostRecent: ok=%v err=%v", ok, err)
	}
	if got.Level != aqi.Good {
		t.Errorf("Level = %q, want %q", got.Level, aqi.Good)
	}
	want := time.Date(2024, 1, 15, 6, 0, 0, 0, time.UTC)
	if !got.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, want)
	}
}

func TestSQLite_MostRecentAcrossOffsets(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	// 14:00+08:00 is 06:00Z; its text sorts after every "2024-01-15T07..." string.
	_, err := s.db.Exec(`
		INSERT INTO aqi_records (timestamp, aqi, level, station, dominentpol)
		VALUES ('2024-01-15T14:00:00+08:00', 35, 'GOOD', 'Pudong Huinan, Shanghai', 'pm25')
	`)
	if err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}
	if _, err := s.Append(ctx, sampleRecord(time.Date(2024, 1, 15, 7, 0, 0, 0, time.UTC), 80)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, ok, err := s.MostRecent(ctx)
	if err != nil || !ok {
		t.Fatalf("MostRecent: ok=%v err=%v", ok, err)
	}
	if got.AQI != 80 || got.Level != aqi.Moderate {
		t.Errorf("MostRecent = %+v, want the 07:00Z Moderate reading", got)
	}
}

func TestSQLite_MigrationNormalisesLegacyTimestamps(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "aqi_history.db")

	// A database as left behind by the first release: table only, no migrations table.
	legacy, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open legacy db: %v", err)
	}
	_, err = legacy.Exec(`
		CREATE TABLE aqi_records (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   TEXT    NOT NULL,
			aqi         INTEGER NOT NULL,
			level       TEXT    NOT NULL,
			station     TEXT    NOT NULL,
			dominentpol TEXT    NOT NULL
		);
		INSERT INTO aqi_records (timestamp, aqi, level, station, dominentpol)
		VALUES ('2024-01-15T14:00:00.250000+08:00', 35, 'GOOD', 'Pudong Huinan, Shanghai', 'pm25');
	`)
	if closeErr := legacy.Close(); closeErr != nil {
		t.Fatalf("close legacy db: %v", closeErr)
	}
	if err != nil {
		t.Fatalf("seed legacy db: %v", err)
	}

	s, err := OpenSQLite(ctx, path, quietLogger())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer func() { _ = s.Close() }()

	var ts string
	if err := s.db.QueryRow(`SELECT timestamp FROM aqi_records`).Scan(&ts); err != nil {
		t.Fatalf("select timestamp: %v", err)
	}
	if ts != "2024-01-15T06:00:00.250000000Z" {
		t.Errorf("timestamp = %q, want 2024-01-15T06:00:00.250000000Z", ts)
	}

	got, ok, err := s.MostRecent(ctx)
	if err != nil || !ok {
		t.Fatalf("MostRecent: ok=%v err=%v", ok, err)
	}
	want := time.Date(2024, 1, 15, 6, 0, 0, 250000000, time.UTC)
	if !got.Timestamp.Equal(want) || got.Level != aqi.Good {
		t.Errorf("MostRecent = %+v, want Good at %v", got, want)
	}
}

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "memory", path: ":memory:", want: "file::memory:?_foreign_keys=on"},
		{name: "plain file", path: "aqi_history.db", want: "file:aqi_history.db?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"},
		{name: "file uri with params", path: "file:aqi.db?cache=shared", want: "file:aqi.db?cache=shared&_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildDSN(tt.path)
			if err != nil {
				t.Fatalf("buildDSN(%q): %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("buildDSN(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}

	if _, err := buildDSN(""); err == nil {
		t.Error("buildDSN(\"\") error = nil, want non-nil")
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		in      string
		version string
		name    string
		ok      bool
	}{
		{"0001_aqi_records.sql", "0001", "aqi_records", true},
		{"0002_normalise_timestamps.sql", "0002", "normalise_timestamps", true},
		{"insert-record.sql", "", "", false},
		{"001_short.sql", "", "", false},
	}
	for _, tt := range tests {
		version, name, ok := parseMigrationFilename(tt.in)
		if version != tt.version || name != tt.name || ok != tt.ok {
			t.Errorf("parseMigrationFilename(%q) = (%q, %q, %v)", tt.in, version, name, ok)
		}
	}
}
