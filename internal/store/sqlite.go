package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/i474232898/air-quality-monitor/internal/aqi"
)

//go:embed sql/insert-record.sql
var insertRecordSQL string

//go:embed sql/get-recent-records.sql
var getRecentRecordsSQL string

// Fixed-width UTC layout so that lexical order of the column is chronological order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Layouts accepted when reading rows written by older versions of the poller.
var legacyTimestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07:00",
	"2006-01-02 15:04:05",
}

// SQLiteStore is an aqi.Store backed by a single SQLite table.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the database at path and brings its
// schema up to date. The handle is closed again if any step fails; on success
// the caller owns it and must call Close.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn, err := buildDSN(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", aqi.ErrPersistence, err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: db open: %v", aqi.ErrPersistence, err)
	}

	// One connection: appends are serialised in-process and an in-memory
	// database survives for the lifetime of the store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: db ping: %v", aqi.ErrPersistence, err)
	}

	if err := migrate(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", aqi.ErrPersistence, err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append inserts one row and returns the record with its assigned ID.
func (s *SQLiteStore) Append(ctx context.Context, rec aqi.Record) (aqi.Record, error) {
	if err := validate(rec); err != nil {
		return aqi.Record{}, err
	}
	rec.Timestamp = rec.Timestamp.UTC()

	res, err := s.db.ExecContext(ctx, insertRecordSQL,
		rec.Timestamp.Format(timestampLayout),
		rec.AQI,
		string(rec.Level),
		rec.Station,
		rec.DominantPollutant,
	)
	if err != nil {
		return aqi.Record{}, fmt.Errorf("%w: insert record: %v", aqi.ErrPersistence, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return aqi.Record{}, fmt.Errorf("%w: last insert id: %v", aqi.ErrPersistence, err)
	}
	rec.ID = id
	return rec, nil
}

// MostRecent returns the latest record by timestamp, or ok == false on an empty table.
func (s *SQLiteStore) MostRecent(ctx context.Context) (aqi.Record, bool, error) {
	recs, err := s.Recent(ctx, 1)
	if err != nil {
		return aqi.Record{}, false, err
	}
	if len(recs) == 0 {
		return aqi.Record{}, false, nil
	}
	return recs[0], true, nil
}

// Recent returns up to limit records, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]aqi.Record, error) {
	if limit <= 0 {
		return nil, errInvalidLimit(limit)
	}

	rows, err := s.db.QueryContext(ctx, getRecentRecordsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query records: %v", aqi.ErrPersistence, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Error("close records rows", "error", err)
		}
	}()

	recs, err := scanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", aqi.ErrPersistence, err)
	}
	return recs, nil
}

func scanRecords(rows *sql.Rows) ([]aqi.Record, error) {
	var out []aqi.Record
	for rows.Next() {
		var (
			rec   aqi.Record
			ts    string
			level string
		)
		if err := rows.Scan(&rec.ID, &ts, &rec.AQI, &level, &rec.Station, &rec.DominantPollutant); err != nil {
			return nil, err
		}
		t, err := parseTimestamp(ts)
		if err != nil {
			return nil, err
		}
		rec.Timestamp = t
		rec.Level = aqi.ParseLabel(level)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, s)
	if err == nil {
		return t.UTC(), nil
	}
	errs := []error{err}
	for _, layout := range legacyTimestampLayouts {
		t, lerr := time.Parse(layout, s)
		if lerr == nil {
			return t.UTC(), nil
		}
		errs = append(errs, lerr)
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, errors.Join(errs...))
}

func buildDSN(path string) (string, error) {
	if path == "" {
		return "", errors.New("empty database path")
	}
	if path == ":memory:" {
		return "file::memory:?_foreign_keys=on", nil
	}

	// - busy_timeout: lets a second process wait for the lock instead of failing
	// - journal_mode=WAL: readers do not block the single writer
	params := []string{
		"_foreign_keys=on",
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}

	// If caller provided something like "file:/data/aqi.db?x=y" as path, don't double-wrap
	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}

	// Ensure directory exists for file-backed sqlite db
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}
