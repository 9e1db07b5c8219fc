// Package sqlite stores radiation sample history in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/chrissnell/radmon/internal/log"
	"github.com/chrissnell/radmon/internal/storage"
	"github.com/chrissnell/radmon/internal/types"
	_ "modernc.org/sqlite"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS radiation_samples (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    window_start INTEGER NOT NULL,
    sample_count INTEGER NOT NULL,
    alpha_rate REAL NOT NULL,
    beta_rate REAL NOT NULL,
    gamma_rate REAL NOT NULL
);`

const createIndexSQL = `CREATE INDEX IF NOT EXISTS radiation_samples_window_start ON radiation_samples (window_start);`

const insertSampleSQL = `
INSERT INTO radiation_samples (window_start, sample_count, alpha_rate, beta_rate, gamma_rate)
VALUES (?, ?, ?, ?, ?)`

// Storage is a SampleStore backed by modernc.org/sqlite. Window starts are stored
// as unix nanoseconds so ordering and range filters stay exact.
type Storage struct {
	db   *sql.DB
	path string
}

// New opens (or creates) the database at path and ensures the schema exists.
// The special path ":memory:" gives a private, volatile database.
func New(ctx context.Context, path string) (*Storage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Each connection to :memory: is its own database, and SQLite allows one writer anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	log.Infof("creating radiation_samples table in %s...", path)
	for _, stmt := range []string{createTableSQL, createIndexSQL} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &Storage{db: db, path: path}, nil
}

// AppendSample inserts s and sets s.ID to the row ID SQLite assigned
func (s *Storage) AppendSample(ctx context.Context, sample *types.RadiationSample) error {
	res, err := s.db.ExecContext(ctx, insertSampleSQL,
		sample.WindowStart.UnixNano(),
		sample.SampleCount,
		sample.AlphaRate,
		sample.BetaRate,
		sample.GammaRate,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sample: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read sample id: %w", err)
	}
	sample.ID = uint64(id)
	return nil
}

// ListSamples returns matching samples in ascending ID order
func (s *Storage) ListSamples(ctx context.Context, q types.SampleQuery) ([]types.RadiationSample, error) {
	var (
		where []string
		args  []any
	)
	if !q.From.IsZero() {
		where = append(where, "window_start >= ?")
		args = append(args, q.From.UnixNano())
	}
	if !q.To.IsZero() {
		where = append(where, "window_start <= ?")
		args = append(args, q.To.UnixNano())
	}

	query := "SELECT id, window_start, sample_count, alpha_rate, beta_rate, gamma_rate FROM radiation_samples"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if q.Limit > 0 {
		// Newest N, flipped back to ascending order below
		query = "SELECT * FROM (" + query + " ORDER BY id DESC LIMIT ?) ORDER BY id ASC"
		args = append(args, q.Limit)
	} else {
		query += " ORDER BY id ASC"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	samples := []types.RadiationSample{}
	for rows.Next() {
		var (
			sample types.RadiationSample
			id     int64
			start  int64
		)
		if err := rows.Scan(&id, &start, &sample.SampleCount, &sample.AlphaRate, &sample.BetaRate, &sample.GammaRate); err != nil {
			return nil, fmt.Errorf("failed to scan sample row: %w", err)
		}
		sample.ID = uint64(id)
		sample.WindowStart = time.Unix(0, start).UTC()
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sample rows: %w", err)
	}

	return samples, nil
}

// CheckHealth pings the database and runs a trivial query
func (s *Storage) CheckHealth(ctx context.Context) *storage.HealthData {
	if err := s.db.PingContext(ctx); err != nil {
		return storage.CreateHealthData(storage.StatusUnhealthy, "SQLite ping failed", err)
	}

	var result int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return storage.CreateHealthData(storage.StatusUnhealthy, "SQLite query test failed", err)
	}

	return storage.CreateHealthData(storage.StatusHealthy, fmt.Sprintf("SQLite operational (%s)", s.path), nil)
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}
