// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog records converted coverage maps and conversion runs in a
// SQLite database. The converter consults it to skip unchanged inputs.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/moc-converter/pkg/types"
)

// Store manages the catalog database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the catalog at cfg.Path, creating its parent
// directory and schema when missing.
func Open(cfg types.CatalogConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("catalog path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			input_dir TEXT,
			output_dir TEXT,
			converted INTEGER DEFAULT 0,
			skipped INTEGER DEFAULT 0,
			error TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS maps (
			name TEXT PRIMARY KEY,
			source_path TEXT NOT NULL,
			output_path TEXT NOT NULL,
			digest TEXT NOT NULL,
			orders TEXT,
			max_order INTEGER,
			cells INTEGER,
			sky_fraction REAL,
			run_id TEXT REFERENCES runs(id),
			converted_at TEXT,
			status TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_maps_run_id ON maps(run_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// BeginRun registers a conversion run.
func (s *Store) BeginRun(ctx context.Context, runID, inputDir, outputDir string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, input_dir, output_dir) VALUES (?, ?, ?, ?)`,
		runID, time.Now().UTC().Format(time.RFC3339Nano), inputDir, outputDir,
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", runID, err)
	}
	return nil
}

// FinishRun stores the outcome of a run. runErr may be nil.
func (s *Store) FinishRun(ctx context.Context, runID string, converted, skipped int, runErr error) error {
	var msg sql.NullString
	if runErr != nil {
		msg = sql.NullString{String: runErr.Error(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, converted = ?, skipped = ?, error = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), converted, skipped, msg, runID,
	)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", runID, err)
	}
	return nil
}

// Record upserts the entry for a converted map.
func (s *Store) Record(ctx context.Context, e types.MapEntry) error {
	ordersJSON, err := json.Marshal(e.Orders)
	if err != nil {
		return fmt.Errorf("marshaling orders: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO maps (name, source_path, output_path, digest, orders, max_order, cells, sky_fraction, run_id, converted_at, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
			source_path=excluded.source_path, output_path=excluded.output_path,
			digest=excluded.digest, orders=excluded.orders, max_order=excluded.max_order,
			cells=excluded.cells, sky_fraction=excluded.sky_fraction,
			run_id=excluded.run_id, converted_at=excluded.converted_at, status=excluded.status`,
		e.Name, e.SourcePath, e.OutputPath, e.Digest, string(ordersJSON),
		e.MaxOrder, e.Cells, e.SkyFraction, e.RunID,
		e.ConvertedAt.UTC().Format(time.RFC3339Nano), string(e.Status),
	)
	if err != nil {
		return fmt.Errorf("recording map %s: %w", e.Name, err)
	}
	return nil
}

// MarkSkipped notes that runID left the map's document untouched.
func (s *Store) MarkSkipped(ctx context.Context, name, runID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE maps SET run_id = ?, status = ? WHERE name = ?`,
		runID, string(types.ConversionSkipped), name,
	)
	if err != nil {
		return fmt.Errorf("marking %s skipped: %w", name, err)
	}
	return nil
}

const selectMaps = `SELECT name, source_path, output_path, digest, orders, max_order,
	cells, sky_fraction, COALESCE(run_id, ''), COALESCE(converted_at, ''), COALESCE(status, '')
	FROM maps`

// Lookup returns the entry for name. The boolean is false when the map has
// never been converted.
func (s *Store) Lookup(ctx context.Context, name string) (types.MapEntry, bool, error) {
	row := s.db.QueryRowContext(ctx, selectMaps+` WHERE name = ?`, name)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.MapEntry{}, false, nil
	}
	if err != nil {
		return types.MapEntry{}, false, fmt.Errorf("looking up %s: %w", name, err)
	}
	return e, true, nil
}

// List returns every entry ordered by name.
func (s *Store) List(ctx context.Context) ([]types.MapEntry, error) {
	rows, err := s.db.QueryContext(ctx, selectMaps+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing maps: %w", err)
	}
	defer rows.Close()

	entries := []types.MapEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning map: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (types.MapEntry, error) {
	var (
		e           types.MapEntry
		ordersJSON  sql.NullString
		convertedAt string
		status      string
	)
	if err := sc.Scan(&e.Name, &e.SourcePath, &e.OutputPath, &e.Digest, &ordersJSON,
		&e.MaxOrder, &e.Cells, &e.SkyFraction, &e.RunID, &convertedAt, &status); err != nil {
		return types.MapEntry{}, err
	}
	if ordersJSON.Valid && ordersJSON.String != "" {
		if err := json.Unmarshal([]byte(ordersJSON.String), &e.Orders); err != nil {
			return types.MapEntry{}, fmt.Errorf("decoding orders of %s: %w", e.Name, err)
		}
	}
	if convertedAt != "" {
		if ts, err := time.Parse(time.RFC3339Nano, convertedAt); err == nil {
			e.ConvertedAt = ts
		}
	}
	e.Status = types.ConversionStatus(status)
	return e, nil
}
