// Package store persists per-attribute scaling statistics in SQLite.
//
// Schema consumed as a contract: File(id, filename, path unique),
// Property(id, name, file_id), OriginalValue(id, property_id, value),
// ScalingFactor(id, property_id, resolution, mean, median, std_dev,
// min, max). Writes for one file commit as a single transaction.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdxtools/guiscale/internal/extract"
	"github.com/pdxtools/guiscale/internal/model"
)

// Store is the SQLite-backed factor store. Safe for concurrent use:
// workers run short-lived transactions, WAL plus the busy timeout
// serialize same-key writers, last write wins.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS file (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			filename TEXT NOT NULL,
			path     TEXT NOT NULL UNIQUE
		)
	`)
	if err != nil {
		return fmt.Errorf("create file table: %w", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS property (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			name    TEXT NOT NULL,
			file_id INTEGER NOT NULL REFERENCES file(id),
			UNIQUE(file_id, name)
		)
	`)
	if err != nil {
		return fmt.Errorf("create property table: %w", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS original_value (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			property_id INTEGER NOT NULL REFERENCES property(id),
			value       REAL NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create original_value table: %w", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS scaling_factor (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			property_id INTEGER NOT NULL REFERENCES property(id),
			resolution  TEXT NOT NULL,
			mean        REAL,
			median      REAL,
			std_dev     REAL,
			min         REAL,
			max         REAL,
			UNIQUE(property_id, resolution)
		)
	`)
	if err != nil {
		return fmt.Errorf("create scaling_factor table: %w", err)
	}

	_, _ = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_property_file ON property(file_id)`)
	_, _ = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_factor_resolution ON scaling_factor(resolution)`)

	return nil
}

// SaveFile persists one file's extraction and statistics atomically:
// the file record (idempotent on path), one property per attribute,
// every raw scalar value under it, and exactly one statistic record per
// (property, resolution), overwriting any prior record for that pair.
func (s *Store) SaveFile(ctx context.Context, path string, values extract.Result, stats map[string]map[string]model.ScalingStatistic) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	fileID, err := upsertFile(ctx, tx, path)
	if err != nil {
		return err
	}

	// Union of attributes seen in values and in any resolution's stats,
	// so all-null "no evidence" statistics still get a property row.
	attrs := make(map[string]struct{}, len(values))
	for attr := range values {
		attrs[attr] = struct{}{}
	}
	for _, byAttr := range stats {
		for attr := range byAttr {
			attrs[attr] = struct{}{}
		}
	}

	for attr := range attrs {
		propID, err := upsertProperty(ctx, tx, fileID, attr)
		if err != nil {
			return err
		}

		if err := replaceValues(ctx, tx, propID, values[attr]); err != nil {
			return err
		}

		for resolution, byAttr := range stats {
			stat, ok := byAttr[attr]
			if !ok {
				continue
			}
			if err := upsertStatistic(ctx, tx, propID, resolution, stat); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Factors returns the mean scaling factor per attribute for the given
// file identity and resolution. Statistics' other fields are
// inference-time artifacts and are not read back here. Attributes whose
// stored mean is null are omitted.
func (s *Store) Factors(ctx context.Context, path, resolution string) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.name, sf.mean
		FROM scaling_factor sf
		JOIN property p ON p.id = sf.property_id
		JOIN file f ON f.id = p.file_id
		WHERE f.path = ? AND sf.resolution = ? AND sf.mean IS NOT NULL
	`, path, resolution)
	if err != nil {
		return nil, fmt.Errorf("query factors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	factors := make(map[string]float64)
	for rows.Next() {
		var name string
		var mean float64
		if err := rows.Scan(&name, &mean); err != nil {
			return nil, fmt.Errorf("scan factor: %w", err)
		}
		factors[name] = mean
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate factors: %w", err)
	}
	return factors, nil
}

// Summary returns the full statistics for one resolution keyed by
// filename then attribute, for the report artifact.
func (s *Store) Summary(ctx context.Context, resolution string) (map[string]map[string]model.ScalingStatistic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.filename, p.name, sf.mean, sf.median, sf.std_dev, sf.min, sf.max
		FROM scaling_factor sf
		JOIN property p ON p.id = sf.property_id
		JOIN file f ON f.id = p.file_id
		WHERE sf.resolution = ?
		ORDER BY f.filename, p.name
	`, resolution)
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	defer func() { _ = rows.Close() }()

	summary := make(map[string]map[string]model.ScalingStatistic)
	for rows.Next() {
		var filename, attr string
		var mean, median, stdDev, minV, maxV sql.NullFloat64
		if err := rows.Scan(&filename, &attr, &mean, &median, &stdDev, &minV, &maxV); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}

		if summary[filename] == nil {
			summary[filename] = make(map[string]model.ScalingStatistic)
		}
		summary[filename][attr] = model.ScalingStatistic{
			Mean:   nullable(mean),
			Median: nullable(median),
			StdDev: nullable(stdDev),
			Min:    nullable(minV),
			Max:    nullable(maxV),
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary: %w", err)
	}
	return summary, nil
}

func upsertFile(ctx context.Context, tx *sql.Tx, path string) (int64, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO file (filename, path) VALUES (?, ?)
		ON CONFLICT(path) DO UPDATE SET filename = excluded.filename
	`, filepath.Base(path), path)
	if err != nil {
		return 0, fmt.Errorf("upsert file %s: %w", path, err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM file WHERE path = ?`, path).Scan(&id); err != nil {
		return 0, fmt.Errorf("select file id for %s: %w", path, err)
	}
	return id, nil
}

func upsertProperty(ctx context.Context, tx *sql.Tx, fileID int64, name string) (int64, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO property (name, file_id) VALUES (?, ?)
		ON CONFLICT(file_id, name) DO NOTHING
	`, name, fileID)
	if err != nil {
		return 0, fmt.Errorf("upsert property %s: %w", name, err)
	}

	var id int64
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM property WHERE file_id = ? AND name = ?
	`, fileID, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("select property id for %s: %w", name, err)
	}
	return id, nil
}

func replaceValues(ctx context.Context, tx *sql.Tx, propID int64, values []float64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM original_value WHERE property_id = ?`, propID); err != nil {
		return fmt.Errorf("clear original values: %w", err)
	}
	if len(values) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO original_value (property_id, value) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare value insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, v := range values {
		if _, err := stmt.ExecContext(ctx, propID, v); err != nil {
			return fmt.Errorf("insert original value: %w", err)
		}
	}
	return nil
}

func upsertStatistic(ctx context.Context, tx *sql.Tx, propID int64, resolution string, stat model.ScalingStatistic) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO scaling_factor (property_id, resolution, mean, median, std_dev, min, max)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(property_id, resolution) DO UPDATE SET
			mean = excluded.mean,
			median = excluded.median,
			std_dev = excluded.std_dev,
			min = excluded.min,
			max = excluded.max
	`, propID, resolution, stat.Mean, stat.Median, stat.StdDev, stat.Min, stat.Max)
	if err != nil {
		return fmt.Errorf("upsert statistic %s: %w", resolution, err)
	}
	return nil
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
