// Package sqlite stores batch runs in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/chrissnell/massindex/internal/storage"
	"github.com/chrissnell/massindex/pkg/migrate"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrations returns the provider for the results schema
func Migrations() migrate.MigrationProvider {
	return migrate.NewFSProvider(migrations, "migrations", "schema_migrations", "sqlite")
}

// Store is a SQLite results backend
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.SugaredLogger
}

// New opens the database at path and brings its schema up to date. A nil
// logger disables logging.
func New(ctx context.Context, path string, logger *zap.SugaredLogger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := migrate.NewMigrator(db, Migrations(), logger).MigrateUp(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate results database: %w", err)
	}

	logger.Infow("SQLite results store ready", "path", path)
	return &Store{db: db, path: path, logger: logger}, nil
}

// SaveRun stores a run and all of its results in one transaction
func (s *Store) SaveRun(ctx context.Context, run *storage.Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, source, fingerprint, records, binning, bins, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.StartedAt.UTC(), run.Source, run.FingerprintHex(),
		run.Records, run.Binning, run.Bins, run.Version)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO results (
			run_id, temporality, window_label, mass_index, slope, intercept, r,
			r_squared, p_value, std_error, n_original, n_regression, amp_min,
			amp_max, amp_mean, binning_applied, status, reason, window_start,
			window_end, solar_longitude
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare result insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range run.Results {
		_, err := stmt.ExecContext(ctx,
			run.ID.String(), r.Temporality, r.WindowLabel,
			storage.Nullable(r.MassIndex), storage.Nullable(r.Slope), storage.Nullable(r.Intercept),
			storage.Nullable(r.R), storage.Nullable(r.RSquared), storage.Nullable(r.PValue),
			storage.Nullable(r.StdError), r.NOriginal, r.NRegression,
			storage.Nullable(r.AmpMin), storage.Nullable(r.AmpMax), storage.Nullable(r.AmpMean),
			r.BinningApplied, r.Status, r.Reason, nullTime(r.WindowStart), nullTime(r.WindowEnd),
			storage.Nullable(r.SolarLongitude))
		if err != nil {
			return fmt.Errorf("failed to insert result %s: %w", r.WindowLabel, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	s.logger.Infow("run stored", "run", run.ID.String(), "results", len(run.Results), "path", s.path)
	return nil
}

// RunsByFingerprint returns the identifiers of earlier runs over the same input,
// newest first
func (s *Store) RunsByFingerprint(ctx context.Context, fingerprint uint64) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM runs WHERE fingerprint = ? ORDER BY started_at DESC",
		fmt.Sprintf("%016x", fingerprint))
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("invalid run id %q: %w", id, err)
		}
		ids = append(ids, parsed)
	}
	return ids, rows.Err()
}

// Results loads the results of a run in insertion order
func (s *Store) Results(ctx context.Context, runID uuid.UUID) ([]storage.Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT temporality, window_label, mass_index, slope, intercept, r, r_squared,
		       p_value, std_error, n_original, n_regression, amp_min, amp_max, amp_mean,
		       binning_applied, status, reason, window_start, window_end, solar_longitude
		FROM results WHERE run_id = ? ORDER BY rowid`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var results []storage.Result
	for rows.Next() {
		var r storage.Result
		var massIndex, slope, intercept, corr, rSquared, pValue, stdErr sql.NullFloat64
		var ampMin, ampMax, ampMean, solarLon sql.NullFloat64
		var start, end sql.NullTime

		err := rows.Scan(&r.Temporality, &r.WindowLabel, &massIndex, &slope, &intercept,
			&corr, &rSquared, &pValue, &stdErr, &r.NOriginal, &r.NRegression,
			&ampMin, &ampMax, &ampMean, &r.BinningApplied, &r.Status, &r.Reason,
			&start, &end, &solarLon)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}

		r.MassIndex = floatOrNaN(massIndex)
		r.Slope = floatOrNaN(slope)
		r.Intercept = floatOrNaN(intercept)
		r.R = floatOrNaN(corr)
		r.RSquared = floatOrNaN(rSquared)
		r.PValue = floatOrNaN(pValue)
		r.StdError = floatOrNaN(stdErr)
		r.AmpMin = floatOrNaN(ampMin)
		r.AmpMax = floatOrNaN(ampMax)
		r.AmpMean = floatOrNaN(ampMean)
		r.SolarLongitude = floatOrNaN(solarLon)
		if start.Valid {
			r.WindowStart = start.Time
		}
		if end.Valid {
			r.WindowEnd = end.Time
		}

		results = append(results, r)
	}

	return results, rows.Err()
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t.UTC(), Valid: !t.IsZero()}
}

var _ storage.Store = (*Store)(nil)
