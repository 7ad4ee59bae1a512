// Package postgres stores batch runs in PostgreSQL through GORM.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chrissnell/massindex/internal/database"
	"github.com/chrissnell/massindex/internal/storage"
)

// RunModel is a row of the runs table
type RunModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	StartedAt   time.Time `gorm:"column:started_at;not null"`
	Source      string    `gorm:"column:source;not null"`
	Fingerprint string    `gorm:"column:fingerprint;not null;index"`
	Records     int       `gorm:"column:records;not null"`
	Binning     bool      `gorm:"column:binning;not null;default:false"`
	Bins        int       `gorm:"column:bins;not null;default:0"`
	Version     string    `gorm:"column:version"`
}

// TableName specifies the table name for RunModel
func (RunModel) TableName() string {
	return "mass_index_runs"
}

// ResultModel is a row of the results table. Statistics of skipped windows are NULL.
type ResultModel struct {
	RunID          string     `gorm:"column:run_id;primaryKey"`
	Temporality    string     `gorm:"column:temporality;primaryKey"`
	WindowLabel    string     `gorm:"column:window_label;primaryKey"`
	MassIndex      *float64   `gorm:"column:mass_index"`
	Slope          *float64   `gorm:"column:slope"`
	Intercept      *float64   `gorm:"column:intercept"`
	R              *float64   `gorm:"column:r"`
	RSquared       *float64   `gorm:"column:r_squared"`
	PValue         *float64   `gorm:"column:p_value"`
	StdError       *float64   `gorm:"column:std_error"`
	NOriginal      int        `gorm:"column:n_original;not null"`
	NRegression    int        `gorm:"column:n_regression;not null"`
	AmpMin         *float64   `gorm:"column:amp_min"`
	AmpMax         *float64   `gorm:"column:amp_max"`
	AmpMean        *float64   `gorm:"column:amp_mean"`
	BinningApplied bool       `gorm:"column:binning_applied;not null"`
	Status         string     `gorm:"column:status;not null"`
	Reason         string     `gorm:"column:reason"`
	WindowStart    *time.Time `gorm:"column:window_start;index"`
	WindowEnd      *time.Time `gorm:"column:window_end"`
	SolarLongitude *float64   `gorm:"column:solar_longitude"`
}

// TableName specifies the table name for ResultModel
func (ResultModel) TableName() string {
	return "mass_index_results"
}

// Store is a PostgreSQL results backend
type Store struct {
	db        *gorm.DB
	batchSize int
	logger    *zap.SugaredLogger
}

// New connects to PostgreSQL and creates the results tables when missing. A
// nil logger disables logging.
func New(ctx context.Context, connectionString string, logger *zap.SugaredLogger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	logger.Info("connecting to PostgreSQL...")
	db, err := database.CreateConnection(connectionString, logger.Desugar())
	if err != nil {
		return nil, err
	}

	if err := db.WithContext(ctx).AutoMigrate(&RunModel{}, &ResultModel{}); err != nil {
		return nil, fmt.Errorf("could not create results tables: %w", err)
	}

	logger.Info("PostgreSQL results store ready")
	return &Store{db: db, batchSize: 500, logger: logger}, nil
}

// SaveRun stores a run and its results in one transaction
func (s *Store) SaveRun(ctx context.Context, run *storage.Run) error {
	runModel, results := toModels(run)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&runModel).Error; err != nil {
			return fmt.Errorf("could not store run: %w", err)
		}
		if len(results) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(results, s.batchSize).Error; err != nil {
			return fmt.Errorf("could not store results: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Infow("run stored", "run", run.ID.String(), "results", len(results))
	return nil
}

// RunsByFingerprint returns the identifiers of earlier runs over the same input,
// newest first
func (s *Store) RunsByFingerprint(ctx context.Context, fingerprint uint64) ([]uuid.UUID, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&RunModel{}).
		Where("fingerprint = ?", fmt.Sprintf("%016x", fingerprint)).
		Order("started_at DESC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("could not query runs: %w", err)
	}

	runs := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("invalid run id %q: %w", id, err)
		}
		runs = append(runs, parsed)
	}
	return runs, nil
}

// Close closes the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toModels(run *storage.Run) (RunModel, []ResultModel) {
	runModel := RunModel{
		ID:          run.ID.String(),
		StartedAt:   run.StartedAt.UTC(),
		Source:      run.Source,
		Fingerprint: run.FingerprintHex(),
		Records:     run.Records,
		Binning:     run.Binning,
		Bins:        run.Bins,
		Version:     run.Version,
	}

	results := make([]ResultModel, 0, len(run.Results))
	for _, r := range run.Results {
		results = append(results, ResultModel{
			RunID:          runModel.ID,
			Temporality:    r.Temporality,
			WindowLabel:    r.WindowLabel,
			MassIndex:      storage.Nullable(r.MassIndex),
			Slope:          storage.Nullable(r.Slope),
			Intercept:      storage.Nullable(r.Intercept),
			R:              storage.Nullable(r.R),
			RSquared:       storage.Nullable(r.RSquared),
			PValue:         storage.Nullable(r.PValue),
			StdError:       storage.Nullable(r.StdError),
			NOriginal:      r.NOriginal,
			NRegression:    r.NRegression,
			AmpMin:         storage.Nullable(r.AmpMin),
			AmpMax:         storage.Nullable(r.AmpMax),
			AmpMean:        storage.Nullable(r.AmpMean),
			BinningApplied: r.BinningApplied,
			Status:         r.Status,
			Reason:         r.Reason,
			WindowStart:    optionalTime(r.WindowStart),
			WindowEnd:      optionalTime(r.WindowEnd),
			SolarLongitude: storage.Nullable(r.SolarLongitude),
		})
	}

	return runModel, results
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

var _ storage.Store = (*Store)(nil)
