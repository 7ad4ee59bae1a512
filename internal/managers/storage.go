// Package managers wires configured backends together.
package managers

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chrissnell/massindex/internal/storage"
	"github.com/chrissnell/massindex/internal/storage/postgres"
	"github.com/chrissnell/massindex/internal/storage/sqlite"
	"github.com/chrissnell/massindex/pkg/config"
)

// RunLookup is implemented by backends that can find earlier runs over the
// same input
type RunLookup interface {
	RunsByFingerprint(ctx context.Context, fingerprint uint64) ([]uuid.UUID, error)
}

// StorageManager holds our active storage backends
type StorageManager struct {
	Engines []StorageEngine
	logger  *zap.SugaredLogger
}

// StorageEngine is a named results backend
type StorageEngine struct {
	Name   string
	Engine storage.Store
}

// NewStorageManager creates a StorageManager populated with every backend
// enabled in c. No backends is a valid configuration.
func NewStorageManager(ctx context.Context, c config.StorageData, logger *zap.SugaredLogger) (*StorageManager, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &StorageManager{logger: logger}

	if c.SQLite != nil && c.SQLite.Path != "" {
		if err := s.AddEngine(ctx, "sqlite", c); err != nil {
			s.Close()
			return nil, fmt.Errorf("could not add SQLite storage backend: %w", err)
		}
	}

	if c.Postgres != nil && c.Postgres.ConnectionString != "" {
		if err := s.AddEngine(ctx, "postgres", c); err != nil {
			s.Close()
			return nil, fmt.Errorf("could not add PostgreSQL storage backend: %w", err)
		}
	}

	return s, nil
}

// AddEngine adds a new StorageEngine of name engineName
func (s *StorageManager) AddEngine(ctx context.Context, engineName string, c config.StorageData) error {
	var (
		engine storage.Store
		err    error
	)

	switch engineName {
	case "sqlite":
		engine, err = sqlite.New(ctx, c.SQLite.Path, s.logger.Named("sqlite"))
	case "postgres":
		engine, err = postgres.New(ctx, c.Postgres.ConnectionString, s.logger.Named("postgres"))
	default:
		return fmt.Errorf("unknown storage engine %q", engineName)
	}
	if err != nil {
		return err
	}

	s.Engines = append(s.Engines, StorageEngine{Name: engineName, Engine: engine})
	return nil
}

// SaveRun writes run to every engine. A failing engine does not stop the
// others; all failures are returned together.
func (s *StorageManager) SaveRun(ctx context.Context, run *storage.Run) error {
	var errs []error
	for _, e := range s.Engines {
		if err := e.Engine.SaveRun(ctx, run); err != nil {
			s.logger.Errorw("failed to save run", "engine", e.Name, "run", run.ID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
			continue
		}
		s.logger.Infow("saved run", "engine", e.Name, "run", run.ID, "results", len(run.Results))
	}
	return errors.Join(errs...)
}

// PreviousRuns returns the runs recorded for fingerprint by the first engine
// able to answer
func (s *StorageManager) PreviousRuns(ctx context.Context, fingerprint uint64) ([]uuid.UUID, error) {
	for _, e := range s.Engines {
		if l, ok := e.Engine.(RunLookup); ok {
			return l.RunsByFingerprint(ctx, fingerprint)
		}
	}
	return nil, nil
}

// Close closes every engine
func (s *StorageManager) Close() error {
	var errs []error
	for _, e := range s.Engines {
		if err := e.Engine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
		}
	}
	s.Engines = nil
	return errors.Join(errs...)
}
