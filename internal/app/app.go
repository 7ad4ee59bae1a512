// Package app runs a mass index batch from a configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chrissnell/massindex/internal/constants"
	"github.com/chrissnell/massindex/internal/managers"
	"github.com/chrissnell/massindex/internal/report"
	"github.com/chrissnell/massindex/internal/storage"
	"github.com/chrissnell/massindex/internal/temporal"
	"github.com/chrissnell/massindex/pkg/config"
	"go.uber.org/zap"
)

// ErrNoRecords is returned when the input yields no usable records
var ErrNoRecords = errors.New("no records to analyze")

// Options select the optional outputs of a run
type Options struct {
	// Override is applied to the loaded configuration before defaults
	Override func(*config.ConfigData)

	// Compare writes a method comparison over the whole dataset
	Compare bool

	// Annotate writes every record with the mass index of its windows
	Annotate bool
}

// Summary describes a finished run
type Summary struct {
	RunID    string
	Records  int
	Windows  int
	Skipped  int
	Files    []string
	Previous int // earlier stored runs over the same input
}

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
	now            func() time.Time
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &App{
		configProvider: configProvider,
		logger:         logger,
		now:            time.Now,
	}
}

// Run loads the configuration, analyzes the dataset for every configured
// temporality and writes and stores the results
func (a *App) Run(ctx context.Context, opts Options) (*Summary, error) {
	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	if opts.Override != nil {
		opts.Override(cfg)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	s, err := newSettings(cfg)
	if err != nil {
		return nil, err
	}

	source, sourceName, err := newSource(cfg.Input, s.location, a.logger)
	if err != nil {
		return nil, err
	}

	startedAt := a.now()
	records, err := source.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", sourceName, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoRecords, sourceName)
	}
	a.logger.Infow("records loaded", "source", sourceName, "records", len(records))

	storageManager, err := managers.NewStorageManager(ctx, cfg.Storage, a.logger.Named("storage"))
	if err != nil {
		return nil, err
	}
	defer storageManager.Close()

	run := storage.NewRun(sourceName, records, startedAt)
	run.Version = constants.Version
	run.Binning = cfg.Analysis.Binning
	run.Bins = cfg.Analysis.Bins

	summary := &Summary{RunID: run.ID.String(), Records: len(records)}

	previous, err := storageManager.PreviousRuns(ctx, run.Fingerprint)
	if err != nil {
		a.logger.Warnw("could not look up earlier runs", "error", err)
	} else if len(previous) > 0 {
		summary.Previous = len(previous)
		a.logger.Infow("input was analyzed before", "fingerprint", run.FingerprintHex(), "runs", len(previous), "latest", previous[0])
	}

	formatter := report.NewFormatter(s.thresholds).WithClock(a.now)
	writer := report.NewDirWriter(cfg.Output.ReportDir, formatter, a.logger.Named("report"))
	aggregator := temporal.NewAggregator(s.aggregator, a.logger.Named("aggregator"))

	all := make([]*temporal.Series, 0, len(s.temporalities))
	for _, t := range s.temporalities {
		series, err := aggregator.Aggregate(ctx, records, t)
		if err != nil {
			return nil, fmt.Errorf("error aggregating %s windows: %w", t, err)
		}
		all = append(all, series)
		run.AddSeries(series)

		summary.Windows += len(series.Rows)
		summary.Skipped += len(series.Skipped())

		if cfg.Output.SkipReports {
			continue
		}
		paths, err := writer.WriteSeries(series)
		if err != nil {
			return nil, err
		}
		summary.Files = append(summary.Files, paths...)
	}

	path, err := writer.WriteTable(cfg.Output.TableName, report.Table(all...), s.table)
	if err != nil {
		return nil, err
	}
	summary.Files = append(summary.Files, path)

	if opts.Compare {
		comparisons := Compare(records, DefaultMethods(), cfg.Analysis.MinSamples, s.location)
		if best, ok := report.BestByRSquared(comparisons); ok {
			a.logger.Infow("method comparison", "best", best.Method, "r_squared", best.Result.Regression.RSquared)
		}
		path, err := writer.WriteComparison(sourceName, comparisons)
		if err != nil {
			return nil, err
		}
		summary.Files = append(summary.Files, path)
	}

	if opts.Annotate {
		annotations, err := aggregator.Annotate(ctx, records, s.temporalities)
		if err != nil {
			return nil, fmt.Errorf("error annotating records: %w", err)
		}
		path, err := writer.WriteAnnotations(cfg.Output.TableName+"_records", annotations, s.temporalities, s.table)
		if err != nil {
			return nil, err
		}
		summary.Files = append(summary.Files, path)
	}

	if err := storageManager.SaveRun(ctx, run); err != nil {
		return summary, fmt.Errorf("error storing run %s: %w", run.ID, err)
	}

	a.logger.Infow("run complete", "run", summary.RunID, "windows", summary.Windows, "skipped", summary.Skipped, "files", len(summary.Files))
	return summary, nil
}
