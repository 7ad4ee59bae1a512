package temporal

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/chrissnell/massindex/internal/massindex"
	"go.uber.org/zap"
)

// Record is one timestamped echo amplitude from the consolidated dataset
type Record struct {
	Time      time.Time
	Amplitude float64
}

// Usable reports whether the amplitude is positive and finite. Other records
// are dropped before windowing.
func (r Record) Usable() bool {
	return r.Amplitude > 0 && !math.IsInf(r.Amplitude, 1)
}

// Config holds aggregator parameters
type Config struct {
	Estimator massindex.Config

	// MinAmplitude drops records below it before windowing. Zero disables it.
	MinAmplitude float64

	// Location is the time zone calendar windows are aligned in. Defaults to UTC.
	Location *time.Location

	// FillGaps adds a skipped row for every empty calendar window between the
	// first and last record
	FillGaps bool

	// Workers is the number of windows estimated concurrently. Values below 2
	// process windows sequentially.
	Workers int
}

// Row is the outcome of one attempted window: either a result or a skip reason
type Row struct {
	Index          int
	Label          string
	Period         string
	Start          time.Time
	End            time.Time
	SolarLongitude float64
	NSamples       int

	Result *massindex.Result

	Reason  string
	Message string
}

// Skipped reports whether the window produced no result
func (r Row) Skipped() bool {
	return r.Result == nil
}

// Series is the chronologically ordered outcome of a batch run
type Series struct {
	Temporality Temporality
	Rows        []Row
}

// Results returns the successful results in chronological order
func (s *Series) Results() []massindex.Result {
	var results []massindex.Result
	for _, r := range s.Rows {
		if r.Result != nil {
			results = append(results, *r.Result)
		}
	}
	return results
}

// Skipped returns the rows of windows that produced no result
func (s *Series) Skipped() []Row {
	var skipped []Row
	for _, r := range s.Rows {
		if r.Skipped() {
			skipped = append(skipped, r)
		}
	}
	return skipped
}

// Aggregator runs the estimator across the calendar windows of a dataset
type Aggregator struct {
	config    Config
	estimator *massindex.Estimator
	logger    *zap.SugaredLogger
}

// NewAggregator creates an Aggregator. A nil logger disables logging.
func NewAggregator(config Config, logger *zap.SugaredLogger) *Aggregator {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Aggregator{
		config:    config,
		estimator: massindex.NewEstimator(config.Estimator),
		logger:    logger,
	}
}

// Windows partitions records into calendar-aligned windows in chronological order
func (a *Aggregator) Windows(records []Record, t Temporality) []massindex.Window {
	sorted := make([]Record, 0, len(records))
	var unusable int
	for _, r := range records {
		if !r.Usable() {
			unusable++
			continue
		}
		if a.config.MinAmplitude > 0 && r.Amplitude < a.config.MinAmplitude {
			continue
		}
		sorted = append(sorted, Record{Time: r.Time.In(a.config.Location), Amplitude: r.Amplitude})
	}
	if unusable > 0 {
		a.logger.Warnw("dropped non-positive or non-finite amplitudes", "temporality", t.String(), "records", unusable)
	}
	if len(sorted) == 0 {
		return nil
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	var windows []massindex.Window
	var amps []float64
	start := t.Start(sorted[0].Time)

	flush := func() {
		end := t.Next(start)
		windows = append(windows, massindex.Window{
			Label:      fmt.Sprintf("%s %s", t, t.Label(start)),
			Period:     t.Period(start, end),
			Start:      start,
			End:        end,
			Amplitudes: amps,
		})
		amps = nil
	}

	for _, r := range sorted {
		ws := t.Start(r.Time)
		for ws.After(start) {
			if len(amps) > 0 || a.config.FillGaps {
				flush()
			}
			start = t.Next(start)
			if !a.config.FillGaps && start.Before(ws) {
				start = ws
			}
		}
		amps = append(amps, r.Amplitude)
	}
	flush()

	return windows
}

// Aggregate estimates the mass index for every window of the dataset. Windows
// that cannot be estimated are recorded as skipped rows; only cancellation of
// ctx aborts the batch.
func (a *Aggregator) Aggregate(ctx context.Context, records []Record, t Temporality) (*Series, error) {
	windows := a.Windows(records, t)
	series := &Series{
		Temporality: t,
		Rows:        make([]Row, len(windows)),
	}

	a.logger.Infow("aggregating mass index", "temporality", t.String(), "records", len(records), "windows", len(windows))

	if a.config.Workers > 1 {
		if err := a.estimateConcurrently(ctx, windows, series.Rows); err != nil {
			return nil, err
		}
	} else {
		for i, w := range windows {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			series.Rows[i] = a.estimateRow(i, w)
		}
	}

	skipped := len(series.Skipped())
	a.logger.Infow("aggregation complete", "temporality", t.String(),
		"estimated", len(windows)-skipped, "skipped", skipped)

	return series, nil
}

// estimateConcurrently fills rows from a pool of workers. Each window writes
// only to its own slot, so row order matches window order.
func (a *Aggregator) estimateConcurrently(ctx context.Context, windows []massindex.Window, rows []Row) error {
	var wg sync.WaitGroup
	jobs := make(chan int)

	for i := 0; i < a.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				rows[idx] = a.estimateRow(idx, windows[idx])
			}
		}()
	}

	var err error
feed:
	for i := range windows {
		if err = ctx.Err(); err != nil {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	return err
}

func (a *Aggregator) estimateRow(idx int, w massindex.Window) Row {
	row := Row{
		Index:          idx,
		Label:          w.Label,
		Period:         w.Period,
		Start:          w.Start,
		End:            w.End,
		SolarLongitude: w.SolarLongitude(),
		NSamples:       len(w.Amplitudes),
	}

	if len(w.Amplitudes) == 0 {
		row.Reason = massindex.ReasonNoSamples
		row.Message = "no samples in window"
		a.logger.Debugw("skipping empty window", "window", w.Label)
		return row
	}

	result, err := a.estimator.Estimate(w)
	if err != nil {
		row.Reason = massindex.ReasonCode(err)
		row.Message = err.Error()
		a.logger.Warnw("skipping window", "window", w.Label, "samples", len(w.Amplitudes), "reason", row.Reason, "error", err)
		return row
	}

	row.Result = &result
	a.logger.Debugw("window estimated", "window", w.Label, "mass_index", result.MassIndex, "r_squared", result.Regression.RSquared)
	return row
}

// Annotation is the mass index of the windows a single record belongs to
type Annotation struct {
	Record    Record
	Labels    map[Temporality]string
	MassIndex map[Temporality]float64 // NaN when the window was skipped
}

// Annotate computes the mass index of every record's window for each
// temporality. Annotations are returned in input order.
func (a *Aggregator) Annotate(ctx context.Context, records []Record, temporalities []Temporality) ([]Annotation, error) {
	annotations := make([]Annotation, len(records))
	for i, r := range records {
		annotations[i] = Annotation{
			Record:    r,
			Labels:    make(map[Temporality]string, len(temporalities)),
			MassIndex: make(map[Temporality]float64, len(temporalities)),
		}
	}

	for _, t := range temporalities {
		series, err := a.Aggregate(ctx, records, t)
		if err != nil {
			return nil, err
		}

		byStart := make(map[int64]Row, len(series.Rows))
		for _, row := range series.Rows {
			byStart[row.Start.Unix()] = row
		}

		for i, r := range records {
			start := t.Start(r.Time.In(a.config.Location))
			row, ok := byStart[start.Unix()]
			if !ok {
				annotations[i].MassIndex[t] = math.NaN()
				continue
			}
			annotations[i].Labels[t] = row.Label
			if row.Result != nil {
				annotations[i].MassIndex[t] = row.Result.MassIndex
			} else {
				annotations[i].MassIndex[t] = math.NaN()
			}
		}
	}

	return annotations, nil
}
