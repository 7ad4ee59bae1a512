// Package storage persists batch runs and their per-window results.
package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/chrissnell/massindex/internal/report"
	"github.com/chrissnell/massindex/internal/temporal"
)

// Store is a results backend
type Store interface {
	SaveRun(ctx context.Context, run *Run) error
	Close() error
}

// Run is one batch execution over a dataset
type Run struct {
	ID          uuid.UUID
	StartedAt   time.Time
	Source      string
	Fingerprint uint64
	Records     int
	Binning     bool
	Bins        int
	Version     string
	Results     []Result
}

// Result is one table row of a run, tagged with its temporality
type Result struct {
	Temporality string
	report.TableRow
}

// NewRun creates a run with a fresh identifier and the fingerprint of records
func NewRun(source string, records []temporal.Record, startedAt time.Time) *Run {
	return &Run{
		ID:          uuid.New(),
		StartedAt:   startedAt,
		Source:      source,
		Fingerprint: Fingerprint(records),
		Records:     len(records),
	}
}

// AddSeries appends every row of series to the run
func (r *Run) AddSeries(series *temporal.Series) {
	for _, row := range report.Table(series) {
		r.Results = append(r.Results, Result{
			Temporality: series.Temporality.String(),
			TableRow:    row,
		})
	}
}

// FingerprintHex formats the fingerprint the way it is stored
func (r *Run) FingerprintHex() string {
	return fmt.Sprintf("%016x", r.Fingerprint)
}

// Fingerprint hashes the records in order so reruns over the same input can be
// recognized
func Fingerprint(records []temporal.Record) uint64 {
	d := xxhash.New()
	var buf [16]byte
	for _, r := range records {
		binary.LittleEndian.PutUint64(buf[:8], uint64(r.Time.UnixNano()))
		binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(r.Amplitude))
		d.Write(buf[:])
	}
	return d.Sum64()
}

// Nullable maps NaN and infinities to nil for NULL columns
func Nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
