package sqlite

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/chrissnell/massindex/internal/massindex"
	"github.com/chrissnell/massindex/internal/storage"
	"github.com/chrissnell/massindex/internal/temporal"
)

func testRun(t *testing.T) (*storage.Run, []temporal.Record) {
	t.Helper()
	day := time.Date(2025, 8, 12, 0, 0, 0, 0, time.UTC)
	var records []temporal.Record
	for i, amp := range []float64{1000, 2000, 2000, 4000, 8000} {
		records = append(records, temporal.Record{Time: day.Add(time.Duration(i) * time.Hour), Amplitude: amp})
	}
	records = append(records, temporal.Record{Time: day.AddDate(0, 0, 1), Amplitude: 700})

	series, err := temporal.NewAggregator(temporal.Config{}, nil).Aggregate(context.Background(), records, temporal.Daily)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	run := storage.NewRun("perseids.csv", records, time.Date(2025, 8, 14, 9, 0, 0, 0, time.UTC))
	run.Version = "test"
	run.AddSeries(series)
	return run, records
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "results.db")

	store, err := New(ctx, path, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer store.Close()

	run, records := testRun(t)
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun() error: %v", err)
	}

	ids, err := store.RunsByFingerprint(ctx, storage.Fingerprint(records))
	if err != nil {
		t.Fatalf("RunsByFingerprint() error: %v", err)
	}
	if len(ids) != 1 || ids[0] != run.ID {
		t.Fatalf("RunsByFingerprint() = %v, expected [%s]", ids, run.ID)
	}

	results, err := store.Results(ctx, run.ID)
	if err != nil {
		t.Fatalf("Results() error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	ok := results[0]
	if ok.Temporality != "daily" || ok.WindowLabel != "daily 2025-08-12" || ok.Status != "ok" {
		t.Errorf("first result = %+v", ok)
	}
	if math.Abs(ok.MassIndex-1.796578) > 1e-5 || ok.NRegression != 4 {
		t.Errorf("mass index = %v, n_regression = %d", ok.MassIndex, ok.NRegression)
	}
	if !ok.WindowStart.Equal(time.Date(2025, 8, 12, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("window start = %v", ok.WindowStart)
	}

	skipped := results[1]
	if skipped.Reason != massindex.ReasonInsufficientData || !math.IsNaN(skipped.MassIndex) {
		t.Errorf("skipped result = %+v", skipped)
	}
}

func TestStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "results.db")

	for i := 0; i < 2; i++ {
		store, err := New(ctx, path, nil)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		run, _ := testRun(t)
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun() on open %d: %v", i, err)
		}
		store.Close()
	}

	store, err := New(ctx, path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()

	run, records := testRun(t)
	ids, err := store.RunsByFingerprint(ctx, storage.Fingerprint(records))
	if err != nil {
		t.Fatalf("RunsByFingerprint() error: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 runs for the same input, got %d", len(ids))
	}
	if run.Fingerprint != storage.Fingerprint(records) {
		t.Error("run fingerprint does not match its records")
	}
}
