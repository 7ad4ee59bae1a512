package postgres

import (
	"math"
	"testing"
	"time"

	"github.com/chrissnell/massindex/internal/report"
	"github.com/chrissnell/massindex/internal/storage"
)

func TestToModels(t *testing.T) {
	start := time.Date(2025, 8, 12, 0, 0, 0, 0, time.FixedZone("ART", -3*3600))
	run := storage.NewRun("perseids.csv", nil, start)
	run.Bins = 50
	run.Results = []storage.Result{
		{Temporality: "daily", TableRow: report.TableRow{
			WindowLabel: "daily 2025-08-12", MassIndex: 1.8, RSquared: 0.95,
			Slope: math.NaN(), NOriginal: 120, Status: "ok", WindowStart: start,
			SolarLongitude: 139.7,
		}},
		{Temporality: "daily", TableRow: report.TableRow{
			WindowLabel: "daily 2025-08-13", MassIndex: math.NaN(), Status: "skipped",
			Reason: "insufficient_data",
		}},
	}

	runModel, results := toModels(run)

	if runModel.ID != run.ID.String() || runModel.Fingerprint != run.FingerprintHex() || runModel.Bins != 50 {
		t.Errorf("run model = %+v", runModel)
	}
	if runModel.StartedAt.Location() != time.UTC {
		t.Errorf("started_at not normalized to UTC: %v", runModel.StartedAt)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 result models, got %d", len(results))
	}

	first := results[0]
	if first.RunID != runModel.ID || first.MassIndex == nil || *first.MassIndex != 1.8 {
		t.Errorf("first result = %+v", first)
	}
	if first.Slope != nil {
		t.Errorf("NaN slope should be NULL, got %v", *first.Slope)
	}
	if first.WindowStart == nil || !first.WindowStart.Equal(start) {
		t.Errorf("window_start = %v", first.WindowStart)
	}

	second := results[1]
	if second.MassIndex != nil || second.WindowStart != nil || second.Reason != "insufficient_data" {
		t.Errorf("second result = %+v", second)
	}
}

func TestTableNames(t *testing.T) {
	if (RunModel{}).TableName() != "mass_index_runs" || (ResultModel{}).TableName() != "mass_index_results" {
		t.Error("unexpected table names")
	}
}
