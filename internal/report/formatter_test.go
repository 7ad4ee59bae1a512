package report

import (
	"strings"
	"testing"
	"time"

	"github.com/chrissnell/massindex/internal/massindex"
	"github.com/chrissnell/massindex/internal/temporal"
)

var fixedClock = func() time.Time {
	return time.Date(2025, 7, 14, 10, 0, 0, 0, time.UTC)
}

func scenarioResult(t *testing.T) massindex.Result {
	t.Helper()
	w := massindex.NewWindow("annual 2024", "year 2024", time.Time{}, time.Time{},
		[]float64{1000, 2000, 2000, 4000, 8000})
	r, err := massindex.NewEstimator(massindex.Config{}).Estimate(w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return r
}

func TestFormat(t *testing.T) {
	f := NewFormatter(massindex.DefaultThresholds()).WithClock(fixedClock)

	expected := `METEOR MASS INDEX ANALYSIS
==================================================
Analysis date: 2025-07-14 10:00:00
Analyzed period: annual 2024
Period: year 2024
Solar longitude: n/a

MAIN RESULTS:
-------------------------
Mass index (s):               1.7966
Regression slope:             -0.7966
Intercept:                    3.1499
Correlation coefficient:      -0.9789
R² (goodness of fit):         0.9583
P-value:                      2.11e-02
Standard error:               0.1174

DATA STATISTICS:
----------------------
Original data count:          5
Points used in regression:    4
Minimum amplitude:            1000.00
Maximum amplitude:            8000.00
Mean amplitude:               3400.00
Binning applied:              No

INTERPRETATION:
---------------
✓ excellent fit
✓ Computed mass index: s = 1.7966
`

	got := f.Format(scenarioResult(t))
	if got != expected {
		t.Errorf("Format() mismatch\n--- got ---\n%s\n--- expected ---\n%s", got, expected)
	}
}

func TestFormatLayoutIsStable(t *testing.T) {
	f := NewFormatter(massindex.DefaultThresholds()).WithClock(fixedClock)

	good := scenarioResult(t)
	poor := good
	poor.Label = "daily 2025-01-01"
	poor.MassIndex = 0.8
	poor.Regression.RSquared = 0.2
	poor.Regression.PValue = 0.4
	poor.Binning = true
	poor.SolarLongitude = 280.1234

	labels := func(report string) []string {
		var out []string
		for _, line := range strings.Split(report, "\n") {
			if i := strings.Index(line, ":"); i > 0 && !strings.HasPrefix(line, "✓") && !strings.HasPrefix(line, "⚠") {
				out = append(out, line[:i])
			}
		}
		return out
	}

	a, b := labels(f.Format(good)), labels(f.Format(poor))
	if strings.Join(a, "|") != strings.Join(b, "|") {
		t.Errorf("labels differ between reports:\n%v\n%v", a, b)
	}

	report := f.Format(poor)
	for _, want := range []string{
		"Solar longitude: 280.123 deg",
		"Binning applied:              Yes",
		"⚠ poor fit",
		"⚠ slope not significant",
		"⚠ mass index at or below 1",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestFormatSkipAndSummary(t *testing.T) {
	f := NewFormatter(massindex.DefaultThresholds()).WithClock(fixedClock)
	res := scenarioResult(t)

	series := &temporal.Series{
		Temporality: temporal.Daily,
		Rows: []temporal.Row{
			{Label: "daily 2025-07-13", NSamples: 5, Result: &res},
			{Label: "daily 2025-07-14", NSamples: 3, Reason: massindex.ReasonInsufficientData,
				Message: "insufficient data: 1 distinct amplitude value(s)"},
		},
	}

	skip := f.FormatRow(series.Rows[1])
	for _, want := range []string{"WINDOW SKIPPED:", "Reason:                       insufficient_data", "Original data count:          3"} {
		if !strings.Contains(skip, want) {
			t.Errorf("skip report missing %q:\n%s", want, skip)
		}
	}

	if got := f.FormatRow(series.Rows[0]); got != f.Format(res) {
		t.Error("FormatRow() of an estimated row differs from Format()")
	}

	summary := f.Summary(series)
	for _, want := range []string{
		"Windows attempted: 2, estimated: 1, skipped: 1",
		"daily 2025-07-13",
		"skipped: insufficient_data",
	} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}

func TestFormatComparison(t *testing.T) {
	f := NewFormatter(massindex.DefaultThresholds()).WithClock(fixedClock)

	a := scenarioResult(t)
	b := a
	b.Regression.RSquared = 0.99
	b.MassIndex = 2.05

	comparisons := []Comparison{
		{Method: "standard", Result: &a},
		{Method: "binning_50", Result: &b},
		{Method: "min_amp_5", Reason: massindex.ReasonInsufficientData},
	}

	best, ok := BestByRSquared(comparisons)
	if !ok || best.Method != "binning_50" {
		t.Fatalf("BestByRSquared() = %q, %v, expected binning_50", best.Method, ok)
	}

	out := f.FormatComparison("annual 2024", comparisons)
	for _, want := range []string{
		"binning_50: s = 2.0500, R² = 0.9900",
		"min_amp_5       skipped: insufficient_data",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("comparison missing %q:\n%s", want, out)
		}
	}

	if _, ok := BestByRSquared([]Comparison{{Method: "x"}}); ok {
		t.Error("BestByRSquared() found a best method among skipped ones")
	}
}
