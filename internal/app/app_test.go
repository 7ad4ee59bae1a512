package app

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chrissnell/massindex/internal/massindex"
	"github.com/chrissnell/massindex/internal/temporal"
	"github.com/chrissnell/massindex/pkg/config"
)

type staticProvider struct {
	config config.ConfigData
}

func (p *staticProvider) LoadConfig() (*config.ConfigData, error) {
	c := p.config
	return &c, nil
}

func (p *staticProvider) IsReadOnly() bool { return true }
func (p *staticProvider) Close() error     { return nil }

const dataset = `Fecha y hora;amax
2025-08-12 01:00:00;1000
2025-08-12 02:00:00;2000
2025-08-12 03:00:00;2000
2025-08-12 04:00:00;4000
2025-08-12 05:00:00;8000
2025-08-13 01:00:00;500
2025-08-13 02:00:00;500
`

func newTestApp(t *testing.T, dir string) *App {
	t.Helper()
	input := filepath.Join(dir, "2025_consolidado.csv")
	if err := os.WriteFile(input, []byte(dataset), 0o644); err != nil {
		t.Fatalf("error writing fixture: %v", err)
	}

	provider := &staticProvider{config: config.ConfigData{
		Input:    config.InputData{Path: input},
		Analysis: config.AnalysisData{Temporalities: []string{"daily", "anual", "annual"}},
		Output:   config.OutputData{ReportDir: filepath.Join(dir, "reports")},
		Storage:  config.StorageData{SQLite: &config.SQLiteData{Path: filepath.Join(dir, "runs.db")}},
	}}

	a := New(provider, nil)
	a.now = func() time.Time { return time.Date(2025, 8, 14, 10, 0, 0, 0, time.UTC) }
	return a
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	a := newTestApp(t, dir)

	summary, err := a.Run(context.Background(), Options{Compare: true, Annotate: true})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if summary.Records != 7 {
		t.Errorf("Records = %d, expected 7", summary.Records)
	}
	// two daily windows and one annual window; the all-500 day is skipped
	if summary.Windows != 3 || summary.Skipped != 1 {
		t.Errorf("Windows = %d, Skipped = %d, expected 3 and 1", summary.Windows, summary.Skipped)
	}
	if summary.Previous != 0 {
		t.Errorf("Previous = %d on a fresh store", summary.Previous)
	}

	// 2 daily reports + summary, 1 annual report + summary, table, comparison, annotations
	if len(summary.Files) != 8 {
		t.Errorf("expected 8 files, got %d: %v", len(summary.Files), summary.Files)
	}
	for _, f := range summary.Files {
		if _, err := os.Stat(f); err != nil {
			t.Errorf("missing output %s: %v", f, err)
		}
	}

	report, err := os.ReadFile(filepath.Join(dir, "reports", "daily", "daily_2025-08-12.txt"))
	if err != nil {
		t.Fatalf("error reading daily report: %v", err)
	}
	if !strings.Contains(string(report), "Computed mass index: s = 1.7966") {
		t.Errorf("daily report does not carry the estimate:\n%s", report)
	}

	table, err := os.ReadFile(filepath.Join(dir, "reports", "mass_index.csv"))
	if err != nil {
		t.Fatalf("error reading table: %v", err)
	}
	if lines := strings.Count(string(table), "\n"); lines != 4 {
		t.Errorf("table has %d lines, expected header plus 3 rows", lines)
	}

	again, err := a.Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("second Run() error: %v", err)
	}
	if again.Previous != 1 {
		t.Errorf("Previous = %d on the second run, expected 1", again.Previous)
	}
	if again.RunID == summary.RunID {
		t.Error("runs share an identifier")
	}
}

func TestRunInvalidConfig(t *testing.T) {
	a := New(&staticProvider{config: config.ConfigData{Input: config.InputData{Type: "csv"}}}, nil)
	if _, err := a.Run(context.Background(), Options{}); err == nil || !strings.Contains(err.Error(), "input.path") {
		t.Errorf("Run() = %v, expected a configuration error", err)
	}
}

func TestRunOverride(t *testing.T) {
	dir := t.TempDir()
	a := newTestApp(t, dir)

	override := func(c *config.ConfigData) {
		c.Analysis.Temporalities = []string{"weekly"}
		c.Output.SkipReports = true
		c.Storage = config.StorageData{}
	}
	summary, err := a.Run(context.Background(), Options{Override: override})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if summary.Windows != 1 || len(summary.Files) != 1 {
		t.Errorf("summary = %+v, expected one weekly window and only the table", summary)
	}
}

func TestRunEmptyInput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "empty.csv")
	if err := os.WriteFile(input, []byte("Fecha y hora;amax\n"), 0o644); err != nil {
		t.Fatalf("error writing fixture: %v", err)
	}

	a := New(&staticProvider{config: config.ConfigData{Input: config.InputData{Path: input}}}, nil)
	if _, err := a.Run(context.Background(), Options{}); !errors.Is(err, ErrNoRecords) {
		t.Errorf("Run() = %v, expected ErrNoRecords", err)
	}
}

func TestCompare(t *testing.T) {
	day := time.Date(2025, 8, 12, 0, 0, 0, 0, time.UTC)
	var records []temporal.Record
	// the trailing zero is not a usable amplitude and is left out of every method
	for i, amp := range []float64{1.5, 1000, 2000, 2000, 4000, 8000, 0} {
		records = append(records, temporal.Record{Time: day.Add(time.Duration(i) * time.Hour), Amplitude: amp})
	}

	methods := []Method{
		{Name: "all"},
		{Name: "min 2", MinAmplitude: 2},
		{Name: "min 10000", MinAmplitude: 10000},
	}
	comparisons := Compare(records, methods, 0, time.UTC)
	if len(comparisons) != 3 {
		t.Fatalf("expected 3 comparisons, got %d", len(comparisons))
	}

	if comparisons[0].Result == nil || comparisons[0].Result.NOriginal != 6 {
		t.Errorf("unfiltered comparison = %+v", comparisons[0])
	}

	filtered := comparisons[1].Result
	if filtered == nil {
		t.Fatalf("filtered comparison has no result: %s", comparisons[1].Reason)
	}
	if math.Abs(filtered.MassIndex-1.7966) > 1e-4 {
		t.Errorf("filtered mass index = %.4f, expected 1.7966", filtered.MassIndex)
	}
	if filtered.Label != "all data" || filtered.Period != "12/08/2025-12/08/2025" {
		t.Errorf("filtered window = %q %q", filtered.Label, filtered.Period)
	}

	if comparisons[2].Result != nil || comparisons[2].Reason != massindex.ReasonInsufficientData {
		t.Errorf("empty comparison = %+v", comparisons[2])
	}
}

func TestDefaultMethods(t *testing.T) {
	methods := DefaultMethods()
	if len(methods) != 5 {
		t.Fatalf("expected 5 methods, got %d", len(methods))
	}
	if methods[0].MinAmplitude != 0 || methods[0].Binning.Enabled {
		t.Errorf("first method is not the plain estimate: %+v", methods[0])
	}
}

func TestRunTableSeparatorIndependentOfInput(t *testing.T) {
	dir := t.TempDir()
	a := newTestApp(t, dir)

	override := func(c *config.ConfigData) {
		c.Output.Comma = ","
		c.Output.DecimalPoint = true
		c.Output.SkipReports = true
		c.Storage = config.StorageData{}
	}
	if _, err := a.Run(context.Background(), Options{Override: override}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	table, err := os.ReadFile(filepath.Join(dir, "reports", "mass_index.csv"))
	if err != nil {
		t.Fatalf("error reading table: %v", err)
	}
	header := strings.SplitN(string(table), "\n", 2)[0]
	if !strings.HasPrefix(header, "window_label,mass_index,slope") {
		t.Errorf("header = %q, expected comma-separated columns", header)
	}
}
