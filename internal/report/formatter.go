// Package report renders mass index results as fixed-layout text reports and
// exports batch results as tables.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/chrissnell/massindex/internal/massindex"
	"github.com/chrissnell/massindex/internal/temporal"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	labelWidth      = 30
)

// Formatter renders text reports. The layout is identical for every
// temporality so reports can be parsed by label or by position.
type Formatter struct {
	thresholds massindex.Thresholds
	now        func() time.Time
}

// NewFormatter creates a Formatter that interprets results with thresholds
func NewFormatter(thresholds massindex.Thresholds) *Formatter {
	return &Formatter{
		thresholds: thresholds,
		now:        time.Now,
	}
}

// WithClock replaces the clock used for the analysis timestamp
func (f *Formatter) WithClock(now func() time.Time) *Formatter {
	f.now = now
	return f
}

// Format renders the report for a single result
func (f *Formatter) Format(r massindex.Result) string {
	var b strings.Builder

	writeBanner(&b, "METEOR MASS INDEX ANALYSIS")
	fmt.Fprintf(&b, "Analysis date: %s\n", f.now().Format(timestampLayout))
	fmt.Fprintf(&b, "Analyzed period: %s\n", r.Label)
	fmt.Fprintf(&b, "Period: %s\n", r.Period)
	fmt.Fprintf(&b, "Solar longitude: %s\n", formatSolarLongitude(r.SolarLongitude))
	b.WriteString("\n")

	writeHeader(&b, "MAIN RESULTS:", 25)
	field(&b, "Mass index (s):", "%.4f", r.MassIndex)
	field(&b, "Regression slope:", "%.4f", r.Regression.Slope)
	field(&b, "Intercept:", "%.4f", r.Regression.Intercept)
	field(&b, "Correlation coefficient:", "%.4f", r.Regression.R)
	field(&b, "R² (goodness of fit):", "%.4f", r.Regression.RSquared)
	field(&b, "P-value:", "%.2e", r.Regression.PValue)
	field(&b, "Standard error:", "%.4f", r.Regression.StdErr)
	b.WriteString("\n")

	writeHeader(&b, "DATA STATISTICS:", 22)
	field(&b, "Original data count:", "%d", r.NOriginal)
	field(&b, "Points used in regression:", "%d", r.NRegression)
	field(&b, "Minimum amplitude:", "%.2f", r.AmpMin)
	field(&b, "Maximum amplitude:", "%.2f", r.AmpMax)
	field(&b, "Mean amplitude:", "%.2f", r.AmpMean)
	field(&b, "Binning applied:", "%s", yesNo(r.Binning))
	b.WriteString("\n")

	writeHeader(&b, "INTERPRETATION:", 15)
	for _, flag := range f.thresholds.Interpret(r) {
		mark := "⚠"
		if flag.OK {
			mark = "✓"
		}
		fmt.Fprintf(&b, "%s %s\n", mark, flag.Message)
	}

	return b.String()
}

// Write renders the report for r to w
func (f *Formatter) Write(w io.Writer, r massindex.Result) error {
	_, err := io.WriteString(w, f.Format(r))
	return err
}

// FormatSkip renders the report of a window that produced no result
func (f *Formatter) FormatSkip(row temporal.Row) string {
	var b strings.Builder

	writeBanner(&b, "METEOR MASS INDEX ANALYSIS")
	fmt.Fprintf(&b, "Analysis date: %s\n", f.now().Format(timestampLayout))
	fmt.Fprintf(&b, "Analyzed period: %s\n", row.Label)
	fmt.Fprintf(&b, "Period: %s\n", row.Period)
	fmt.Fprintf(&b, "Solar longitude: %s\n", formatSolarLongitude(row.SolarLongitude))
	b.WriteString("\n")

	writeHeader(&b, "WINDOW SKIPPED:", 15)
	field(&b, "Reason:", "%s", row.Reason)
	field(&b, "Original data count:", "%d", row.NSamples)
	field(&b, "Detail:", "%s", row.Message)

	return b.String()
}

// FormatRow renders a result report or a skip report depending on the row
func (f *Formatter) FormatRow(row temporal.Row) string {
	if row.Result != nil {
		return f.Format(*row.Result)
	}
	return f.FormatSkip(row)
}

// Summary lists every window attempted in a batch with its mass index or the
// reason it was skipped
func (f *Formatter) Summary(series *temporal.Series) string {
	var b strings.Builder

	writeBanner(&b, "METEOR MASS INDEX BATCH SUMMARY")
	fmt.Fprintf(&b, "Analysis date: %s\n", f.now().Format(timestampLayout))
	fmt.Fprintf(&b, "Temporality: %s\n", series.Temporality)

	skipped := len(series.Skipped())
	fmt.Fprintf(&b, "Windows attempted: %d, estimated: %d, skipped: %d\n",
		len(series.Rows), len(series.Rows)-skipped, skipped)
	b.WriteString("\n")

	fmt.Fprintf(&b, "%-28s %8s %10s %8s  %s\n", "Window", "N", "s", "R²", "Status")
	b.WriteString(strings.Repeat("-", 72) + "\n")
	for _, row := range series.Rows {
		if row.Result != nil {
			fmt.Fprintf(&b, "%-28s %8d %10.4f %8.4f  %s\n", row.Label, row.NSamples,
				row.Result.MassIndex, row.Result.Regression.RSquared, statusOK)
			continue
		}
		fmt.Fprintf(&b, "%-28s %8d %10s %8s  %s: %s\n", row.Label, row.NSamples, "-", "-",
			statusSkipped, row.Reason)
	}

	return b.String()
}

func writeHeader(b *strings.Builder, title string, rule int) {
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("-", rule) + "\n")
}

func writeBanner(b *strings.Builder, title string) {
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", 50) + "\n")
}

func field(b *strings.Builder, label, verb string, value any) {
	fmt.Fprintf(b, "%-*s"+verb+"\n", labelWidth, label, value)
}

func formatSolarLongitude(deg float64) string {
	if math.IsNaN(deg) {
		return "n/a"
	}
	return fmt.Sprintf("%.3f deg", deg)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
