package report

import (
	"fmt"
	"strings"

	"github.com/chrissnell/massindex/internal/massindex"
)

// Comparison is the result of one estimation method applied to the same data
type Comparison struct {
	Method string
	Result *massindex.Result
	Reason string
}

// BestByRSquared returns the comparison with the highest R², or false when no
// method produced a result
func BestByRSquared(comparisons []Comparison) (Comparison, bool) {
	var best Comparison
	found := false
	for _, c := range comparisons {
		if c.Result == nil {
			continue
		}
		if !found || c.Result.Regression.RSquared > best.Result.Regression.RSquared {
			best = c
			found = true
		}
	}
	return best, found
}

// FormatComparison renders a side-by-side table of estimation methods
func (f *Formatter) FormatComparison(title string, comparisons []Comparison) string {
	var b strings.Builder

	writeBanner(&b, "METHOD COMPARISON - MASS INDEX")
	fmt.Fprintf(&b, "Analysis date: %s\n", f.now().Format(timestampLayout))
	fmt.Fprintf(&b, "Analyzed period: %s\n", title)
	b.WriteString("\n")

	writeHeader(&b, "COMPARATIVE RESULTS:", 25)
	fmt.Fprintf(&b, "%-15s %-8s %-9s %-10s %-8s %-12s %-10s\n",
		"Method", "N_data", "N_regres", "Index_s", "R²", "P-value", "Std_error")
	b.WriteString(strings.Repeat("-", 78) + "\n")

	for _, c := range comparisons {
		if c.Result == nil {
			fmt.Fprintf(&b, "%-15s skipped: %s\n", c.Method, c.Reason)
			continue
		}
		r := c.Result
		fmt.Fprintf(&b, "%-15s %-8d %-9d %-10.4f %-8.4f %-12.2e %-10.4f\n",
			c.Method, r.NOriginal, r.NRegression, r.MassIndex,
			r.Regression.RSquared, r.Regression.PValue, r.Regression.StdErr)
	}

	if best, ok := BestByRSquared(comparisons); ok {
		b.WriteString("\nBEST METHOD (by R²):\n")
		fmt.Fprintf(&b, "  %s: s = %.4f, R² = %.4f\n",
			best.Method, best.Result.MassIndex, best.Result.Regression.RSquared)
	}

	return b.String()
}
