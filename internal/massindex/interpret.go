package massindex

import "fmt"

// FitQuality is the qualitative rating of a regression's R²
type FitQuality string

const (
	FitExcellent  FitQuality = "excellent"
	FitAcceptable FitQuality = "acceptable"
	FitPoor       FitQuality = "poor"
)

// Thresholds are the policy constants used to interpret a result. They are
// advisory only and never change the estimate itself.
type Thresholds struct {
	// Excellent is the lowest R² rated as an excellent fit
	Excellent float64

	// Acceptable is the lowest R² rated as an acceptable fit
	Acceptable float64

	// SignificanceLevel flags slopes whose p-value is at or above it.
	// Zero disables the flag.
	SignificanceLevel float64
}

// DefaultThresholds returns the customary interpretation thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		Excellent:         0.80,
		Acceptable:        0.60,
		SignificanceLevel: 0.05,
	}
}

// Quality rates a coefficient of determination
func (t Thresholds) Quality(rSquared float64) FitQuality {
	switch {
	case rSquared >= t.Excellent:
		return FitExcellent
	case rSquared >= t.Acceptable:
		return FitAcceptable
	default:
		return FitPoor
	}
}

// Flag returns the human-readable flag for a fit quality
func (q FitQuality) Flag() string {
	switch q {
	case FitExcellent:
		return "excellent fit"
	case FitAcceptable:
		return "acceptable fit"
	default:
		return "poor fit — review data quality"
	}
}

// Interpretation is one advisory line of a report
type Interpretation struct {
	OK      bool
	Message string
}

// Interpret returns the advisory flags for a result, fit quality first
func (t Thresholds) Interpret(r Result) []Interpretation {
	quality := t.Quality(r.Regression.RSquared)
	flags := []Interpretation{
		{OK: quality != FitPoor, Message: quality.Flag()},
	}

	if t.SignificanceLevel > 0 && r.Regression.PValue >= t.SignificanceLevel {
		flags = append(flags, Interpretation{
			Message: fmt.Sprintf("slope not significant at %g level (p = %.2e)", t.SignificanceLevel, r.Regression.PValue),
		})
	}

	if r.MassIndex <= 1 {
		flags = append(flags, Interpretation{
			Message: "mass index at or below 1, not physical for a meteoroid population",
		})
	}

	flags = append(flags, Interpretation{
		OK:      true,
		Message: fmt.Sprintf("Computed mass index: s = %.4f", r.MassIndex),
	})

	return flags
}
