// Package massindex estimates the meteoroid mass index from radar echo peak
// amplitudes. It builds the cumulative amplitude distribution N(>=a) in log-log
// space and fits it by ordinary least squares; the mass index is s = 1 - slope.
package massindex

import (
	"math"
	"time"

	"github.com/chrissnell/massindex/pkg/solarlon"
)

// Window is the set of amplitude samples belonging to one analysis period.
// Sample order is irrelevant and the slice is never modified by this package.
type Window struct {
	Label      string
	Period     string
	Start      time.Time
	End        time.Time
	Amplitudes []float64
}

// NewWindow wraps a copy of the amplitudes in a Window
func NewWindow(label, period string, start, end time.Time, amplitudes []float64) Window {
	amps := make([]float64, len(amplitudes))
	copy(amps, amplitudes)
	return Window{
		Label:      label,
		Period:     period,
		Start:      start,
		End:        end,
		Amplitudes: amps,
	}
}

// Midpoint returns the instant halfway through the window
func (w Window) Midpoint() time.Time {
	if w.End.IsZero() || w.End.Before(w.Start) {
		return w.Start
	}
	return w.Start.Add(w.End.Sub(w.Start) / 2)
}

// SolarLongitude returns the solar longitude at the window midpoint, or NaN for
// a window without a start time
func (w Window) SolarLongitude() float64 {
	if w.Start.IsZero() {
		return math.NaN()
	}
	return solarlon.At(w.Midpoint())
}
