package massindex

import (
	"fmt"
	"math"
	"sort"
)

// DefaultBins is the number of logarithmic intervals used when binning is
// enabled without an explicit bin count
const DefaultBins = 50

// BinningParams controls logarithmic binning of the cumulative distribution
type BinningParams struct {
	// Enabled replaces the per-amplitude points with one point per bin edge
	Enabled bool

	// Bins is the number of log10-spaced intervals between the minimum and
	// maximum amplitude. The distribution gets Bins+1 edges.
	Bins int
}

// Point is one point of the cumulative amplitude distribution
type Point struct {
	Amplitude    float64 // distinct amplitude, or bin edge when binned
	Count        int     // samples with amplitude >= Amplitude
	LogAmplitude float64
	LogCount     float64
}

// Distribution is the cumulative amplitude distribution of a window, ordered
// by descending amplitude
type Distribution struct {
	Points   []Point
	Binned   bool
	NSamples int
}

// X returns the log-amplitude coordinates
func (d Distribution) X() []float64 {
	x := make([]float64, len(d.Points))
	for i, p := range d.Points {
		x[i] = p.LogAmplitude
	}
	return x
}

// Y returns the log-cumulative-count coordinates
func (d Distribution) Y() []float64 {
	y := make([]float64, len(d.Points))
	for i, p := range d.Points {
		y[i] = p.LogCount
	}
	return y
}

// ValidateSamples rejects non-positive and non-finite amplitudes
func ValidateSamples(amplitudes []float64) error {
	for i, a := range amplitudes {
		if math.IsNaN(a) || math.IsInf(a, 0) || a <= 0 {
			return fmt.Errorf("%w: amplitude %v at index %d", ErrInvalidSample, a, i)
		}
	}
	return nil
}

// BuildDistribution converts raw amplitudes into the cumulative distribution
// N(>=a) used for the log-log regression
func BuildDistribution(amplitudes []float64, params BinningParams) (Distribution, error) {
	if err := ValidateSamples(amplitudes); err != nil {
		return Distribution{}, err
	}

	n := len(amplitudes)
	if n == 0 {
		return Distribution{}, fmt.Errorf("%w: window has no samples", ErrInsufficientData)
	}

	sorted := make([]float64, n)
	copy(sorted, amplitudes)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	if distinct := countDistinct(sorted); distinct < 2 {
		return Distribution{}, fmt.Errorf("%w: %d distinct amplitude value(s), need at least 2", ErrInsufficientData, distinct)
	}

	d := Distribution{
		Binned:   params.Enabled,
		NSamples: n,
	}

	if params.Enabled {
		d.Points = binnedPoints(sorted, params.Bins)
	} else {
		d.Points = distinctPoints(sorted)
	}

	return d, nil
}

// countDistinct counts distinct values in a sorted slice
func countDistinct(sorted []float64) int {
	if len(sorted) == 0 {
		return 0
	}
	distinct := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			distinct++
		}
	}
	return distinct
}

// distinctPoints emits one point per distinct amplitude. sorted must be in
// descending order, so the last occurrence of a value at index i has exactly
// i+1 samples greater than or equal to it.
func distinctPoints(sorted []float64) []Point {
	var points []Point
	for i := range sorted {
		if i+1 < len(sorted) && sorted[i+1] == sorted[i] {
			continue
		}
		points = append(points, newPoint(sorted[i], i+1))
	}
	return points
}

// binnedPoints emits one point per log-spaced bin edge, from the maximum
// amplitude down to the minimum
func binnedPoints(sorted []float64, bins int) []Point {
	if bins <= 0 {
		bins = DefaultBins
	}

	n := len(sorted)
	maxAmp := sorted[0]
	minAmp := sorted[n-1]
	logMin := math.Log10(minAmp)
	step := (math.Log10(maxAmp) - logMin) / float64(bins)

	points := make([]Point, 0, bins+1)
	for i := bins; i >= 0; i-- {
		var edge float64
		switch i {
		case 0:
			edge = minAmp
		case bins:
			edge = maxAmp
		default:
			edge = math.Pow(10, logMin+float64(i)*step)
		}

		// sorted is descending, so the first index below the edge is the count
		count := sort.Search(n, func(j int) bool { return sorted[j] < edge })
		if count == 0 {
			continue
		}
		points = append(points, newPoint(edge, count))
	}
	return points
}

func newPoint(amplitude float64, count int) Point {
	return Point{
		Amplitude:    amplitude,
		Count:        count,
		LogAmplitude: math.Log10(amplitude),
		LogCount:     math.Log10(float64(count)),
	}
}
