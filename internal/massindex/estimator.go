package massindex

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Regression holds the ordinary least-squares fit of log10 N(>=a) against log10 a
type Regression struct {
	Slope     float64
	Intercept float64
	R         float64 // Pearson correlation coefficient
	RSquared  float64
	PValue    float64 // two-tailed, H0: slope == 0
	StdErr    float64 // standard error of the slope
	N         int     // points used in the fit
}

// Result is the mass index estimate for one window
type Result struct {
	Label  string
	Period string
	Start  time.Time
	End    time.Time

	// SolarLongitude is the J2000.0 solar longitude at the window midpoint, in
	// degrees. NaN when the window has no time bounds.
	SolarLongitude float64

	MassIndex  float64
	Regression Regression

	NOriginal   int
	NRegression int
	AmpMin      float64
	AmpMax      float64
	AmpMean     float64
	Binning     bool

	// Points is the distribution the regression was fitted to
	Points []Point
}

// Config holds estimator parameters
type Config struct {
	Binning BinningParams

	// MinSamples rejects windows with fewer raw samples. Zero disables the check;
	// the two-distinct-values requirement always applies.
	MinSamples int
}

// Estimator computes mass index results for amplitude windows
type Estimator struct {
	config Config
}

// NewEstimator creates an Estimator with the given configuration
func NewEstimator(config Config) *Estimator {
	return &Estimator{config: config}
}

// Config returns the estimator configuration
func (e *Estimator) Config() Config {
	return e.config
}

// Estimate builds the cumulative distribution of the window and fits it.
// Errors from the builder and the fit are returned unchanged.
func (e *Estimator) Estimate(w Window) (Result, error) {
	if e.config.MinSamples > 0 && len(w.Amplitudes) < e.config.MinSamples {
		return Result{}, fmt.Errorf("%w: %d samples, need at least %d", ErrInsufficientData, len(w.Amplitudes), e.config.MinSamples)
	}

	dist, err := BuildDistribution(w.Amplitudes, e.config.Binning)
	if err != nil {
		return Result{}, err
	}

	reg, err := Fit(dist.Points)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Label:          w.Label,
		Period:         w.Period,
		Start:          w.Start,
		End:            w.End,
		SolarLongitude: w.SolarLongitude(),
		MassIndex:      MassIndex(reg.Slope),
		Regression:     reg,
		NOriginal:      len(w.Amplitudes),
		NRegression:    len(dist.Points),
		AmpMin:         floats.Min(w.Amplitudes),
		AmpMax:         floats.Max(w.Amplitudes),
		AmpMean:        stat.Mean(w.Amplitudes, nil),
		Binning:        dist.Binned,
		Points:         dist.Points,
	}, nil
}

// MassIndex converts the slope of the cumulative log-log distribution into the
// mass index s = 1 - slope
func MassIndex(slope float64) float64 {
	return 1 - slope
}

// Fit runs an ordinary least-squares regression of LogCount on LogAmplitude.
// The result does not depend on the order of the points.
func Fit(points []Point) (Regression, error) {
	n := len(points)
	if n < 2 {
		return Regression{}, fmt.Errorf("%w: %d distribution point(s), need at least 2", ErrInsufficientData, n)
	}

	x := make([]float64, n)
	y := make([]float64, n)
	for i, p := range points {
		x[i] = p.LogAmplitude
		y[i] = p.LogCount
	}

	meanX := stat.Mean(x, nil)
	meanY := stat.Mean(y, nil)

	var sxx, syy float64
	for i := range x {
		dx := x[i] - meanX
		dy := y[i] - meanY
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || math.IsNaN(sxx) {
		return Regression{}, fmt.Errorf("%w: zero variance in log-amplitude", ErrDegenerateDistribution)
	}

	intercept, slope := stat.LinearRegression(x, y, nil, false)

	reg := Regression{
		Slope:     slope,
		Intercept: intercept,
		N:         n,
	}

	// A flat distribution has no correlation and no evidence against slope == 0
	if syy == 0 {
		reg.PValue = 1
		return reg, nil
	}

	reg.R = clamp(stat.Correlation(x, y, nil), -1, 1)
	reg.RSquared = clamp(reg.R*reg.R, 0, 1)

	df := n - 2
	if df == 0 {
		// Two points are always fitted exactly
		return reg, nil
	}

	var ssRes float64
	for i := range x {
		res := y[i] - (intercept + slope*x[i])
		ssRes += res * res
	}

	reg.StdErr = math.Sqrt(ssRes/float64(df)) / math.Sqrt(sxx)
	reg.PValue = slopePValue(slope, reg.StdErr, float64(df))

	return reg, nil
}

// slopePValue returns the two-tailed p-value of t = slope/stdErr with df degrees of freedom
func slopePValue(slope, stdErr, df float64) float64 {
	if stdErr == 0 {
		if slope == 0 {
			return 1
		}
		return 0
	}

	t := slope / stdErr
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return clamp(2*tDist.Survival(math.Abs(t)), 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
