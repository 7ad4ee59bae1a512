package massindex

import "errors"

var (
	// ErrInvalidSample is returned when a non-positive or non-finite amplitude
	// reaches the distribution builder.
	ErrInvalidSample = errors.New("invalid amplitude sample")

	// ErrInsufficientData is returned when a window has fewer than two distinct
	// amplitude values, or fewer raw samples than the configured minimum.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrDegenerateDistribution is returned when the distribution points have no
	// spread in log-amplitude.
	ErrDegenerateDistribution = errors.New("degenerate distribution")
)

// Reason codes recorded for skipped windows
const (
	ReasonInvalidSample          = "invalid_sample"
	ReasonInsufficientData       = "insufficient_data"
	ReasonDegenerateDistribution = "degenerate_distribution"
	ReasonNoSamples              = "no_samples"
	ReasonError                  = "error"
)

// ReasonCode maps an estimation error to the reason code stored with a skipped window
func ReasonCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidSample):
		return ReasonInvalidSample
	case errors.Is(err, ErrInsufficientData):
		return ReasonInsufficientData
	case errors.Is(err, ErrDegenerateDistribution):
		return ReasonDegenerateDistribution
	default:
		return ReasonError
	}
}
