// Package solarlon computes the solar longitude of an instant, the time
// coordinate meteor observers use to compare activity across years. Values are
// referred to the mean equinox of J2000.0 and are accurate to about 0.01°.
package solarlon

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/solar"
)

// precessionPerYear converts a longitude of date to the J2000.0 equinox (Meeus ch. 25)
const precessionPerYear = 0.01397

// At returns the J2000.0 solar longitude in degrees [0,360) at t
func At(t time.Time) float64 {
	jd := julian.TimeToJD(t.UTC())
	T := base.J2000Century(jd)

	s, _ := solar.True(T)
	lambda := s.Deg() - precessionPerYear*T*100

	return normalizeAngle(lambda)
}

// normalizeAngle maps an angle in degrees into [0,360)
func normalizeAngle(angle float64) float64 {
	a := math.Mod(angle, 360)
	if a < 0 {
		a += 360
	}
	return a
}
