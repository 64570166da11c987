package tags

import "math"

// DMS is a coordinate magnitude split into degrees, minutes and seconds,
// the rational triple used by GPS image tags.
type DMS struct {
	Degrees float64
	Minutes float64
	Seconds float64
}

// DMSToDegrees folds a degrees/minutes/seconds triple into decimal degrees.
func DMSToDegrees(d DMS) float64 {
	return d.Degrees + d.Minutes/60 + d.Seconds/3600
}

// DegreesToDMS splits decimal degrees into whole degrees, whole minutes
// and fractional seconds. Each part carries the sign of the input.
func DegreesToDMS(deg float64) DMS {
	d := math.Trunc(deg)
	m := math.Trunc((deg - d) * 60)
	s := (deg - d - m/60) * 3600
	return DMS{Degrees: d, Minutes: m, Seconds: s}
}
