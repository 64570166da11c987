package pipeline

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// LagStats summarises how far aligned samples sit from their image times,
// in seconds. A positive lag means the sample came after the image.
type LagStats struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

func lagStats(lags []float64) LagStats {
	if len(lags) == 0 {
		return LagStats{}
	}
	s := LagStats{N: len(lags), Min: floats.Min(lags), Max: floats.Max(lags)}
	if len(lags) == 1 {
		s.Mean = lags[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(lags, nil)
	return s
}
