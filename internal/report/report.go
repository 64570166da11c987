// Package report renders survey overviews from a finished run: a track
// plot of where each image was taken and an HTML chart of altitude and
// alignment lag over time.
package report

import (
	"errors"
	"path/filepath"
	"slices"

	"github.com/banshee-data/navtag/internal/pipeline"
)

// ErrNoPoints is returned when a run wrote no positioned images.
var ErrNoPoints = errors.New("no positioned images to plot")

// Point is one written image.
type Point struct {
	Name string
	// Time is the capture time in seconds since the Unix epoch.
	Time      float64
	Latitude  float64 // signed decimal degrees
	Longitude float64
	Altitude  float64 // m, negative below sea level
	NavLag    float64
	DepthLag  float64
	HasDepth  bool
}

// Points keeps the written results that carry a position, in capture time
// order.
func Points(results []pipeline.Result) []Point {
	var pts []Point
	for _, res := range results {
		if res.State != pipeline.Written || res.Record == nil || res.Record.Position == nil {
			continue
		}
		pos := res.Record.Position
		pts = append(pts, Point{
			Name:      filepath.Base(res.Dest),
			Time:      res.ImageTime,
			Latitude:  pos.SignedLatitude(),
			Longitude: pos.SignedLongitude(),
			Altitude:  pos.SignedAltitude(),
			NavLag:    res.NavLag,
			DepthLag:  res.DepthLag,
			HasDepth:  res.HasDepth,
		})
	}
	slices.SortStableFunc(pts, func(a, b Point) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		}
		return 0
	})
	return pts
}
