package report

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/navtag/internal/depth"
	"github.com/banshee-data/navtag/internal/fsutil"
	"github.com/banshee-data/navtag/internal/pipeline"
	"github.com/banshee-data/navtag/internal/psonnav"
	"github.com/banshee-data/navtag/internal/tags"
)

func written(name string, t float64, lat, lon, d float64, withDepth bool) pipeline.Result {
	fix := &psonnav.Fix{Time: t, Latitude: lat, Longitude: lon, Depth: d}
	var sample *depth.Sample
	if withDepth {
		sample = &depth.Sample{Time: t, Channels: []float64{1.5}}
	}
	return pipeline.Result{
		Job:       pipeline.Job{Source: "/in/" + name, Dest: "/out/" + name},
		State:     pipeline.Written,
		Reached:   pipeline.Written,
		ImageTime: t,
		Record:    tags.Build(t, fix, sample, tags.DefaultProfile()),
		NavLag:    0.25,
		DepthLag:  0.5,
		HasNav:    true,
		HasDepth:  withDepth,
	}
}

func sampleResults() []pipeline.Result {
	return []pipeline.Result{
		written("b_raw_2.tif", 1606137708, -44.7486, -81.1383, 12, true),
		{Job: pipeline.Job{Source: "/in/x.tif", Dest: "/out/x.tif"}, State: pipeline.Failed, Err: errors.New("boom")},
		written("a_raw_1.tif", 1606137707, -44.7487, -81.1384, 11.5, false),
		written("c_raw_3.tif", 1606137709, -44.7485, -81.1382, 12.5, true),
	}
}

func TestPoints(t *testing.T) {
	pts := Points(sampleResults())
	require.Len(t, pts, 3, "failed results are dropped")

	assert.Equal(t, "a_raw_1.tif", pts[0].Name)
	assert.Equal(t, "b_raw_2.tif", pts[1].Name)
	assert.Equal(t, "c_raw_3.tif", pts[2].Name)

	assert.Equal(t, -44.7487, pts[0].Latitude)
	assert.Equal(t, -81.1384, pts[0].Longitude)
	assert.Equal(t, -11.5, pts[0].Altitude)
	assert.False(t, pts[0].HasDepth)
	assert.True(t, pts[1].HasDepth)
}

func TestPoints_SkipsUnpositioned(t *testing.T) {
	res := written("a.tif", 1, 0, 0, 0, false)
	res.Record.Position = nil
	assert.Empty(t, Points([]pipeline.Result{res}))
}

func TestTrackPlot(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	pts := Points(sampleResults())

	require.NoError(t, TrackPlot(mfs, "/reports/track.png", pts))
	data, err := mfs.ReadFile("/reports/track.png")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), "not a PNG")

	require.NoError(t, TrackPlot(mfs, "/reports/track.svg", pts))
	data, err = mfs.ReadFile("/reports/track.svg")
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")

	assert.Error(t, TrackPlot(mfs, "/reports/track.bmp", pts))
	assert.ErrorIs(t, TrackPlot(mfs, "/reports/empty.png", nil), ErrNoPoints)
}

func TestDepthChart(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	pts := Points(sampleResults())

	require.NoError(t, DepthChart(mfs, "/reports/depth.html", pts))
	data, err := mfs.ReadFile("/reports/depth.html")
	require.NoError(t, err)

	html := string(data)
	assert.Contains(t, html, "Survey depth and alignment")
	assert.Contains(t, html, "Vehicle altitude")
	assert.Contains(t, html, "Seconds since 2020-11-23T13:21:47Z")
	assert.Contains(t, html, "b_raw_2.tif")

	assert.ErrorIs(t, DepthChart(mfs, "/reports/empty.html", nil), ErrNoPoints)
}
