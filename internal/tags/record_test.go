package tags

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/navtag/internal/depth"
	"github.com/banshee-data/navtag/internal/psonnav"
)

func sampleFix() *psonnav.Fix {
	return &psonnav.Fix{
		Time:      1606137707.304,
		Latitude:  -44.74863766666667,
		Longitude: -81.13835466666667,
		Depth:     0.828,
		Roll:      -0.437,
		Pitch:     -0.442,
		Heading:   187.912,
	}
}

func sampleDepth() *depth.Sample {
	return &depth.Sample{Time: 1606137707.5, Channels: []float64{-3.25, 1.5, 1.75, 2.0}}
}

func TestBuild(t *testing.T) {
	rec := Build(1606137707.304, sampleFix(), sampleDepth(), DefaultProfile())

	assert.Equal(t, uint64(1606137707304000), rec.PPSTimeMicros)
	assert.Equal(t, rec.PPSTimeMicros, rec.DateTimeMicros)
	assert.InDelta(t, 1606137707.304, rec.ImageTime(), 1e-6)

	require.NotNil(t, rec.Position)
	assert.Equal(t, 44.74863766666667, rec.Position.Latitude)
	assert.Equal(t, South, rec.Position.LatitudeRef)
	assert.Equal(t, 81.13835466666667, rec.Position.Longitude)
	assert.Equal(t, West, rec.Position.LongitudeRef)
	assert.Equal(t, 0.828, rec.Position.Altitude)
	assert.Equal(t, BelowSeaLevel, rec.Position.AltitudeRef)
	assert.Equal(t, 0.828, rec.Position.WaterDepth)

	assert.Equal(t, -44.74863766666667, rec.Position.SignedLatitude())
	assert.Equal(t, -81.13835466666667, rec.Position.SignedLongitude())
	assert.Equal(t, -0.828, rec.Position.SignedAltitude())

	require.NotNil(t, rec.Pose)
	assert.Equal(t, Pose{Roll: -0.437, Pitch: -0.442, Heading: 187.912}, *rec.Pose)

	require.NotNil(t, rec.Ranging)
	assert.Equal(t, 3.25, rec.Ranging.SubjectDistance)
	assert.Equal(t, 3.25, rec.Ranging.VehicleAltitude)
	assert.Equal(t, []float64{1.5, 1.75, 2.0}, rec.Ranging.DVL)

	assert.Equal(t, DefaultMake, rec.Calibration.Make)
}

func TestBuild_Hemispheres(t *testing.T) {
	cases := []struct {
		name    string
		lat     float64
		lon     float64
		depth   float64
		wantLat LatitudeRef
		wantLon LongitudeRef
		wantAlt AltitudeRef
	}{
		{"north east above", 10, 20, -5, North, East, AboveSeaLevel},
		{"south west below", -10, -20, 5, South, West, BelowSeaLevel},
		{"zero is north east above", 0, 0, 0, North, East, AboveSeaLevel},
		{"negative zero is north east", math.Copysign(0, -1), math.Copysign(0, -1), 0, North, East, AboveSeaLevel},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fix := &psonnav.Fix{Latitude: tc.lat, Longitude: tc.lon, Depth: tc.depth}
			rec := Build(0, fix, nil, DefaultProfile())
			assert.Equal(t, tc.wantLat, rec.Position.LatitudeRef)
			assert.Equal(t, tc.wantLon, rec.Position.LongitudeRef)
			assert.Equal(t, tc.wantAlt, rec.Position.AltitudeRef)
			assert.GreaterOrEqual(t, rec.Position.Latitude, 0.0)
			assert.GreaterOrEqual(t, rec.Position.Longitude, 0.0)
			assert.GreaterOrEqual(t, rec.Position.Altitude, 0.0)
		})
	}
}

func TestBuild_MissingInputs(t *testing.T) {
	rec := Build(12.5, nil, nil, DefaultProfile())
	assert.Nil(t, rec.Position)
	assert.Nil(t, rec.Pose)
	assert.Nil(t, rec.Ranging)
	assert.Equal(t, uint64(12500000), rec.PPSTimeMicros)

	rec = Build(12.5, nil, &depth.Sample{Time: 12}, DefaultProfile())
	assert.Nil(t, rec.Ranging, "a sample without channels carries no range")

	rec = Build(12.5, nil, &depth.Sample{Time: 12, Channels: []float64{4}}, DefaultProfile())
	require.NotNil(t, rec.Ranging)
	assert.Nil(t, rec.Ranging.DVL)
}

func TestBuild_Idempotent(t *testing.T) {
	fix := sampleFix()
	sample := sampleDepth()
	profile := DefaultProfile()
	profile.Model = "40-0026"

	first := Build(1606137707.304, fix, sample, profile)
	second := Build(1606137707.304, fix, sample, profile)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Build not deterministic (-first +second):\n%s", diff)
	}
	assert.NotSame(t, first, second)
}

func TestBuild_DoesNotAliasInputs(t *testing.T) {
	sample := sampleDepth()
	profile := DefaultProfile()
	rec := Build(1, sampleFix(), sample, profile)

	sample.Channels[1] = 99
	profile.CameraMatrix[0] = 99
	assert.Equal(t, 1.5, rec.Ranging.DVL[0])
	assert.Equal(t, 500.0, rec.Calibration.CameraMatrix[0])
}

func TestDMS(t *testing.T) {
	d := DegreesToDMS(44.74863766666667)
	assert.Equal(t, 44.0, d.Degrees)
	assert.Equal(t, 44.0, d.Minutes)
	assert.InDelta(t, 55.09560, d.Seconds, 1e-4)
	assert.InDelta(t, 44.74863766666667, DMSToDegrees(d), 1e-12)

	neg := DegreesToDMS(-81.13835466666667)
	assert.Equal(t, -81.0, neg.Degrees)
	assert.Equal(t, -8.0, neg.Minutes)
	assert.InDelta(t, -81.13835466666667, DMSToDegrees(neg), 1e-12)

	assert.Equal(t, 10.5, DMSToDegrees(DMS{Degrees: 10, Minutes: 30}))
}
