package imagetime

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/navtag/internal/psonnav"
	"github.com/banshee-data/navtag/internal/tagstore"
)

var surveyDay = psonnav.Day{Year: 2020, Month: time.November, Day: 22}

func TestMetadataResolver(t *testing.T) {
	hdr := tagstore.Header{PPSTimeMicros: 1606137707304000, HasPPSTime: true}

	got, err := MetadataResolver{}.Resolve("/in/a.tif", hdr)
	require.NoError(t, err)
	assert.InDelta(t, 1606137707.304, got, 1e-6)

	offset := float64(time.Date(2020, time.December, 10, 1, 40, 20, 0, time.UTC).Unix())
	got, err = MetadataResolver{Offset: offset}.Resolve("/in/a.tif", tagstore.Header{PPSTimeMicros: 2500000, HasPPSTime: true})
	require.NoError(t, err)
	assert.Equal(t, offset+2.5, got)

	_, err = MetadataResolver{}.Resolve("/in/a.tif", tagstore.Header{})
	assert.ErrorIs(t, err, ErrNoTimestamp)
}

func TestFilenameResolver(t *testing.T) {
	r := FilenameResolver{Delimiter: "_", Day: surveyDay}

	cases := []struct {
		name string
		want float64
	}{
		{"cam_raw_134507.tif", 13*3600 + 45*60 + 7},
		{"/data/in/cam_raw_134507.304.tif", 13*3600 + 45*60 + 7.304},
		{"dive3_000000.tif", 0},
		{"dive3_235959.999.jpg", 23*3600 + 59*60 + 59.999},
		{"dive3_134507", 13*3600 + 45*60 + 7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.Resolve(tc.name, tagstore.Header{})
			require.NoError(t, err)
			assert.InDelta(t, surveyDay.Epoch()+tc.want, got, 1e-6)
		})
	}
}

func TestFilenameResolver_Errors(t *testing.T) {
	r := FilenameResolver{Delimiter: "_", Day: surveyDay}

	cases := []struct {
		name        string
		noTimestamp bool
	}{
		{"nodelimiter.tif", true},
		{"cam_raw_.tif", true},
		{"cam_raw_1345.tif", true},
		{"cam_raw_1345071.tif", true},
		{"cam_raw_136007.tif", false},
		{"cam_raw_134560.tif", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.Resolve(tc.name, tagstore.Header{})
			require.Error(t, err)
			assert.Equal(t, tc.noTimestamp, errors.Is(err, ErrNoTimestamp), "%v", err)
		})
	}

	_, err := FilenameResolver{Day: surveyDay}.Resolve("cam_raw_134507.tif", tagstore.Header{})
	assert.ErrorIs(t, err, ErrNoTimestamp)
}

func TestSecondsOfDay(t *testing.T) {
	got, err := SecondsOfDay("134507.304")
	require.NoError(t, err)
	assert.InDelta(t, 49507.304, got, 1e-9)

	// Hours are not bounded, matching the navigation log's day roll-over.
	got, err = SecondsOfDay("250000")
	require.NoError(t, err)
	assert.Equal(t, 90000.0, got)

	_, err = SecondsOfDay("12x000")
	assert.Error(t, err)
}

func TestChain(t *testing.T) {
	c := Chain{MetadataResolver{}, FilenameResolver{Delimiter: "_", Day: surveyDay}}

	got, err := c.Resolve("cam_000010.tif", tagstore.Header{PPSTimeMicros: 5000000, HasPPSTime: true})
	require.NoError(t, err)
	assert.Equal(t, 5.0, got, "header preferred")

	got, err = c.Resolve("cam_000010.tif", tagstore.Header{})
	require.NoError(t, err)
	assert.Equal(t, surveyDay.Epoch()+10, got, "falls back to file name")

	_, err = c.Resolve("cam_006000.tif", tagstore.Header{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoTimestamp), "range errors stop the chain")

	_, err = c.Resolve("camera.tif", tagstore.Header{})
	assert.ErrorIs(t, err, ErrNoTimestamp)

	_, err = Chain{}.Resolve("camera.tif", tagstore.Header{})
	assert.ErrorIs(t, err, ErrNoTimestamp)
}

func TestNew(t *testing.T) {
	r, err := New(Options{})
	require.NoError(t, err)
	assert.IsType(t, MetadataResolver{}, r)

	r, err = New(Options{Source: SourceMetadata, MetadataOffset: 3})
	require.NoError(t, err)
	assert.Equal(t, MetadataResolver{Offset: 3}, r)

	r, err = New(Options{Source: SourceFilename, Delimiter: "_raw_", Day: surveyDay})
	require.NoError(t, err)
	assert.Equal(t, FilenameResolver{Delimiter: "_raw_", Day: surveyDay}, r)

	r, err = New(Options{Source: SourceAuto, Delimiter: "_", Day: surveyDay})
	require.NoError(t, err)
	assert.IsType(t, Chain{}, r)

	_, err = New(Options{Source: SourceFilename, Day: surveyDay})
	assert.Error(t, err)
	_, err = New(Options{Source: SourceFilename, Delimiter: "_"})
	assert.Error(t, err)
	_, err = New(Options{Source: "exif"})
	assert.Error(t, err)
}
