package tagstore

import (
	"encoding/json"
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/navtag/internal/depth"
	"github.com/banshee-data/navtag/internal/fsutil"
	"github.com/banshee-data/navtag/internal/psonnav"
	"github.com/banshee-data/navtag/internal/tags"
)

func writeImage(t *testing.T, fsys fsutil.FileSystem, path string, sidecar string) {
	t.Helper()
	require.NoError(t, fsys.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, fsys.WriteFile(path, []byte("II*\x00pixels"), 0644))
	if sidecar != "" {
		require.NoError(t, fsys.WriteFile(SidecarPath(path), []byte(sidecar), 0644))
	}
}

func testRecord() *tags.Record {
	fix := &psonnav.Fix{Latitude: -44.5, Longitude: 81.25, Depth: 12.5, Roll: 1, Pitch: 2, Heading: 3}
	sample := &depth.Sample{Channels: []float64{-2.5, 1, 2}}
	return tags.Build(1606137707.304, fix, sample, tags.DefaultProfile())
}

func TestSidecar_LoadHeader(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	store := NewSidecar(mfs, "/out")

	t.Run("pps time and identity", func(t *testing.T) {
		writeImage(t, mfs, "/in/a_raw_1.tif", `{"pps_time_us": 1606137707304000, "make": "2G Robotics", "model": "40-0026", "image_width": 2048}`)
		h, err := store.LoadHeader("/in/a_raw_1.tif")
		require.NoError(t, err)
		assert.True(t, h.HasPPSTime)
		assert.Equal(t, uint64(1606137707304000), h.PPSTimeMicros)
		assert.Equal(t, "2G Robotics", h.Make)
		assert.Equal(t, "40-0026", h.Model)
		assert.Equal(t, json.Number("2048"), h.Fields["image_width"])
	})

	t.Run("no sidecar is an empty header", func(t *testing.T) {
		writeImage(t, mfs, "/in/b_raw_2.tif", "")
		h, err := store.LoadHeader("/in/b_raw_2.tif")
		require.NoError(t, err)
		assert.False(t, h.HasPPSTime)
		assert.Empty(t, h.Fields)
	})

	t.Run("missing image", func(t *testing.T) {
		_, err := store.LoadHeader("/in/missing.tif")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrPersistence))
		assert.True(t, errors.Is(err, fs.ErrNotExist))

		var perr *PersistenceError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, OpLoadHeader, perr.Op)
		assert.Equal(t, "/in/missing.tif", perr.Path)
	})

	t.Run("corrupt sidecar", func(t *testing.T) {
		writeImage(t, mfs, "/in/c_raw_3.tif", `{"pps_time_us": `)
		_, err := store.LoadHeader("/in/c_raw_3.tif")
		assert.ErrorIs(t, err, ErrPersistence)
	})

	t.Run("negative pps time", func(t *testing.T) {
		writeImage(t, mfs, "/in/d_raw_4.tif", `{"pps_time_us": -5}`)
		_, err := store.LoadHeader("/in/d_raw_4.tif")
		assert.ErrorIs(t, err, ErrPersistence)

		var perr *PersistenceError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, OpLoadHeader, perr.Op)
		assert.Equal(t, "/in/d_raw_4.tif", perr.Path)
		assert.Contains(t, perr.Error(), "pps_time_us")
	})

	t.Run("string pps time", func(t *testing.T) {
		writeImage(t, mfs, "/in/e_raw_5.tif", `{"pps_time_us": "soon"}`)
		_, err := store.LoadHeader("/in/e_raw_5.tif")
		assert.ErrorIs(t, err, ErrPersistence)
	})

	t.Run("directory", func(t *testing.T) {
		_, err := store.LoadHeader("/in")
		assert.ErrorIs(t, err, ErrPersistence)
	})
}

func TestSidecar_SaveTags(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	store := NewSidecar(mfs, "/out")
	writeImage(t, mfs, "/in/a_raw_1.tif", `{"pps_time_us": 1, "image_width": 2048, "latitude": 99}`)

	require.NoError(t, store.SaveTags(testRecord(), "/in/a_raw_1.tif", "/out/a_raw_1.tif"))

	img, err := mfs.ReadFile("/out/a_raw_1.tif")
	require.NoError(t, err)
	assert.Equal(t, "II*\x00pixels", string(img))

	h, err := store.LoadHeader("/out/a_raw_1.tif")
	require.NoError(t, err)
	assert.Equal(t, uint64(1606137707304000), h.PPSTimeMicros)
	assert.Equal(t, json.Number("44.5"), h.Fields["latitude"], "record wins over source tags")
	assert.Equal(t, "S", h.Fields["latitude_ref"])
	assert.Equal(t, "E", h.Fields["longitude_ref"])
	assert.Equal(t, "below_sea_level", h.Fields["altitude_ref"])
	assert.Equal(t, json.Number("2048"), h.Fields["image_width"], "extra source tags carried over")
	assert.Equal(t, tags.DefaultMake, h.Make)

	raw, err := mfs.ReadFile(SidecarPath("/out/a_raw_1.tif"))
	require.NoError(t, err)
	doc := string(raw)
	assert.Less(t, strings.Index(doc, `"pps_time_us"`), strings.Index(doc, `"latitude"`))
	assert.Less(t, strings.Index(doc, `"latitude"`), strings.Index(doc, `"make"`))
	assert.Less(t, strings.Index(doc, `"matrix_nav_to_camera"`), strings.Index(doc, `"image_width"`))
}

func TestSidecar_SaveTagsFailures(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	store := NewSidecar(mfs, "/out")
	writeImage(t, mfs, "/in/a_raw_1.tif", "")

	cases := []struct {
		name string
		rec  *tags.Record
		src  string
		dst  string
	}{
		{"escapes output dir", testRecord(), "/in/a_raw_1.tif", "/out/../in/copy.tif"},
		{"missing source", testRecord(), "/in/missing.tif", "/out/missing.tif"},
		{"nil record", nil, "/in/a_raw_1.tif", "/out/a.tif"},
		{"unencodable value", func() *tags.Record {
			r := testRecord()
			r.Calibration.FocalLength = math.Inf(1)
			return r
		}(), "/in/a_raw_1.tif", "/out/inf.tif"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := store.SaveTags(tc.rec, tc.src, tc.dst)
			require.Error(t, err)
			var perr *PersistenceError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, OpSaveTags, perr.Op)
			assert.Equal(t, tc.dst, perr.Path)
			assert.False(t, mfs.Exists(tc.dst), "nothing written on failure")
		})
	}

	unbounded := NewSidecar(mfs, "")
	err := unbounded.SaveTags(testRecord(), "/in/a_raw_1.tif", "/in/a_raw_1.tif")
	assert.ErrorIs(t, err, ErrPersistence, "overwriting the source is refused")
}

func TestSidecar_OSFileSystem(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in", "a_raw_1.tif")
	outDir := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(outDir, 0755))

	osfs := fsutil.OSFileSystem{}
	writeImage(t, osfs, in, `{"pps_time_us": 5000000}`)

	store := NewSidecar(osfs, outDir)
	h, err := store.LoadHeader(in)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000000), h.PPSTimeMicros)

	require.NoError(t, store.SaveTags(testRecord(), in, filepath.Join(outDir, "a_raw_1.tif")))
	assert.FileExists(t, filepath.Join(outDir, "a_raw_1.tif"+SidecarSuffix))

	err = store.SaveTags(testRecord(), in, filepath.Join(dir, "elsewhere.tif"))
	assert.ErrorIs(t, err, ErrPersistence)
}
