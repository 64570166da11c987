package tags

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// Defaults applied by DefaultProfile.
const (
	DefaultMake          = "2G Robotics"
	DefaultIndex         = 1.34
	DefaultViewportIndex = 1.7
	cameraMatrixLen      = 4
	distortionLen        = 5
	pixelSizeLen         = 2
	navToCameraLen       = 16
)

// CalibrationProfile holds the per-camera constants copied into every
// record. It is read from run configuration and never derived.
type CalibrationProfile struct {
	Make         string `json:"make"`
	Model        string `json:"model"`
	LensModel    string `json:"lens_model"`
	SerialNumber string `json:"serial_number,omitempty"`

	// fx, fy, cx, cy in pixels.
	CameraMatrix []float64 `json:"camera_matrix"`
	// k1, k2, p1, p2, k3.
	Distortion []float64 `json:"distortion"`
	// Pixel pitch in nm, x then y.
	PixelSize []uint16 `json:"pixel_size"`
	// mm
	FocalLength float64 `json:"focal_length"`
	FNumber     float64 `json:"f_number"`

	IndexOfRefraction float64      `json:"index_of_refraction"`
	ViewportType      ViewportType `json:"viewport_type"`
	ViewportIndex     float64      `json:"viewport_index"`
	// m; -1 when unknown
	ViewportThickness float64 `json:"viewport_thickness"`
	// mm; -1 when unknown
	ViewportDistance float64 `json:"viewport_distance"`

	// Hz
	FrameRate    float64      `json:"frame_rate"`
	BayerPattern BayerPattern `json:"bayer_pattern"`
	Flash        Flash        `json:"flash"`
	// Percent of full output.
	FlashEnergy float64     `json:"flash_energy"`
	LightSource LightSource `json:"light_source"`

	// Row-major 4x4 transform from the navigation frame to the camera
	// frame, metres.
	MatrixNavToCamera []float64 `json:"matrix_nav_to_camera"`
}

// DefaultProfile returns the constants used when a run configures nothing
// else: identity transform, 500/500/1024/1024 camera matrix and no
// distortion.
func DefaultProfile() CalibrationProfile {
	return CalibrationProfile{
		Make:              DefaultMake,
		CameraMatrix:      []float64{500, 500, 1024, 1024},
		Distortion:        make([]float64, distortionLen),
		PixelSize:         make([]uint16, pixelSizeLen),
		IndexOfRefraction: DefaultIndex,
		ViewportIndex:     DefaultViewportIndex,
		MatrixNavToCamera: []float64{
			1, 0, 0, 0,
			0, 1, 0, 0,
			0, 0, 1, 0,
			0, 0, 0, 1,
		},
	}
}

// Validate checks vector shapes, enum ranges and that every number is
// finite.
func (p CalibrationProfile) Validate() error {
	var errs []error
	checkLen := func(name string, got, want int) {
		if got != want {
			errs = append(errs, fmt.Errorf("%s: want %d values, got %d", name, want, got))
		}
	}
	checkLen("camera_matrix", len(p.CameraMatrix), cameraMatrixLen)
	checkLen("distortion", len(p.Distortion), distortionLen)
	checkLen("pixel_size", len(p.PixelSize), pixelSizeLen)
	checkLen("matrix_nav_to_camera", len(p.MatrixNavToCamera), navToCameraLen)

	scalars := map[string]float64{
		"focal_length":        p.FocalLength,
		"f_number":            p.FNumber,
		"index_of_refraction": p.IndexOfRefraction,
		"viewport_index":      p.ViewportIndex,
		"viewport_thickness":  p.ViewportThickness,
		"viewport_distance":   p.ViewportDistance,
		"frame_rate":          p.FrameRate,
		"flash_energy":        p.FlashEnergy,
	}
	for _, name := range sortedKeys(scalars) {
		if v := scalars[name]; math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%s: not finite", name))
		}
	}
	for _, vec := range []struct {
		name string
		v    []float64
	}{
		{"camera_matrix", p.CameraMatrix},
		{"distortion", p.Distortion},
		{"matrix_nav_to_camera", p.MatrixNavToCamera},
	} {
		if slices.ContainsFunc(vec.v, func(f float64) bool { return math.IsNaN(f) || math.IsInf(f, 0) }) {
			errs = append(errs, fmt.Errorf("%s: not finite", vec.name))
		}
	}

	if _, ok := viewportNames[p.ViewportType]; !ok {
		errs = append(errs, fmt.Errorf("viewport_type: invalid value %d", int(p.ViewportType)))
	}
	if _, ok := bayerNames[p.BayerPattern]; !ok {
		errs = append(errs, fmt.Errorf("bayer_pattern: invalid value %d", int(p.BayerPattern)))
	}
	if _, ok := flashNames[p.Flash]; !ok {
		errs = append(errs, fmt.Errorf("flash: invalid value %d", int(p.Flash)))
	}
	if _, ok := lightNames[p.LightSource]; !ok {
		errs = append(errs, fmt.Errorf("light_source: invalid value %d", int(p.LightSource)))
	}
	return errors.Join(errs...)
}

// Clone returns a deep copy.
func (p CalibrationProfile) Clone() CalibrationProfile {
	c := p
	c.CameraMatrix = slices.Clone(p.CameraMatrix)
	c.Distortion = slices.Clone(p.Distortion)
	c.PixelSize = slices.Clone(p.PixelSize)
	c.MatrixNavToCamera = slices.Clone(p.MatrixNavToCamera)
	return c
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
