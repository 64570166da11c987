package tags

import "slices"

// Kind is the value type of a schema field.
type Kind string

const (
	KindUint64       Kind = "uint64"
	KindFloat64      Kind = "float64"
	KindString       Kind = "string"
	KindEnum         Kind = "enum"
	KindFloat64Array Kind = "float64[]"
	KindUint16Array  Kind = "uint16[]"
)

// Group collects related fields for display.
type Group string

const (
	GroupTime        Group = "time"
	GroupPosition    Group = "position"
	GroupAttitude    Group = "attitude"
	GroupRanging     Group = "ranging"
	GroupCalibration Group = "calibration"
)

// FieldSpec declares one named tag.
type FieldSpec struct {
	Name  string
	Group Group
	Kind  Kind
	Unit  string
	get   func(*Record) (any, bool)
}

// FieldValue is a schema field read from a record.
type FieldValue struct {
	FieldSpec
	Value any
}

func position(f func(*Position) any) func(*Record) (any, bool) {
	return func(r *Record) (any, bool) {
		if r.Position == nil {
			return nil, false
		}
		return f(r.Position), true
	}
}

func ranging(f func(*Ranging) any) func(*Record) (any, bool) {
	return func(r *Record) (any, bool) {
		if r.Ranging == nil {
			return nil, false
		}
		return f(r.Ranging), true
	}
}

func calibration(f func(*CalibrationProfile) any) func(*Record) (any, bool) {
	return func(r *Record) (any, bool) { return f(&r.Calibration), true }
}

// Schema lists every tag a record can carry, in output order.
var Schema = []FieldSpec{
	{Name: "pps_time_us", Group: GroupTime, Kind: KindUint64, Unit: "us",
		get: func(r *Record) (any, bool) { return r.PPSTimeMicros, true }},
	{Name: "date_time_us", Group: GroupTime, Kind: KindUint64, Unit: "us",
		get: func(r *Record) (any, bool) { return r.DateTimeMicros, true }},

	{Name: "latitude", Group: GroupPosition, Kind: KindFloat64, Unit: "deg",
		get: position(func(p *Position) any { return p.Latitude })},
	{Name: "latitude_ref", Group: GroupPosition, Kind: KindEnum,
		get: position(func(p *Position) any { return p.LatitudeRef })},
	{Name: "longitude", Group: GroupPosition, Kind: KindFloat64, Unit: "deg",
		get: position(func(p *Position) any { return p.Longitude })},
	{Name: "longitude_ref", Group: GroupPosition, Kind: KindEnum,
		get: position(func(p *Position) any { return p.LongitudeRef })},
	{Name: "altitude", Group: GroupPosition, Kind: KindFloat64, Unit: "m",
		get: position(func(p *Position) any { return p.Altitude })},
	{Name: "altitude_ref", Group: GroupPosition, Kind: KindEnum,
		get: position(func(p *Position) any { return p.AltitudeRef })},
	{Name: "water_depth", Group: GroupPosition, Kind: KindFloat64, Unit: "m",
		get: position(func(p *Position) any { return p.WaterDepth })},

	{Name: "pose", Group: GroupAttitude, Kind: KindFloat64Array, Unit: "deg",
		get: func(r *Record) (any, bool) {
			if r.Pose == nil {
				return nil, false
			}
			return []float64{r.Pose.Roll, r.Pose.Pitch, r.Pose.Heading}, true
		}},

	{Name: "subject_distance", Group: GroupRanging, Kind: KindFloat64, Unit: "m",
		get: ranging(func(g *Ranging) any { return g.SubjectDistance })},
	{Name: "vehicle_altitude", Group: GroupRanging, Kind: KindFloat64, Unit: "m",
		get: ranging(func(g *Ranging) any { return g.VehicleAltitude })},
	{Name: "dvl", Group: GroupRanging, Kind: KindFloat64Array, Unit: "m",
		get: func(r *Record) (any, bool) {
			if r.Ranging == nil || len(r.Ranging.DVL) == 0 {
				return nil, false
			}
			return slices.Clone(r.Ranging.DVL), true
		}},

	{Name: "make", Group: GroupCalibration, Kind: KindString,
		get: calibration(func(c *CalibrationProfile) any { return c.Make })},
	{Name: "model", Group: GroupCalibration, Kind: KindString,
		get: calibration(func(c *CalibrationProfile) any { return c.Model })},
	{Name: "lens_model", Group: GroupCalibration, Kind: KindString,
		get: calibration(func(c *CalibrationProfile) any { return c.LensModel })},
	{Name: "serial_number", Group: GroupCalibration, Kind: KindString,
		get: func(r *Record) (any, bool) {
			return r.Calibration.SerialNumber, r.Calibration.SerialNumber != ""
		}},
	{Name: "camera_matrix", Group: GroupCalibration, Kind: KindFloat64Array, Unit: "px",
		get: calibration(func(c *CalibrationProfile) any { return slices.Clone(c.CameraMatrix) })},
	{Name: "distortion", Group: GroupCalibration, Kind: KindFloat64Array,
		get: calibration(func(c *CalibrationProfile) any { return slices.Clone(c.Distortion) })},
	{Name: "pixel_size", Group: GroupCalibration, Kind: KindUint16Array, Unit: "nm",
		get: calibration(func(c *CalibrationProfile) any { return slices.Clone(c.PixelSize) })},
	{Name: "focal_length", Group: GroupCalibration, Kind: KindFloat64, Unit: "mm",
		get: calibration(func(c *CalibrationProfile) any { return c.FocalLength })},
	{Name: "f_number", Group: GroupCalibration, Kind: KindFloat64,
		get: calibration(func(c *CalibrationProfile) any { return c.FNumber })},
	{Name: "index_of_refraction", Group: GroupCalibration, Kind: KindFloat64,
		get: calibration(func(c *CalibrationProfile) any { return c.IndexOfRefraction })},
	{Name: "viewport_type", Group: GroupCalibration, Kind: KindEnum,
		get: calibration(func(c *CalibrationProfile) any { return c.ViewportType })},
	{Name: "viewport_index", Group: GroupCalibration, Kind: KindFloat64,
		get: calibration(func(c *CalibrationProfile) any { return c.ViewportIndex })},
	{Name: "viewport_thickness", Group: GroupCalibration, Kind: KindFloat64, Unit: "m",
		get: calibration(func(c *CalibrationProfile) any { return c.ViewportThickness })},
	{Name: "viewport_distance", Group: GroupCalibration, Kind: KindFloat64, Unit: "mm",
		get: calibration(func(c *CalibrationProfile) any { return c.ViewportDistance })},
	{Name: "frame_rate", Group: GroupCalibration, Kind: KindFloat64, Unit: "Hz",
		get: calibration(func(c *CalibrationProfile) any { return c.FrameRate })},
	{Name: "bayer_pattern", Group: GroupCalibration, Kind: KindEnum,
		get: calibration(func(c *CalibrationProfile) any { return c.BayerPattern })},
	{Name: "flash", Group: GroupCalibration, Kind: KindEnum,
		get: calibration(func(c *CalibrationProfile) any { return c.Flash })},
	{Name: "flash_energy", Group: GroupCalibration, Kind: KindFloat64, Unit: "%",
		get: calibration(func(c *CalibrationProfile) any { return c.FlashEnergy })},
	{Name: "light_source", Group: GroupCalibration, Kind: KindEnum,
		get: calibration(func(c *CalibrationProfile) any { return c.LightSource })},
	{Name: "matrix_nav_to_camera", Group: GroupCalibration, Kind: KindFloat64Array, Unit: "m",
		get: calibration(func(c *CalibrationProfile) any { return slices.Clone(c.MatrixNavToCamera) })},
}

// LookupField returns the spec for name.
func LookupField(name string) (FieldSpec, bool) {
	for _, f := range Schema {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Fields returns every set field of r in schema order. Fields whose group
// is absent from r (no fix, no depth sample) are omitted.
func (r *Record) Fields() []FieldValue {
	out := make([]FieldValue, 0, len(Schema))
	for _, spec := range Schema {
		if v, ok := spec.get(r); ok {
			out = append(out, FieldValue{FieldSpec: spec, Value: v})
		}
	}
	return out
}

// Get returns the value of one named field.
func (r *Record) Get(name string) (any, bool) {
	spec, ok := LookupField(name)
	if !ok {
		return nil, false
	}
	return spec.get(r)
}
