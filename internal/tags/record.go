// Package tags assembles the per-image tag record from an aligned
// navigation fix, an aligned depth sample and the camera calibration.
package tags

import (
	"math"
	"slices"

	"github.com/banshee-data/navtag/internal/depth"
	"github.com/banshee-data/navtag/internal/psonnav"
	"github.com/banshee-data/navtag/internal/units"
)

// Position is the georeference of an image. Magnitudes are absolute; the
// sign lives in the matching ref.
type Position struct {
	Latitude     float64      `json:"latitude"`
	LatitudeRef  LatitudeRef  `json:"latitude_ref"`
	Longitude    float64      `json:"longitude"`
	LongitudeRef LongitudeRef `json:"longitude_ref"`
	Altitude     float64      `json:"altitude"`
	AltitudeRef  AltitudeRef  `json:"altitude_ref"`
	// Vehicle depth below the surface, m.
	WaterDepth float64 `json:"water_depth"`
}

// Pose is the vehicle attitude in degrees.
type Pose struct {
	Roll    float64 `json:"roll"`
	Pitch   float64 `json:"pitch"`
	Heading float64 `json:"heading"`
}

// Ranging holds the depth sensor channels.
type Ranging struct {
	SubjectDistance float64   `json:"subject_distance"`
	VehicleAltitude float64   `json:"vehicle_altitude"`
	DVL             []float64 `json:"dvl,omitempty"`
}

// Record is everything written into one image's tag set. Position and Pose
// are nil when no navigation fix was aligned, Ranging when no depth sample
// was.
type Record struct {
	PPSTimeMicros  uint64 `json:"pps_time_us"`
	DateTimeMicros uint64 `json:"date_time_us"`

	Position    *Position          `json:"position,omitempty"`
	Pose        *Pose              `json:"pose,omitempty"`
	Ranging     *Ranging           `json:"ranging,omitempty"`
	Calibration CalibrationProfile `json:"calibration"`
}

// Build assembles a record. It copies everything it keeps, so the result
// shares no memory with its inputs and the same inputs always produce an
// identical record.
func Build(imageTime float64, fix *psonnav.Fix, sample *depth.Sample, profile CalibrationProfile) *Record {
	us := units.SecondsToMicros(imageTime)
	rec := &Record{
		PPSTimeMicros:  us,
		DateTimeMicros: us,
		Calibration:    profile.Clone(),
	}

	if fix != nil {
		alt := fix.Altitude()
		rec.Position = &Position{
			Latitude:     math.Abs(fix.Latitude),
			LatitudeRef:  latitudeRefOf(fix.Latitude),
			Longitude:    math.Abs(fix.Longitude),
			LongitudeRef: longitudeRefOf(fix.Longitude),
			Altitude:     math.Abs(alt),
			AltitudeRef:  altitudeRefOf(alt),
			WaterDepth:   fix.Depth,
		}
		rec.Pose = &Pose{Roll: fix.Roll, Pitch: fix.Pitch, Heading: fix.Heading}
	}

	if sample != nil {
		if d, ok := sample.Distance(); ok {
			rec.Ranging = &Ranging{
				SubjectDistance: d,
				VehicleAltitude: d,
				DVL:             slices.Clone(sample.DVL()),
			}
		}
	}
	return rec
}

// SignedLatitude returns the latitude with its hemisphere applied.
func (p *Position) SignedLatitude() float64 {
	if p.LatitudeRef == South {
		return -p.Latitude
	}
	return p.Latitude
}

// SignedLongitude returns the longitude with its hemisphere applied.
func (p *Position) SignedLongitude() float64 {
	if p.LongitudeRef == West {
		return -p.Longitude
	}
	return p.Longitude
}

// SignedAltitude returns the altitude relative to sea level, negative
// below it.
func (p *Position) SignedAltitude() float64 {
	if p.AltitudeRef == BelowSeaLevel {
		return -p.Altitude
	}
	return p.Altitude
}

// ImageTime returns the capture time in seconds.
func (r *Record) ImageTime() float64 {
	return units.MicrosToSeconds(r.PPSTimeMicros)
}
