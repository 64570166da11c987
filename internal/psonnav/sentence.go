// Package psonnav decodes PSONNAV navigation sentences produced by the
// survey vehicle's inertial navigation system and loads whole log files
// of them.
//
// A sentence is one ASCII line of comma separated positional fields:
//
//	$PSONNAV,134507.304,4444.918260,S,08108.301280,W,0.889,0.729,209.57,A,0.828,0.049,-0.437,-0.442,187.912,0.066,A,IDV,,,,,*22
//
// The time field counts seconds since midnight of the day the log was
// started, so decoding needs the calendar day from the caller.
package psonnav

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Marker identifies a navigation sentence within a line.
const Marker = "$PSONNAV"

// Field is the positional index of a value within a sentence, counted
// from the marker field at index 0.
type Field int

const (
	FieldTime                   Field = 1  // seconds since midnight of the log day
	FieldLatitude               Field = 2  // ddmm.mmmmmm
	FieldLatitudeRef            Field = 3  // N/S
	FieldLongitude              Field = 4  // dddmm.mmmmmm
	FieldLongitudeRef           Field = 5  // E/W
	FieldPositionErrorMajor     Field = 6  // m
	FieldPositionErrorMinor     Field = 7  // m
	FieldPositionErrorDirection Field = 8  // deg
	FieldPositionStatus         Field = 9  // A valid, V invalid
	FieldDepth                  Field = 10 // m, positive down
	FieldDepthStdDev            Field = 11 // m
	FieldRoll                   Field = 12 // deg
	FieldPitch                  Field = 13 // deg
	FieldHeading                Field = 14 // deg
	FieldHeadingStdDev          Field = 15 // deg
	FieldOrientationStatus      Field = 16 // A valid, V invalid

	minFields = int(FieldOrientationStatus) + 1
)

var fieldNames = map[Field]string{
	FieldTime:                   "time",
	FieldLatitude:               "latitude",
	FieldLatitudeRef:            "latitude_ref",
	FieldLongitude:              "longitude",
	FieldLongitudeRef:           "longitude_ref",
	FieldPositionErrorMajor:     "position_error_major",
	FieldPositionErrorMinor:     "position_error_minor",
	FieldPositionErrorDirection: "position_error_direction",
	FieldPositionStatus:         "position_status",
	FieldDepth:                  "depth",
	FieldDepthStdDev:            "depth_stddev",
	FieldRoll:                   "roll",
	FieldPitch:                  "pitch",
	FieldHeading:                "heading",
	FieldHeadingStdDev:          "heading_stddev",
	FieldOrientationStatus:      "orientation_status",
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return "field" + strconv.Itoa(int(f))
}

// Fix is one decoded navigation sample.
//
// Fixes order and compare by Time alone (see Compare and Equal): two fixes
// taken at the same instant are interchangeable to the alignment code even
// when their positions differ.
type Fix struct {
	Time float64 `json:"time"` // seconds since the Unix epoch, UTC

	Latitude  float64 `json:"latitude"`  // decimal degrees, negative south
	Longitude float64 `json:"longitude"` // decimal degrees, negative west

	PositionErrorMajor     float64 `json:"position_error_major"`
	PositionErrorMinor     float64 `json:"position_error_minor"`
	PositionErrorDirection float64 `json:"position_error_direction"`

	Depth       float64 `json:"depth"` // metres, positive down
	DepthStdDev float64 `json:"depth_stddev"`

	Roll          float64 `json:"roll"`
	Pitch         float64 `json:"pitch"`
	Heading       float64 `json:"heading"`
	HeadingStdDev float64 `json:"heading_stddev"`

	PositionStatus    string `json:"position_status"`
	OrientationStatus string `json:"orientation_status"`
}

// Altitude is the vehicle height relative to the sea surface, the
// negative of Depth.
func (f Fix) Altitude() float64 { return -f.Depth }

// Timestamp converts Time to a time.Time in UTC.
func (f Fix) Timestamp() time.Time {
	sec := int64(f.Time)
	if float64(sec) > f.Time {
		sec--
	}
	// Float seconds near the current epoch only resolve to ~0.25us.
	usec := int64(math.Round((f.Time - float64(sec)) * 1e6))
	return time.Unix(sec, usec*int64(time.Microsecond)).UTC()
}

// Compare orders fixes by Time only.
func Compare(a, b Fix) int {
	switch {
	case a.Time < b.Time:
		return -1
	case a.Time > b.Time:
		return 1
	default:
		return 0
	}
}

// Equal reports whether two fixes share a timestamp. Other fields are
// ignored.
func Equal(a, b Fix) bool { return Compare(a, b) == 0 }

// Day is the UTC calendar day a navigation log is referenced to.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDay returns the Day containing t, taken in UTC.
func NewDay(t time.Time) Day {
	y, m, d := t.UTC().Date()
	return Day{Year: y, Month: m, Day: d}
}

// Epoch returns midnight UTC of the day in seconds since the Unix epoch.
func (d Day) Epoch() float64 {
	return float64(time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Unix())
}

func (d Day) String() string {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format(time.DateOnly)
}

// IsZero reports whether the day is unset.
func (d Day) IsZero() bool { return d == Day{} }

// ParseSentence decodes a single line against day.
//
// The returned error matches ErrFormat when the line has no sentence
// marker and ErrParse when a field is missing or malformed. A time field
// past 86400 seconds rolls into the following day; it is not clamped.
func ParseSentence(line string, day Day) (Fix, error) {
	start := strings.Index(line, Marker)
	if start < 0 {
		return Fix{}, &FormatError{Line: line}
	}
	fields := strings.Split(strings.TrimSpace(line[start:]), ",")
	if len(fields) < minFields {
		return Fix{}, &ParseError{Field: Field(len(fields)), Err: errTooFewFields}
	}

	p := fieldParser{fields: fields}
	var fix Fix
	fix.Time = day.Epoch() + p.float(FieldTime)
	fix.Latitude = p.coordinate(FieldLatitude, FieldLatitudeRef, "S")
	fix.Longitude = p.coordinate(FieldLongitude, FieldLongitudeRef, "W")
	fix.PositionErrorMajor = p.float(FieldPositionErrorMajor)
	fix.PositionErrorMinor = p.float(FieldPositionErrorMinor)
	fix.PositionErrorDirection = p.float(FieldPositionErrorDirection)
	fix.PositionStatus = p.text(FieldPositionStatus)
	fix.Depth = p.float(FieldDepth)
	fix.DepthStdDev = p.float(FieldDepthStdDev)
	fix.Roll = p.float(FieldRoll)
	fix.Pitch = p.float(FieldPitch)
	fix.Heading = p.float(FieldHeading)
	fix.HeadingStdDev = p.float(FieldHeadingStdDev)
	fix.OrientationStatus = p.text(FieldOrientationStatus)
	if p.err != nil {
		return Fix{}, p.err
	}
	return fix, nil
}

// fieldParser keeps the first decode error so ParseSentence can read
// every field without checking after each one.
type fieldParser struct {
	fields []string
	err    error
}

func (p *fieldParser) text(f Field) string {
	return strings.TrimSpace(p.fields[f])
}

func (p *fieldParser) float(f Field) float64 {
	if p.err != nil {
		return 0
	}
	raw := p.text(f)
	if raw == "" {
		p.err = &ParseError{Field: f, Err: errEmptyField}
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.err = &ParseError{Field: f, Value: raw, Err: err}
		return 0
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		p.err = &ParseError{Field: f, Value: raw, Err: errNotFinite}
		return 0
	}
	return v
}

func (p *fieldParser) coordinate(f, ref Field, negativeRef string) float64 {
	if p.err != nil {
		return 0
	}
	raw := p.text(f)
	deg, err := DegreesMinutes(raw)
	if err != nil {
		p.err = &ParseError{Field: f, Value: raw, Err: err}
		return 0
	}
	if p.text(ref) == negativeRef {
		return -deg
	}
	return deg
}

// DegreesMinutes converts a ddmm.mmmm or dddmm.mmmm token to decimal
// degrees. A decimal point at offset 4 means a two digit degree prefix
// (latitude); any other position means three digits (longitude).
func DegreesMinutes(token string) (float64, error) {
	dot := strings.IndexByte(token, '.')
	if dot < 0 {
		return 0, errNoDecimalPoint
	}
	width := 3
	if dot == 4 {
		width = 2
	}
	if len(token) <= width {
		return 0, errShortCoordinate
	}
	deg, err := strconv.ParseFloat(token[:width], 64)
	if err != nil {
		return 0, err
	}
	minutes, err := strconv.ParseFloat(token[width:], 64)
	if err != nil {
		return 0, err
	}
	return deg + minutes/60.0, nil
}
