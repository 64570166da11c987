package tags

import (
	"fmt"
	"strings"
)

// LatitudeRef is the hemisphere of an absolute latitude.
type LatitudeRef int

const (
	North LatitudeRef = iota
	South
)

// LongitudeRef is the hemisphere of an absolute longitude.
type LongitudeRef int

const (
	East LongitudeRef = iota
	West
)

// AltitudeRef says whether an absolute altitude is above or below the sea
// level reference.
type AltitudeRef int

const (
	AboveSeaLevel AltitudeRef = iota
	BelowSeaLevel
)

// ViewportType is the shape of the housing port in front of the lens.
type ViewportType int

const (
	ViewportFlat ViewportType = iota
	ViewportDomed
)

// BayerPattern is the sensor colour filter layout.
type BayerPattern int

const (
	BayerGrayscale BayerPattern = iota
	BayerBG2BGR
	BayerGB2BGR
	BayerRG2BGR
	BayerGR2BGR
)

// Flash values follow the EXIF Flash tag.
type Flash int

const (
	FlashNone       Flash = 0
	FlashFired      Flash = 1
	FlashDidNotFire Flash = 8
)

// LightSource values follow the EXIF LightSource tag plus two vendor codes.
type LightSource int

const (
	LightUnknown  LightSource = 0
	LightDaylight LightSource = 1
	LightWhiteLED LightSource = 200
	LightBlueLED  LightSource = 201
)

var (
	latitudeRefNames  = map[LatitudeRef]string{North: "N", South: "S"}
	longitudeRefNames = map[LongitudeRef]string{East: "E", West: "W"}
	altitudeRefNames  = map[AltitudeRef]string{AboveSeaLevel: "above_sea_level", BelowSeaLevel: "below_sea_level"}
	viewportNames     = map[ViewportType]string{ViewportFlat: "flat", ViewportDomed: "domed"}
	bayerNames        = map[BayerPattern]string{
		BayerGrayscale: "grayscale",
		BayerBG2BGR:    "bg2bgr",
		BayerGB2BGR:    "gb2bgr",
		BayerRG2BGR:    "rg2bgr",
		BayerGR2BGR:    "gr2bgr",
	}
	flashNames = map[Flash]string{FlashNone: "no_flash", FlashFired: "fired", FlashDidNotFire: "did_not_fire"}
	lightNames = map[LightSource]string{
		LightUnknown:  "unknown",
		LightDaylight: "daylight",
		LightWhiteLED: "white_led",
		LightBlueLED:  "blue_led",
	}
)

func enumString[T ~int](names map[T]string, v T, kind string) string {
	if s, ok := names[v]; ok {
		return s
	}
	return fmt.Sprintf("%s(%d)", kind, int(v))
}

func enumParse[T ~int](names map[T]string, text []byte, kind string) (T, error) {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	for v, name := range names {
		if strings.ToLower(name) == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", kind, text)
}

func enumText[T ~int](names map[T]string, v T, kind string) ([]byte, error) {
	s, ok := names[v]
	if !ok {
		return nil, fmt.Errorf("invalid %s %d", kind, int(v))
	}
	return []byte(s), nil
}

func (r LatitudeRef) String() string { return enumString(latitudeRefNames, r, "LatitudeRef") }
func (r LatitudeRef) MarshalText() ([]byte, error) {
	return enumText(latitudeRefNames, r, "latitude ref")
}
func (r *LatitudeRef) UnmarshalText(b []byte) (err error) {
	*r, err = enumParse(latitudeRefNames, b, "latitude ref")
	return err
}

func (r LongitudeRef) String() string { return enumString(longitudeRefNames, r, "LongitudeRef") }
func (r LongitudeRef) MarshalText() ([]byte, error) {
	return enumText(longitudeRefNames, r, "longitude ref")
}
func (r *LongitudeRef) UnmarshalText(b []byte) (err error) {
	*r, err = enumParse(longitudeRefNames, b, "longitude ref")
	return err
}

func (r AltitudeRef) String() string { return enumString(altitudeRefNames, r, "AltitudeRef") }
func (r AltitudeRef) MarshalText() ([]byte, error) {
	return enumText(altitudeRefNames, r, "altitude ref")
}
func (r *AltitudeRef) UnmarshalText(b []byte) (err error) {
	*r, err = enumParse(altitudeRefNames, b, "altitude ref")
	return err
}

func (v ViewportType) String() string { return enumString(viewportNames, v, "ViewportType") }
func (v ViewportType) MarshalText() ([]byte, error) {
	return enumText(viewportNames, v, "viewport type")
}
func (v *ViewportType) UnmarshalText(b []byte) (err error) {
	*v, err = enumParse(viewportNames, b, "viewport type")
	return err
}

func (p BayerPattern) String() string { return enumString(bayerNames, p, "BayerPattern") }
func (p BayerPattern) MarshalText() ([]byte, error) {
	return enumText(bayerNames, p, "bayer pattern")
}
func (p *BayerPattern) UnmarshalText(b []byte) (err error) {
	*p, err = enumParse(bayerNames, b, "bayer pattern")
	return err
}

func (f Flash) String() string               { return enumString(flashNames, f, "Flash") }
func (f Flash) MarshalText() ([]byte, error) { return enumText(flashNames, f, "flash") }
func (f *Flash) UnmarshalText(b []byte) (err error) {
	*f, err = enumParse(flashNames, b, "flash")
	return err
}

func (l LightSource) String() string { return enumString(lightNames, l, "LightSource") }
func (l LightSource) MarshalText() ([]byte, error) {
	return enumText(lightNames, l, "light source")
}
func (l *LightSource) UnmarshalText(b []byte) (err error) {
	*l, err = enumParse(lightNames, b, "light source")
	return err
}

// latitudeRefOf maps a signed latitude to its hemisphere. Zero is North.
func latitudeRefOf(lat float64) LatitudeRef {
	if lat < 0 {
		return South
	}
	return North
}

// longitudeRefOf maps a signed longitude to its hemisphere. Zero is East.
func longitudeRefOf(lon float64) LongitudeRef {
	if lon < 0 {
		return West
	}
	return East
}

// altitudeRefOf maps a signed altitude to its reference. Zero is above.
func altitudeRefOf(alt float64) AltitudeRef {
	if alt < 0 {
		return BelowSeaLevel
	}
	return AboveSeaLevel
}
