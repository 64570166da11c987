// Package imagetime derives the capture time of an image, in seconds since
// the Unix epoch, either from its existing header or from its file name.
package imagetime

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/navtag/internal/psonnav"
	"github.com/banshee-data/navtag/internal/tagstore"
	"github.com/banshee-data/navtag/internal/units"
)

// ErrNoTimestamp means a strategy found nothing to derive a time from.
var ErrNoTimestamp = errors.New("no capture timestamp")

// Source names accepted by New.
const (
	SourceMetadata = "metadata"
	SourceFilename = "filename"
	// SourceAuto tries the header first and falls back to the file name.
	SourceAuto = "auto"
)

// Resolver produces the capture time for one image.
type Resolver interface {
	Resolve(path string, hdr tagstore.Header) (float64, error)
}

// MetadataResolver reads the hardware PPS timestamp from the header.
type MetadataResolver struct {
	// Offset is added to the header time, for cameras whose clock ran
	// against a different epoch.
	Offset float64
}

func (r MetadataResolver) Resolve(path string, hdr tagstore.Header) (float64, error) {
	if !hdr.HasPPSTime {
		return 0, fmt.Errorf("%s: header has no pps_time_us: %w", filepath.Base(path), ErrNoTimestamp)
	}
	return units.MicrosToSeconds(hdr.PPSTimeMicros) + r.Offset, nil
}

// FilenameResolver reads an HHMMSS(.fraction) token that follows Delimiter
// in the file's base name and adds it to the start of Day.
type FilenameResolver struct {
	Delimiter string
	Day       psonnav.Day
}

func (r FilenameResolver) Resolve(path string, _ tagstore.Header) (float64, error) {
	name := filepath.Base(path)
	i := strings.LastIndex(name, r.Delimiter)
	if r.Delimiter == "" || i < 0 {
		return 0, fmt.Errorf("%s: no %q in file name: %w", name, r.Delimiter, ErrNoTimestamp)
	}
	token := timeToken(name[i+len(r.Delimiter):])
	if token == "" {
		return 0, fmt.Errorf("%s: no HHMMSS after %q: %w", name, r.Delimiter, ErrNoTimestamp)
	}
	seconds, err := SecondsOfDay(token)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return r.Day.Epoch() + seconds, nil
}

// timeToken returns six leading digits plus an optional fraction, or "".
func timeToken(s string) string {
	n := 0
	for n < len(s) && n < 6 && isDigit(s[n]) {
		n++
	}
	if n != 6 {
		return ""
	}
	if n < len(s) && isDigit(s[n]) {
		// more than six integer digits
		return ""
	}
	if n+1 < len(s) && s[n] == '.' && isDigit(s[n+1]) {
		n++
		for n < len(s) && isDigit(s[n]) {
			n++
		}
	}
	return s[:n]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// SecondsOfDay converts an HHMMSS(.fraction) token to seconds since
// midnight. The integer part is split by division: hour = v/10000,
// minute = (v - hour*10000)/100, second = the remainder.
func SecondsOfDay(token string) (float64, error) {
	intPart, frac, _ := strings.Cut(token, ".")
	v, err := strconv.ParseUint(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("time token %q: %w", token, err)
	}
	fraction := 0.0
	if frac != "" {
		if fraction, err = strconv.ParseFloat("0."+frac, 64); err != nil {
			return 0, fmt.Errorf("time token %q: %w", token, err)
		}
	}
	hour := v / 10000
	minute := (v - hour*10000) / 100
	second := v - hour*10000 - minute*100
	if minute >= 60 || second >= 60 {
		return 0, fmt.Errorf("time token %q: minute %d second %d out of range", token, minute, second)
	}
	return float64(hour*3600+minute*60+second) + fraction, nil
}

// Chain tries each resolver in turn and returns the first time found. Only
// ErrNoTimestamp moves on to the next resolver.
type Chain []Resolver

func (c Chain) Resolve(path string, hdr tagstore.Header) (float64, error) {
	err := fmt.Errorf("%s: %w", filepath.Base(path), ErrNoTimestamp)
	for _, r := range c {
		var t float64
		t, err = r.Resolve(path, hdr)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, ErrNoTimestamp) {
			return 0, err
		}
	}
	return 0, err
}

// Options selects and parameterises a resolver.
type Options struct {
	Source         string
	MetadataOffset float64
	Delimiter      string
	Day            psonnav.Day
}

// New builds the resolver for opts.Source. An empty source means metadata.
func New(opts Options) (Resolver, error) {
	if math.IsNaN(opts.MetadataOffset) || math.IsInf(opts.MetadataOffset, 0) {
		return nil, fmt.Errorf("metadata offset %v is not finite", opts.MetadataOffset)
	}
	meta := MetadataResolver{Offset: opts.MetadataOffset}
	fileName := func() (FilenameResolver, error) {
		if opts.Delimiter == "" {
			return FilenameResolver{}, errors.New("filename time source needs a delimiter")
		}
		if opts.Day.IsZero() {
			return FilenameResolver{}, errors.New("filename time source needs an epoch date")
		}
		return FilenameResolver{Delimiter: opts.Delimiter, Day: opts.Day}, nil
	}

	switch opts.Source {
	case "", SourceMetadata:
		return meta, nil
	case SourceFilename:
		return fileName()
	case SourceAuto:
		fr, err := fileName()
		if err != nil {
			return nil, err
		}
		return Chain{meta, fr}, nil
	default:
		return nil, fmt.Errorf("unknown time source %q (want %s, %s or %s)", opts.Source, SourceMetadata, SourceFilename, SourceAuto)
	}
}
