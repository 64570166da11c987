package psonnav

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat is matched by errors returned for lines that do not carry
	// the sentence marker.
	ErrFormat = errors.New("psonnav: not a navigation sentence")
	// ErrParse is matched by errors returned for sentences whose fields
	// are missing or cannot be decoded.
	ErrParse = errors.New("psonnav: malformed sentence")

	errTooFewFields    = errors.New("too few fields")
	errEmptyField      = errors.New("empty field")
	errNoDecimalPoint  = errors.New("no decimal point")
	errShortCoordinate = errors.New("coordinate too short")
	errNotFinite       = errors.New("not a finite number")
)

// FormatError reports a line that lacks the sentence marker.
type FormatError struct {
	Line string
}

func (e *FormatError) Error() string {
	const max = 40
	line := e.Line
	if len(line) > max {
		line = line[:max] + "..."
	}
	return fmt.Sprintf("psonnav: missing %s marker in %q", Marker, line)
}

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// ParseError reports a sentence field that is absent or not decodable.
type ParseError struct {
	Field Field
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("psonnav: field %s (%d): bad value %q", e.Field, int(e.Field), e.Value)
	}
	return fmt.Sprintf("psonnav: field %s (%d): bad value %q: %v", e.Field, int(e.Field), e.Value, e.Err)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

func (e *ParseError) Unwrap() error { return e.Err }
