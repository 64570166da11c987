package psonnav

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"time"

	"github.com/banshee-data/navtag/internal/fsutil"
	"github.com/banshee-data/navtag/internal/monitoring"
)

// DefaultDateOffset is where the YYYYMMDD stamp starts in a log file name
// written by the navigation computer, e.g. psonnav20201122134507.asc.
const DefaultDateOffset = 7

// maxLineBytes bounds a single log line; longer lines are counted as
// rejected rather than aborting the load.
const maxLineBytes = 64 * 1024

// LoadStats counts what the loader did with each line of a log.
type LoadStats struct {
	Total    int // non-empty lines read
	Accepted int
	// Lines without the sentence marker.
	NotSentence int
	// Sentences with missing or undecodable fields.
	Malformed int
}

// Rejected is the number of lines that did not produce a fix.
func (s LoadStats) Rejected() int { return s.NotSentence + s.Malformed }

// LoadOptions configures LoadFile.
type LoadOptions struct {
	// Day the sentence times are relative to. When zero it is read from the
	// file name at DateOffset.
	Day Day
	// DateOffset is the position of the YYYYMMDD stamp in the base file
	// name. It is used as given; pass DefaultDateOffset for psonnav names.
	DateOffset int
}

// DayFromFilename reads an eight character YYYYMMDD stamp from the base
// name of path starting at offset.
func DayFromFilename(path string, offset int) (Day, error) {
	name := filepath.Base(path)
	if offset < 0 || len(name) < offset+8 {
		return Day{}, fmt.Errorf("file name %q has no date at offset %d", name, offset)
	}
	t, err := time.Parse("20060102", name[offset:offset+8])
	if err != nil {
		return Day{}, fmt.Errorf("file name %q: %w", name, err)
	}
	return NewDay(t), nil
}

// LoadFile reads a navigation log from fsys.
func LoadFile(fsys fsutil.FileSystem, path string, opts LoadOptions) ([]Fix, LoadStats, error) {
	day := opts.Day
	if day.IsZero() {
		var err error
		if day, err = DayFromFilename(path, opts.DateOffset); err != nil {
			return nil, LoadStats{}, err
		}
	}

	f, err := fsys.Open(path)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("open navigation log: %w", err)
	}
	defer f.Close()

	fixes, stats, err := Load(f, day)
	if err != nil {
		return nil, stats, fmt.Errorf("read navigation log %s: %w", path, err)
	}
	monitoring.Logf("navigation log %s (%s): accepted %d of %d lines (%d not sentences, %d malformed)",
		filepath.Base(path), day, stats.Accepted, stats.Total, stats.NotSentence, stats.Malformed)
	return fixes, stats, nil
}

// Load decodes every line of r against day. Lines that are not sentences
// or fail to parse are skipped and counted in the returned stats; only
// read errors are returned. Fixes come back in file order.
func Load(r io.Reader, day Day) ([]Fix, LoadStats, error) {
	var (
		fixes []Fix
		stats LoadStats
	)
	br := bufio.NewReaderSize(r, 4096)
	for {
		line, err := readLine(br)
		if len(line) > 0 {
			stats.Total++
			fix, perr := ParseSentence(line, day)
			switch {
			case perr == nil:
				stats.Accepted++
				fixes = append(fixes, fix)
			case errors.Is(perr, ErrFormat):
				stats.NotSentence++
			default:
				stats.Malformed++
			}
		}
		if err == io.EOF {
			return fixes, stats, nil
		}
		if err != nil {
			return fixes, stats, err
		}
	}
}

// readLine returns the next line without its terminator. Over-long lines
// are truncated to maxLineBytes and the remainder discarded.
func readLine(br *bufio.Reader) (string, error) {
	var buf []byte
	for {
		chunk, isPrefix, err := br.ReadLine()
		if len(buf) < maxLineBytes {
			buf = append(buf, chunk...)
		}
		if err != nil || !isPrefix {
			if err == nil && len(buf) == 0 {
				// Blank line; keep reading so the caller sees content.
				continue
			}
			return string(buf), err
		}
	}
}

// SortByTime orders fixes by time, keeping file order for equal times.
func SortByTime(fixes []Fix) {
	slices.SortStableFunc(fixes, Compare)
}

// IsSorted reports whether fixes are in non-decreasing time order.
func IsSorted(fixes []Fix) bool {
	return slices.IsSortedFunc(fixes, Compare)
}
