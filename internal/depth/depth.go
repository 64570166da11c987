// Package depth loads the depth/ranging sensor log: a delimited numeric
// table whose first column is time and whose remaining columns are the
// range and DVL beam channels.
package depth

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/banshee-data/navtag/internal/fsutil"
	"github.com/banshee-data/navtag/internal/monitoring"
	"github.com/banshee-data/navtag/internal/units"
)

// Sample is one row of the depth log.
type Sample struct {
	// Time in seconds since the Unix epoch.
	Time float64 `json:"time"`
	// Channels holds every column after the time column, in file order.
	Channels []float64 `json:"channels"`
}

// Distance is the absolute value of the first channel, the range to the
// seabed. ok is false for rows without channels.
func (s Sample) Distance() (d float64, ok bool) {
	if len(s.Channels) == 0 {
		return 0, false
	}
	return math.Abs(s.Channels[0]), true
}

// DVL returns the beam channels that follow the range channel.
func (s Sample) DVL() []float64 {
	if len(s.Channels) < 2 {
		return nil
	}
	return s.Channels[1:]
}

// SampleTime returns s.Time; it is the key function for timeseries.New.
func SampleTime(s Sample) float64 { return s.Time }

// Options controls how a depth log is decoded.
type Options struct {
	// Delimiter separates columns. Zero means ','.
	Delimiter rune
	// TimeUnit is units.Seconds or units.Microseconds. It has no default:
	// deployments disagree, so the caller must say which one applies.
	TimeUnit string
}

// LoadStats counts rows by outcome.
type LoadStats struct {
	Total    int
	Accepted int
	// Rows whose column count differs from the first accepted row.
	Ragged int
	// Rows with an empty or non-numeric value.
	Malformed int
}

// Rejected is the number of rows that did not produce a sample.
func (s LoadStats) Rejected() int { return s.Ragged + s.Malformed }

// LoadFile reads a depth log from fsys.
func LoadFile(fsys fsutil.FileSystem, path string, opts Options) ([]Sample, LoadStats, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("open depth log: %w", err)
	}
	defer f.Close()

	samples, stats, err := Load(f, opts)
	if err != nil {
		return nil, stats, fmt.Errorf("read depth log %s: %w", path, err)
	}
	monitoring.Logf("depth log %s: accepted %d of %d rows (%d ragged, %d malformed)",
		filepath.Base(path), stats.Accepted, stats.Total, stats.Ragged, stats.Malformed)
	return samples, stats, nil
}

// Load decodes a depth table. Lines starting with '#' are comments. The
// column count is fixed by the first accepted row and rows that differ are
// skipped, as are rows with non-numeric cells (a text header row included).
// Samples are returned in file order.
func Load(r io.Reader, opts Options) ([]Sample, LoadStats, error) {
	var stats LoadStats
	if !units.IsValidTimeUnit(opts.TimeUnit) {
		return nil, stats, fmt.Errorf("depth time unit %q: must be one of %s", opts.TimeUnit, units.GetValidTimeUnitsString())
	}

	cr := csv.NewReader(r)
	cr.Comma = ','
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		samples []Sample
		columns int
	)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return samples, stats, nil
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			stats.Total++
			stats.Malformed++
			continue
		}
		if err != nil {
			return samples, stats, err
		}
		stats.Total++

		if columns != 0 && len(record) != columns {
			stats.Ragged++
			continue
		}
		sample, ok := parseRow(record, opts.TimeUnit)
		if !ok {
			stats.Malformed++
			continue
		}
		columns = len(record)
		stats.Accepted++
		samples = append(samples, sample)
	}
}

func parseRow(record []string, unit string) (Sample, bool) {
	values := make([]float64, len(record))
	for i, cell := range record {
		v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Sample{}, false
		}
		values[i] = v
	}
	return Sample{Time: units.ToSeconds(values[0], unit), Channels: values[1:]}, true
}

// SortByTime orders samples by time, keeping file order for equal times.
func SortByTime(samples []Sample) {
	slices.SortStableFunc(samples, func(a, b Sample) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		}
		return 0
	})
}

// IsSorted reports whether samples are in non-decreasing time order.
func IsSorted(samples []Sample) bool {
	for i := 1; i < len(samples); i++ {
		if samples[i].Time < samples[i-1].Time {
			return false
		}
	}
	return true
}
