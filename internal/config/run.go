package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/banshee-data/navtag/internal/imagetime"
	"github.com/banshee-data/navtag/internal/psonnav"
	"github.com/banshee-data/navtag/internal/tags"
	"github.com/banshee-data/navtag/internal/units"
)

// DefaultConfigPath is the example run file shipped with the repository.
const DefaultConfigPath = "config/navtag.example.json"

// Header failure policies.
const (
	FailClosed = "fail-closed"
	FailOpen   = "fail-open"
)

const dateLayout = time.DateOnly

// RunConfig describes one tagging run. Every field is optional in the JSON;
// the Get* methods supply defaults.
type RunConfig struct {
	// Image discovery
	InputDir  *string `json:"input_dir,omitempty"`
	OutputDir *string `json:"output_dir,omitempty"`
	ImageGlob *string `json:"image_glob,omitempty"`

	// Navigation log
	NavigationLog        *string `json:"navigation_log,omitempty"`
	NavigationDate       *string `json:"navigation_date,omitempty"` // YYYY-MM-DD; read from the file name when empty
	NavigationDateOffset *int    `json:"navigation_date_offset,omitempty"`
	SortNavigation       *bool   `json:"sort_navigation,omitempty"`

	// Depth log
	DepthLog       *string `json:"depth_log,omitempty"`
	DepthTimeUnit  *string `json:"depth_time_unit,omitempty"` // seconds or microseconds
	DepthDelimiter *string `json:"depth_delimiter,omitempty"`
	SortDepth      *bool   `json:"sort_depth,omitempty"`

	// Image time
	TimeSource            *string  `json:"time_source,omitempty"` // metadata, filename or auto
	FilenameDelimiter     *string  `json:"filename_delimiter,omitempty"`
	FilenameEpochDate     *string  `json:"filename_epoch_date,omitempty"`
	MetadataOffsetSeconds *float64 `json:"metadata_offset_seconds,omitempty"`

	// Processing
	HeaderFailure *string `json:"header_failure,omitempty"`
	Workers       *int    `json:"workers,omitempty"`

	// Outputs besides the tagged images
	CatalogPath *string `json:"catalog_path,omitempty"`
	TrackPlot   *string `json:"track_plot,omitempty"`
	DepthChart  *string `json:"depth_chart,omitempty"`

	// Calibration overlays tags.DefaultProfile.
	Calibration json.RawMessage `json:"calibration,omitempty"`
}

// LoadRunConfig loads a RunConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadRunConfig(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseRunConfig(data)
}

// ParseRunConfig decodes and validates a run file's contents.
func ParseRunConfig(data []byte) (*RunConfig, error) {
	cfg := &RunConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching upwards from the
// current directory. Panics if the file cannot be loaded; intended for
// tests.
func MustLoadDefaultConfig() *RunConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/<tool>/ and deeper
	}
	for _, path := range candidates {
		if cfg, err := LoadRunConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are usable together.
func (c *RunConfig) Validate() error {
	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if c.GetInputDir() == "" {
		add("input_dir is required")
	}
	if c.GetOutputDir() == "" {
		add("output_dir is required")
	}
	if in, out := c.GetInputDir(), c.GetOutputDir(); in != "" && filepath.Clean(in) == filepath.Clean(out) {
		add("output_dir must differ from input_dir")
	}
	if _, err := filepath.Match(c.GetImageGlob(), ""); err != nil {
		add("invalid image_glob %q: %w", c.GetImageGlob(), err)
	}

	if c.GetNavigationLog() == "" {
		add("navigation_log is required")
	}
	if c.NavigationDate != nil && *c.NavigationDate != "" {
		if _, err := time.Parse(dateLayout, *c.NavigationDate); err != nil {
			add("invalid navigation_date %q: %w", *c.NavigationDate, err)
		}
	}
	if c.GetNavigationDateOffset() < 0 {
		add("navigation_date_offset must be non-negative, got %d", c.GetNavigationDateOffset())
	}

	if c.GetDepthLog() != "" {
		if !units.IsValidTimeUnit(c.GetDepthTimeUnit()) {
			add("depth_time_unit must be one of %s when depth_log is set, got %q",
				units.GetValidTimeUnitsString(), c.GetDepthTimeUnit())
		}
	}
	if d := c.GetDepthDelimiter(); utf8.RuneCountInString(d) != 1 || d == "\"" || d == "\n" || d == "\r" {
		add("depth_delimiter must be a single character other than a quote or newline, got %q", d)
	}

	switch c.GetTimeSource() {
	case imagetime.SourceMetadata:
	case imagetime.SourceFilename, imagetime.SourceAuto:
		if c.GetFilenameDelimiter() == "" {
			add("filename_delimiter is required for time_source %q", c.GetTimeSource())
		}
		if c.FilenameEpochDate == nil || *c.FilenameEpochDate == "" {
			add("filename_epoch_date is required for time_source %q", c.GetTimeSource())
		} else if _, err := time.Parse(dateLayout, *c.FilenameEpochDate); err != nil {
			add("invalid filename_epoch_date %q: %w", *c.FilenameEpochDate, err)
		}
	default:
		add("time_source must be %s, %s or %s, got %q",
			imagetime.SourceMetadata, imagetime.SourceFilename, imagetime.SourceAuto, c.GetTimeSource())
	}
	if off := c.GetMetadataOffsetSeconds(); math.IsNaN(off) || math.IsInf(off, 0) {
		add("metadata_offset_seconds must be finite")
	}

	if hf := c.GetHeaderFailure(); hf != FailClosed && hf != FailOpen {
		add("header_failure must be %s or %s, got %q", FailClosed, FailOpen, hf)
	}
	if c.GetWorkers() < 1 {
		add("workers must be at least 1, got %d", c.GetWorkers())
	}

	if _, err := c.GetCalibration(); err != nil {
		add("calibration: %w", err)
	}
	return errors.Join(errs...)
}

func stringOr(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}

// GetInputDir returns the directory searched for images.
func (c *RunConfig) GetInputDir() string { return stringOr(c.InputDir, "") }

// GetOutputDir returns the directory tagged copies are written to.
func (c *RunConfig) GetOutputDir() string { return stringOr(c.OutputDir, "") }

// GetImageGlob returns the image base-name pattern or the default.
func (c *RunConfig) GetImageGlob() string { return stringOr(c.ImageGlob, "*.tif") }

// GetNavigationLog returns the navigation log path.
func (c *RunConfig) GetNavigationLog() string { return stringOr(c.NavigationLog, "") }

// GetNavigationDay returns the configured log day, or the zero Day when it
// should be read from the log's file name.
func (c *RunConfig) GetNavigationDay() psonnav.Day {
	return parseDay(c.NavigationDate)
}

// GetNavigationDateOffset returns the navigation_date_offset value or the default.
func (c *RunConfig) GetNavigationDateOffset() int {
	if c.NavigationDateOffset == nil {
		return psonnav.DefaultDateOffset
	}
	return *c.NavigationDateOffset
}

// GetSortNavigation returns the sort_navigation value or the default.
func (c *RunConfig) GetSortNavigation() bool {
	if c.SortNavigation == nil {
		return true
	}
	return *c.SortNavigation
}

// GetDepthLog returns the depth log path, empty when unused.
func (c *RunConfig) GetDepthLog() string { return stringOr(c.DepthLog, "") }

// GetDepthTimeUnit returns the declared unit of the depth time column. There
// is no default.
func (c *RunConfig) GetDepthTimeUnit() string { return stringOr(c.DepthTimeUnit, "") }

// GetDepthDelimiter returns the depth_delimiter value or the default.
func (c *RunConfig) GetDepthDelimiter() string { return stringOr(c.DepthDelimiter, ",") }

// GetDepthDelimiterRune returns the delimiter as a rune for encoding/csv.
func (c *RunConfig) GetDepthDelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.GetDepthDelimiter())
	return r
}

// GetSortDepth returns the sort_depth value or the default.
func (c *RunConfig) GetSortDepth() bool {
	if c.SortDepth == nil {
		return true
	}
	return *c.SortDepth
}

// GetTimeSource returns the time_source value or the default.
func (c *RunConfig) GetTimeSource() string { return stringOr(c.TimeSource, imagetime.SourceMetadata) }

// GetFilenameDelimiter returns the filename_delimiter value.
func (c *RunConfig) GetFilenameDelimiter() string { return stringOr(c.FilenameDelimiter, "") }

// GetFilenameEpochDay returns the day file-name times are relative to.
func (c *RunConfig) GetFilenameEpochDay() psonnav.Day { return parseDay(c.FilenameEpochDate) }

// GetMetadataOffsetSeconds returns the metadata_offset_seconds value or the default.
func (c *RunConfig) GetMetadataOffsetSeconds() float64 {
	if c.MetadataOffsetSeconds == nil {
		return 0
	}
	return *c.MetadataOffsetSeconds
}

// GetHeaderFailure returns the header_failure policy or the default.
func (c *RunConfig) GetHeaderFailure() string { return stringOr(c.HeaderFailure, FailClosed) }

// GetWorkers returns the workers value or the default.
func (c *RunConfig) GetWorkers() int {
	if c.Workers == nil {
		return 1
	}
	return *c.Workers
}

// GetCatalogPath returns the sqlite catalog path, empty when disabled.
func (c *RunConfig) GetCatalogPath() string { return stringOr(c.CatalogPath, "") }

// GetTrackPlot returns the track PNG path, empty when disabled.
func (c *RunConfig) GetTrackPlot() string { return stringOr(c.TrackPlot, "") }

// GetDepthChart returns the depth chart HTML path, empty when disabled.
func (c *RunConfig) GetDepthChart() string { return stringOr(c.DepthChart, "") }

// GetCalibration returns the calibration profile: the defaults overlaid
// with whatever the run file sets.
func (c *RunConfig) GetCalibration() (tags.CalibrationProfile, error) {
	p := tags.DefaultProfile()
	if len(c.Calibration) > 0 {
		if err := json.Unmarshal(c.Calibration, &p); err != nil {
			return tags.CalibrationProfile{}, err
		}
	}
	if err := p.Validate(); err != nil {
		return tags.CalibrationProfile{}, err
	}
	return p, nil
}

// ImageTimeOptions collects the resolver settings.
func (c *RunConfig) ImageTimeOptions() imagetime.Options {
	return imagetime.Options{
		Source:         c.GetTimeSource(),
		MetadataOffset: c.GetMetadataOffsetSeconds(),
		Delimiter:      c.GetFilenameDelimiter(),
		Day:            c.GetFilenameEpochDay(),
	}
}

func parseDay(p *string) psonnav.Day {
	if p == nil || *p == "" {
		return psonnav.Day{}
	}
	t, err := time.Parse(dateLayout, *p)
	if err != nil {
		return psonnav.Day{}
	}
	return psonnav.NewDay(t)
}
