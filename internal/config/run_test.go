package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/navtag/internal/imagetime"
	"github.com/banshee-data/navtag/internal/psonnav"
	"github.com/banshee-data/navtag/internal/tags"
)

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

func minimalConfig() *RunConfig {
	return &RunConfig{
		InputDir:      ptrString("in"),
		OutputDir:     ptrString("out"),
		NavigationLog: ptrString("psonnav20201122134507.asc"),
	}
}

func TestRunConfigDefaults(t *testing.T) {
	cfg := minimalConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("minimal config should validate: %v", err)
	}

	if cfg.GetImageGlob() != "*.tif" {
		t.Errorf("GetImageGlob() = %q, want *.tif", cfg.GetImageGlob())
	}
	if cfg.GetNavigationDateOffset() != 7 {
		t.Errorf("GetNavigationDateOffset() = %d, want 7", cfg.GetNavigationDateOffset())
	}
	if !cfg.GetSortNavigation() || !cfg.GetSortDepth() {
		t.Error("sorting should default to true")
	}
	if cfg.GetDepthDelimiterRune() != ',' {
		t.Errorf("GetDepthDelimiterRune() = %q, want ','", cfg.GetDepthDelimiterRune())
	}
	if cfg.GetTimeSource() != imagetime.SourceMetadata {
		t.Errorf("GetTimeSource() = %q", cfg.GetTimeSource())
	}
	if cfg.GetHeaderFailure() != FailClosed {
		t.Errorf("GetHeaderFailure() = %q, want %q", cfg.GetHeaderFailure(), FailClosed)
	}
	if cfg.GetWorkers() != 1 {
		t.Errorf("GetWorkers() = %d, want 1", cfg.GetWorkers())
	}
	if cfg.GetMetadataOffsetSeconds() != 0 {
		t.Errorf("GetMetadataOffsetSeconds() = %f, want 0", cfg.GetMetadataOffsetSeconds())
	}
	if !cfg.GetNavigationDay().IsZero() {
		t.Errorf("GetNavigationDay() = %v, want zero", cfg.GetNavigationDay())
	}
	for name, got := range map[string]string{
		"depth_log":    cfg.GetDepthLog(),
		"catalog_path": cfg.GetCatalogPath(),
		"track_plot":   cfg.GetTrackPlot(),
		"depth_chart":  cfg.GetDepthChart(),
	} {
		if got != "" {
			t.Errorf("%s should default to empty, got %q", name, got)
		}
	}

	p, err := cfg.GetCalibration()
	if err != nil {
		t.Fatalf("GetCalibration() error: %v", err)
	}
	if p.Make != tags.DefaultMake {
		t.Errorf("calibration make = %q, want default", p.Make)
	}
}

func TestLoadRunConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "run.json")

	testJSON := `{
  "input_dir": "/survey/in",
  "output_dir": "/survey/out",
  "navigation_log": "/survey/psonnav20201122134507.asc",
  "navigation_date": "2020-11-22",
  "sort_navigation": false,
  "depth_log": "/survey/depth.csv",
  "depth_time_unit": "microseconds",
  "depth_delimiter": ";",
  "time_source": "filename",
  "filename_delimiter": "_raw_",
  "filename_epoch_date": "2020-12-10",
  "header_failure": "fail-open",
  "workers": 4,
  "calibration": {"model": "40-0026", "flash": "fired"}
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadRunConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetSortNavigation() {
		t.Error("Expected sort_navigation false")
	}
	want := psonnav.Day{Year: 2020, Month: time.November, Day: 22}
	if got := cfg.GetNavigationDay(); got != want {
		t.Errorf("GetNavigationDay() = %v, want %v", got, want)
	}
	if cfg.GetDepthDelimiterRune() != ';' {
		t.Errorf("GetDepthDelimiterRune() = %q", cfg.GetDepthDelimiterRune())
	}
	if cfg.GetWorkers() != 4 {
		t.Errorf("GetWorkers() = %d, want 4", cfg.GetWorkers())
	}
	if cfg.GetHeaderFailure() != FailOpen {
		t.Errorf("GetHeaderFailure() = %q", cfg.GetHeaderFailure())
	}

	opts := cfg.ImageTimeOptions()
	if opts.Source != imagetime.SourceFilename || opts.Delimiter != "_raw_" {
		t.Errorf("unexpected image time options %+v", opts)
	}
	if opts.Day != (psonnav.Day{Year: 2020, Month: time.December, Day: 10}) {
		t.Errorf("filename epoch day = %v", opts.Day)
	}

	p, err := cfg.GetCalibration()
	if err != nil {
		t.Fatal(err)
	}
	if p.Model != "40-0026" || p.Flash != tags.FlashFired || p.IndexOfRefraction != tags.DefaultIndex {
		t.Errorf("unexpected calibration %+v", p)
	}
}

func TestLoadRunConfig_FileChecks(t *testing.T) {
	tmpDir := t.TempDir()

	if _, err := LoadRunConfig(filepath.Join(tmpDir, "run.yaml")); err == nil || !strings.Contains(err.Error(), ".json") {
		t.Errorf("expected extension error, got %v", err)
	}
	if _, err := LoadRunConfig(filepath.Join(tmpDir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	big := filepath.Join(tmpDir, "big.json")
	if err := os.WriteFile(big, []byte(`{"input_dir":"`+strings.Repeat("x", 1024*1024)+`"}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRunConfig(big); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}

	bad := filepath.Join(tmpDir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"workers": "many"}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRunConfig(bad); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RunConfig)
		wantErr string
	}{
		{"missing input", func(c *RunConfig) { c.InputDir = nil }, "input_dir"},
		{"missing navigation", func(c *RunConfig) { c.NavigationLog = nil }, "navigation_log"},
		{"missing output", func(c *RunConfig) { c.OutputDir = ptrString("") }, "output_dir"},
		{"same dirs", func(c *RunConfig) { c.OutputDir = ptrString("in/") }, "must differ"},
		{"bad glob", func(c *RunConfig) { c.ImageGlob = ptrString("[") }, "image_glob"},
		{"bad nav date", func(c *RunConfig) { c.NavigationDate = ptrString("22/11/2020") }, "navigation_date"},
		{"negative offset", func(c *RunConfig) { c.NavigationDateOffset = ptrInt(-1) }, "navigation_date_offset"},
		{"depth without unit", func(c *RunConfig) { c.DepthLog = ptrString("depth.csv") }, "depth_time_unit"},
		{"depth bad unit", func(c *RunConfig) {
			c.DepthLog = ptrString("depth.csv")
			c.DepthTimeUnit = ptrString("ms")
		}, "depth_time_unit"},
		{"long delimiter", func(c *RunConfig) { c.DepthDelimiter = ptrString(";;") }, "depth_delimiter"},
		{"quote delimiter", func(c *RunConfig) { c.DepthDelimiter = ptrString(`"`) }, "depth_delimiter"},
		{"unknown source", func(c *RunConfig) { c.TimeSource = ptrString("exif") }, "time_source"},
		{"filename without delimiter", func(c *RunConfig) {
			c.TimeSource = ptrString("filename")
			c.FilenameEpochDate = ptrString("2020-11-22")
		}, "filename_delimiter"},
		{"auto without date", func(c *RunConfig) {
			c.TimeSource = ptrString("auto")
			c.FilenameDelimiter = ptrString("_")
		}, "filename_epoch_date"},
		{"bad policy", func(c *RunConfig) { c.HeaderFailure = ptrString("retry") }, "header_failure"},
		{"zero workers", func(c *RunConfig) { c.Workers = ptrInt(0) }, "workers"},
		{"bad calibration", func(c *RunConfig) { c.Calibration = json.RawMessage(`{"camera_matrix": [1]}`) }, "calibration"},
		{"calibration wrong type", func(c *RunConfig) { c.Calibration = json.RawMessage(`{"make": 3}`) }, "calibration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := minimalConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_MetadataOffset(t *testing.T) {
	cfg := minimalConfig()
	cfg.MetadataOffsetSeconds = ptrFloat64(1607564420)
	cfg.SortDepth = ptrBool(false)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GetMetadataOffsetSeconds() != 1607564420 || cfg.GetSortDepth() {
		t.Error("explicit values not returned")
	}
}

func TestValidate_ZeroDateOffset(t *testing.T) {
	cfg := minimalConfig()
	cfg.NavigationLog = ptrString("20201122_nav.asc")
	cfg.NavigationDateOffset = ptrInt(0)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.GetNavigationDateOffset(); got != 0 {
		t.Errorf("GetNavigationDateOffset() = %d, want 0", got)
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if cfg.GetImageGlob() != "*_raw_*.tif" {
		t.Errorf("example image_glob = %q", cfg.GetImageGlob())
	}
	p, err := cfg.GetCalibration()
	if err != nil {
		t.Fatal(err)
	}
	if len(p.PixelSize) != 2 || p.PixelSize[0] != 6500 {
		t.Errorf("example pixel_size = %v", p.PixelSize)
	}
}
