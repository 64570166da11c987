// Package testutil provides shared test utilities and survey fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/banshee-data/navtag/internal/fsutil"
	"github.com/banshee-data/navtag/internal/tagstore"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// NavSentence formats a navigation sentence at offset seconds into the log
// day. lat and lon are signed decimal degrees, depth is metres below the
// surface. Error estimates and attitude are fixed.
func NavSentence(offset, lat, lon, depth float64) string {
	latRef, lonRef := "N", "E"
	if lat < 0 {
		latRef = "S"
	}
	if lon < 0 {
		lonRef = "W"
	}
	fields := []string{
		"$PSONNAV",
		strconv.FormatFloat(offset, 'f', 3, 64),
		degreesMinutes(math.Abs(lat), 2), latRef,
		degreesMinutes(math.Abs(lon), 3), lonRef,
		"0.889", "0.729", "209.57", "A",
		strconv.FormatFloat(depth, 'f', -1, 64), "0.049",
		"-0.437", "-0.442", "187.912", "0.066", "A",
		"IDV", "", "", "", "", "*22",
	}
	return strings.Join(fields, ",")
}

func degreesMinutes(deg float64, width int) string {
	whole := math.Trunc(deg)
	return fmt.Sprintf("%0*d%09.6f", width, int(whole), (deg-whole)*60)
}

// WriteLines writes lines joined by newlines to path.
func WriteLines(t testing.TB, fsys fsutil.FileSystem, path string, lines ...string) {
	t.Helper()
	AssertNoError(t, fsys.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
}

// WriteImage writes a placeholder image at path. A non-zero ppsMicros also
// writes a sidecar carrying that capture time.
func WriteImage(t testing.TB, fsys fsutil.FileSystem, path string, ppsMicros uint64) {
	t.Helper()
	AssertNoError(t, fsys.WriteFile(path, []byte("II*\x00"+path), 0644))
	if ppsMicros == 0 {
		return
	}
	doc := fmt.Sprintf("{\"pps_time_us\": %d, \"make\": \"2G Robotics\"}\n", ppsMicros)
	AssertNoError(t, fsys.WriteFile(tagstore.SidecarPath(path), []byte(doc), 0644))
}
