// Package catalog records tagging runs and the images they wrote in a
// sqlite database, so a survey's output can be audited after the fact.
package catalog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/navtag/internal/tags"
	"github.com/banshee-data/navtag/internal/timeutil"
	"github.com/banshee-data/navtag/internal/version"
)

// ErrUnknownRun is returned when a run ID has no survey_runs row.
var ErrUnknownRun = errors.New("unknown run")

// Catalog is an open catalog database.
type Catalog struct {
	*sql.DB
	clock timeutil.Clock
}

// Open opens (creating if needed) the catalog at path. Call MigrateUp
// before use.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Workers share one connection so writes serialise in the driver.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure catalog %s: %w", path, err)
	}
	return &Catalog{DB: db, clock: timeutil.RealClock{}}, nil
}

// SetClock replaces the clock used for run and tag timestamps.
func (c *Catalog) SetClock(clk timeutil.Clock) { c.clock = clk }

// RunTotals are the per-run counters stored when a run finishes.
type RunTotals struct {
	Total   int
	Written int
	Failed  int
	Clamped int
}

// Run is one survey_runs row.
type Run struct {
	ID         string     `json:"run_id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Version    string     `json:"version"`
	Config     string     `json:"config_json"`
	Totals     RunTotals  `json:"totals"`
}

// TagRow is one image_tags row. Position fields are nil for images
// written without a navigation fix.
type TagRow struct {
	ID              int64    `json:"id"`
	RunID           string   `json:"run_id"`
	SourcePath      string   `json:"source_path"`
	DestPath        string   `json:"dest_path"`
	PPSTimeMicros   uint64   `json:"pps_time_us"`
	Latitude        *float64 `json:"latitude,omitempty"`
	LatitudeRef     *string  `json:"latitude_ref,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	LongitudeRef    *string  `json:"longitude_ref,omitempty"`
	Altitude        *float64 `json:"altitude,omitempty"`
	AltitudeRef     *string  `json:"altitude_ref,omitempty"`
	Heading         *float64 `json:"heading,omitempty"`
	SubjectDistance *float64 `json:"subject_distance,omitempty"`
	WrittenAt       float64  `json:"written_at"`
}

func (c *Catalog) now() float64 {
	t := c.clock.Now()
	return float64(t.UnixNano()) / 1e9
}

func unixTime(sec float64) time.Time {
	return time.Unix(0, int64(sec*1e9)).UTC()
}

// StartRun inserts a new run and returns its ID. config is stored verbatim
// and must be valid JSON when non-empty.
func (c *Catalog) StartRun(config []byte) (string, error) {
	if len(config) == 0 {
		config = []byte("{}")
	}
	if !json.Valid(config) {
		return "", errors.New("run config is not valid JSON")
	}
	runID := uuid.New().String()
	_, err := c.Exec(`
		INSERT INTO survey_runs (run_id, started_at, version, config_json)
		VALUES (?, ?, ?, ?)
	`, runID, c.now(), version.String(), string(config))
	if err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}
	return runID, nil
}

// FinishRun stamps the end time and totals of a run.
func (c *Catalog) FinishRun(runID string, totals RunTotals) error {
	res, err := c.Exec(`
		UPDATE survey_runs
		SET finished_at = ?, total = ?, written = ?, failed = ?, clamped = ?
		WHERE run_id = ?
	`, c.now(), totals.Total, totals.Written, totals.Failed, totals.Clamped, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", runID, err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrUnknownRun)
	}
	return nil
}

// RecordTag stores the catalog row for one written image.
func (c *Catalog) RecordTag(runID, src, dst string, rec *tags.Record) error {
	if rec == nil {
		return errors.New("nil record")
	}
	var (
		lat, lon, alt, heading, distance any
		latRef, lonRef, altRef           any
	)
	if p := rec.Position; p != nil {
		lat, lon, alt = p.Latitude, p.Longitude, p.Altitude
		latRef, lonRef, altRef = p.LatitudeRef.String(), p.LongitudeRef.String(), p.AltitudeRef.String()
	}
	if rec.Pose != nil {
		heading = rec.Pose.Heading
	}
	if rec.Ranging != nil {
		distance = rec.Ranging.SubjectDistance
	}

	_, err := c.Exec(`
		INSERT INTO image_tags (
			run_id, source_path, dest_path, pps_time_us,
			latitude, latitude_ref, longitude, longitude_ref, altitude, altitude_ref,
			heading, subject_distance, written_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, src, dst, int64(rec.PPSTimeMicros),
		lat, latRef, lon, lonRef, alt, altRef,
		heading, distance, c.now())
	if err != nil {
		return fmt.Errorf("failed to record tag for %s: %w", dst, err)
	}
	return nil
}

// Tags returns the images recorded for runID in capture-time order.
func (c *Catalog) Tags(runID string) ([]TagRow, error) {
	rows, err := c.Query(`
		SELECT id, run_id, source_path, dest_path, pps_time_us,
			latitude, latitude_ref, longitude, longitude_ref, altitude, altitude_ref,
			heading, subject_distance, written_at
		FROM image_tags
		WHERE run_id = ?
		ORDER BY pps_time_us, id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	var out []TagRow
	for rows.Next() {
		var (
			r   TagRow
			pps int64
		)
		if err := rows.Scan(&r.ID, &r.RunID, &r.SourcePath, &r.DestPath, &pps,
			&r.Latitude, &r.LatitudeRef, &r.Longitude, &r.LongitudeRef, &r.Altitude, &r.AltitudeRef,
			&r.Heading, &r.SubjectDistance, &r.WrittenAt); err != nil {
			return nil, fmt.Errorf("failed to scan tag row: %w", err)
		}
		r.PPSTimeMicros = uint64(pps)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Runs returns every run, oldest first.
func (c *Catalog) Runs() ([]Run, error) {
	rows, err := c.Query(`
		SELECT run_id, started_at, finished_at, version, config_json,
			total, written, failed, clamped
		FROM survey_runs
		ORDER BY started_at, run_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r        Run
			started  float64
			finished sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.Version, &r.Config,
			&r.Totals.Total, &r.Totals.Written, &r.Totals.Failed, &r.Totals.Clamped); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		r.StartedAt = unixTime(started)
		if finished.Valid {
			t := unixTime(finished.Float64)
			r.FinishedAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
