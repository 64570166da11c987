package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/navtag/internal/catalog"
	"github.com/banshee-data/navtag/internal/fsutil"
	"github.com/banshee-data/navtag/internal/tags"
	"github.com/banshee-data/navtag/internal/tagstore"
)

// PrintTags writes the tags attached to image, schema fields first in
// schema order, then any other keys sorted by name. image may also name the
// sidecar itself.
func PrintTags(w io.Writer, fsys fsutil.FileSystem, image string) error {
	image = strings.TrimSuffix(image, tagstore.SidecarSuffix)
	hdr, err := tagstore.NewSidecar(fsys, "").LoadHeader(image)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, image)
	if len(hdr.Fields) == 0 {
		fmt.Fprintln(tw, "  (no tags)")
		return tw.Flush()
	}

	seen := make(map[string]bool, len(hdr.Fields))
	for _, spec := range tags.Schema {
		v, ok := hdr.Fields[spec.Name]
		if !ok {
			continue
		}
		seen[spec.Name] = true
		text := formatValue(v)
		if spec.Name == "latitude" || spec.Name == "longitude" {
			text += formatDMS(v)
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", spec.Name, text, spec.Unit)
	}
	var extra []string
	for name := range hdr.Fields {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	slices.Sort(extra)
	for _, name := range extra {
		fmt.Fprintf(tw, "  %s\t%s\t\n", name, formatValue(hdr.Fields[name]))
	}
	return tw.Flush()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// formatDMS renders a coordinate magnitude as degrees, minutes and
// seconds, or nothing when v is not a number.
func formatDMS(v any) string {
	n, ok := v.(json.Number)
	if !ok {
		return ""
	}
	deg, err := n.Float64()
	if err != nil {
		return ""
	}
	d := tags.DegreesToDMS(deg)
	return fmt.Sprintf(" (%.0f°%.0f'%.2f\")", d.Degrees, d.Minutes, d.Seconds)
}

// PrintCatalog lists the catalog's runs, or with runID set, that run's tag
// rows as one JSON object per line.
func PrintCatalog(w io.Writer, cat *catalog.Catalog, runID string) error {
	if runID != "" {
		rows, err := cat.Tags(runID)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		for _, row := range rows {
			if err := enc.Encode(row); err != nil {
				return err
			}
		}
		return nil
	}

	runs, err := cat.Runs()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tFINISHED\tTOTAL\tWRITTEN\tFAILED\tCLAMPED")
	for _, r := range runs {
		finished := "-"
		if r.FinishedAt != nil {
			finished = r.FinishedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n", r.ID, r.StartedAt.Format(time.RFC3339), finished,
			r.Totals.Total, r.Totals.Written, r.Totals.Failed, r.Totals.Clamped)
	}
	return tw.Flush()
}
