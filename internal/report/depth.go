package report

import (
	"bytes"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/navtag/internal/fsutil"
)

// DepthChart writes an HTML page with the vehicle altitude at each image
// and the navigation and depth alignment lags, both against seconds since
// the first image.
func DepthChart(fsys fsutil.FileSystem, path string, points []Point) error {
	if len(points) == 0 {
		return ErrNoPoints
	}
	t0 := points[0].Time
	start := time.Unix(0, int64(t0*1e9)).UTC().Format(time.RFC3339)

	alt := make([]opts.ScatterData, 0, len(points))
	nav := make([]opts.ScatterData, 0, len(points))
	var rng []opts.ScatterData
	for _, pt := range points {
		x := pt.Time - t0
		alt = append(alt, opts.ScatterData{Name: pt.Name, Value: []interface{}{x, pt.Altitude}})
		nav = append(nav, opts.ScatterData{Name: pt.Name, Value: []interface{}{x, pt.NavLag}})
		if pt.HasDepth {
			rng = append(rng, opts.ScatterData{Name: pt.Name, Value: []interface{}{x, pt.DepthLag}})
		}
	}
	xAxis := opts.XAxis{Type: "value", Name: "Seconds since " + start, NameLocation: "middle", NameGap: 25}

	altitude := charts.NewScatter()
	altitude.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Vehicle altitude", Subtitle: fmt.Sprintf("images=%d", len(points))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(xAxis),
		charts.WithYAxisOpts(opts.YAxis{Name: "Altitude (m)", NameLocation: "middle", NameGap: 40}),
	)
	altitude.AddSeries("altitude", alt, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))

	lag := charts.NewScatter()
	lag.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Alignment lag", Subtitle: "aligned sample time minus image time"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(xAxis),
		charts.WithYAxisOpts(opts.YAxis{Name: "Lag (s)", NameLocation: "middle", NameGap: 40}),
	)
	lag.AddSeries("navigation", nav, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	if len(rng) > 0 {
		lag.AddSeries("depth", rng, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	}

	page := components.NewPage().SetPageTitle("Survey depth and alignment")
	page.AddCharts(altitude, lag)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("render depth chart: %w", err)
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return fsys.WriteFile(path, buf.Bytes(), 0644)
}
