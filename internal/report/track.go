package report

import (
	"bytes"
	"fmt"
	"image/color"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/navtag/internal/fsutil"
)

var (
	trackColor = color.RGBA{R: 49, G: 104, B: 142, A: 255}
	startColor = color.RGBA{R: 53, G: 183, B: 121, A: 255}
	endColor   = color.RGBA{R: 200, G: 55, B: 55, A: 255}
)

// TrackPlot draws the vehicle track through the image positions and saves
// it to path. The format follows the extension (png, svg, pdf, jpg).
func TrackPlot(fsys fsutil.FileSystem, path string, points []Point) error {
	if len(points) == 0 {
		return ErrNoPoints
	}

	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i] = plotter.XY{X: pt.Longitude, Y: pt.Latitude}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Survey track (%d images)", len(points))
	p.X.Label.Text = "Longitude (°)"
	p.Y.Label.Text = "Latitude (°)"

	line, err := plotter.NewLine(xys)
	if err != nil {
		return err
	}
	line.Color = trackColor
	line.Width = vg.Points(1)
	p.Add(line)

	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return err
	}
	scatter.Color = trackColor
	scatter.Radius = vg.Points(1.5)
	p.Add(scatter)

	for _, end := range []struct {
		label string
		at    plotter.XY
		c     color.Color
	}{
		{"first image", xys[0], startColor},
		{"last image", xys[len(xys)-1], endColor},
	} {
		s, err := plotter.NewScatter(plotter.XYs{end.at})
		if err != nil {
			return err
		}
		s.Color = end.c
		s.Radius = vg.Points(4)
		p.Add(s)
		p.Legend.Add(end.label, s)
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	p.Add(plotter.NewGrid())

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	w, err := p.WriterTo(8*vg.Inch, 8*vg.Inch, format)
	if err != nil {
		return fmt.Errorf("track plot %s: %w", path, err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return fmt.Errorf("track plot %s: %w", path, err)
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return fsys.WriteFile(path, buf.Bytes(), 0644)
}
