// Package export renders traces to image files with gonum/plot.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/ctrlblocks/internal/sim"
)

// DefaultColumns are the signals drawn when none are named.
var DefaultColumns = []string{"r", "y", "u"}

var labels = map[string]string{
	"t": "time",
	"r": "reference r",
	"e": "error e",
	"x": "controller output x",
	"u": "actuator u",
	"y": "plant output y",
	"m": "measurement m",
}

var formats = map[string]bool{".png": true, ".svg": true, ".pdf": true, ".jpg": true}

const (
	width  = 8 * vg.Inch
	height = 5 * vg.Inch
)

// WritePlot draws the named trace columns against time. The image format
// follows the file extension.
func WritePlot(path string, trace *sim.Trace, title string, columns ...string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !formats[ext] {
		return fmt.Errorf("unsupported plot format %q", ext)
	}
	if len(trace.Samples) == 0 {
		return fmt.Errorf("empty trace")
	}
	if len(columns) == 0 {
		columns = DefaultColumns
	}

	p, err := Plot(trace, title, columns...)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create directory: %w", err)
		}
	}
	return p.Save(width, height, path)
}

// Plot builds the figure without saving it.
func Plot(trace *sim.Trace, title string, columns ...string) (*plot.Plot, error) {
	t, err := trace.Column("t")
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time (s)"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	for i, name := range columns {
		ys, err := trace.Column(name)
		if err != nil {
			return nil, err
		}
		pts := make(plotter.XYs, len(ys))
		for k := range ys {
			pts[k].X = t[k]
			pts[k].Y = ys[k]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = plotutil.Color(i)
		p.Add(line)

		label, ok := labels[name]
		if !ok {
			label = name
		}
		p.Legend.Add(label, line)
	}
	return p, nil
}
