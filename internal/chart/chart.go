// Package chart renders collected channel series as PNG line charts.
package chart

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/drivesim/recorder/internal/series"
)

// Line is one labelled series on a chart.
type Line struct {
	Label  string
	Points []series.Point
}

// Render draws the given lines on one chart and saves it as a PNG at path.
func Render(title, xLabel, yLabel string, lines []Line, path string) error {
	if len(lines) == 0 {
		return fmt.Errorf("no series to chart")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())

	args := make([]any, 0, len(lines)*2)
	for _, l := range lines {
		xys := make(plotter.XYs, len(l.Points))
		for i, pt := range l.Points {
			xys[i].X = pt.X
			xys[i].Y = pt.Y
		}
		args = append(args, l.Label, xys)
	}

	if err := plotutil.AddLines(p, args...); err != nil {
		return fmt.Errorf("adding series: %w", err)
	}

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("saving chart: %w", err)
	}
	return nil
}

// Exclude returns channels with the named ones removed, preserving order.
func Exclude(channels []string, drop ...string) []string {
	out := make([]string, 0, len(channels))
	for _, c := range channels {
		skip := false
		for _, d := range drop {
			if c == d {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, c)
		}
	}
	return out
}

// RenderRun charts the named channels from a run's collector. Channels
// with no samples are skipped; charting nothing is an error.
func RenderRun(c *series.Collector, channels []string, title, path string) error {
	var lines []Line
	for _, name := range channels {
		pts := c.Series(name)
		if len(pts) == 0 {
			continue
		}
		lines = append(lines, Line{Label: name, Points: pts})
	}
	return Render(title, "elapsed (h)", "value", lines, path)
}
