package graph

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNoSamples is returned when there is nothing to rasterize.
var ErrNoSamples = errors.New("graph: no samples to render")

var (
	lineColor = drawing.ColorFromHex("007bff")
	gridColor = drawing.ColorFromHex("e0e0e0")
)

// RenderPNG rasterizes a projected chart.
func RenderPNG(w io.Writer, m Model) error {
	layout := m.Layout
	if m.Empty() {
		return ErrNoSamples
	}
	if layout.Width < 1 || layout.Height < 1 {
		return errors.New("graph: layout has no area")
	}

	xs := make([]float64, len(m.Points))
	ys := make([]float64, len(m.Points))
	for i, p := range m.Points {
		xs[i] = float64(i)
		ys[i] = float64(p.LatencyMs)
	}

	ticks := make([]chart.Tick, 0, len(m.Gridlines))
	grid := make([]chart.GridLine, 0, len(m.Gridlines))
	// go-chart wants ticks ascending, gridlines are stored top down.
	for i := len(m.Gridlines) - 1; i >= 0; i-- {
		g := m.Gridlines[i]
		ticks = append(ticks, chart.Tick{Value: float64(g.Value), Label: g.Label})
		grid = append(grid, chart.GridLine{Value: float64(g.Value)})
	}

	xMax := float64(m.Capacity - 1)
	if xMax < 1 {
		xMax = 1
	}

	pad := int(layout.Padding)
	c := chart.Chart{
		Title:      m.Title,
		Width:      int(layout.Width),
		Height:     int(layout.Height),
		Background: chart.Style{Padding: chart.Box{Top: pad, Left: pad / 2, Right: pad / 2, Bottom: pad / 2}},
		XAxis: chart.XAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: xMax},
			Ticks: []chart.Tick{{Value: 0, Label: ""}, {Value: xMax, Label: ""}},
		},
		YAxis: chart.YAxis{
			Range:          &chart.ContinuousRange{Min: 0, Max: float64(m.MaxTime)},
			Ticks:          ticks,
			GridLines:      grid,
			GridMajorStyle: chart.Style{StrokeColor: gridColor, StrokeWidth: 1},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "latency",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: lineColor,
					StrokeWidth: 2,
					DotColor:    lineColor,
					DotWidth:    4,
				},
			},
		},
	}

	return c.Render(chart.PNG, w)
}

// WritePNG atomically replaces path with the rendered chart. An empty window
// removes the image.
func WritePNG(path string, m Model) error {
	if path == "" {
		return nil
	}
	if m.Empty() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".chart-*.png")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err = RenderPNG(tmp, m); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
