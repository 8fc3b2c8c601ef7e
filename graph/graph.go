package graph

import (
	"fmt"
	"math"
)

const (
	// Title is drawn above every non-empty chart.
	Title = "Latency (ms)"
	// Placeholder replaces the chart while there are no samples.
	Placeholder = "No data yet. Start pinging to see the latency chart"

	// MinScale keeps the y axis at 100 ms or more so early charts stay legible.
	MinScale = 100
	// Gridlines is the number of horizontal lines, top and bottom included.
	Gridlines = 6

	DefaultPadding = 40
)

// Layout is the drawing surface the chart is projected onto.
type Layout struct {
	Width   float64
	Height  float64
	Padding float64
}

// Plot returns the inner plotting area, clamped to zero on tiny surfaces.
func (l Layout) Plot() Rect {
	r := Rect{
		Left:   l.Padding,
		Top:    l.Padding,
		Right:  l.Width - l.Padding,
		Bottom: l.Height - l.Padding,
	}
	if r.Right < r.Left {
		r.Right = r.Left
	}
	if r.Bottom < r.Top {
		r.Bottom = r.Top
	}
	return r
}

type Rect struct {
	Left, Top, Right, Bottom float64
}

func (r Rect) Width() float64  { return r.Right - r.Left }
func (r Rect) Height() float64 { return r.Bottom - r.Top }

type Point struct {
	X, Y      float64
	LatencyMs int
}

type Line struct {
	X1, Y1, X2, Y2 float64
}

type Gridline struct {
	Y     float64
	Value int
	Label string
}

// Model is everything needed to draw one frame of the latency chart.
type Model struct {
	Layout      Layout
	Capacity    int
	Placeholder string
	Title       string

	MaxTime   int
	Scale     float64
	Plot      Rect
	Gridlines []Gridline
	XAxis     Line
	YAxis     Line
	// Points are in chronological order and joined by a polyline.
	Points []Point
}

// Empty reports whether only the placeholder should be drawn.
func (m Model) Empty() bool {
	return len(m.Points) == 0
}

// Samples returns the plotted latencies in chronological order.
func (m Model) Samples() []int {
	out := make([]int, len(m.Points))
	for i, p := range m.Points {
		out[i] = p.LatencyMs
	}
	return out
}

// Project maps the samples onto layout. Horizontal spacing is derived from
// capacity, not from the number of samples, so a partially filled window is
// drawn compressed to the left.
func Project(samples []int, capacity int, layout Layout) Model {
	m := Model{Layout: layout, Capacity: capacity}
	if len(samples) == 0 {
		m.Placeholder = Placeholder
		return m
	}

	plot := layout.Plot()
	maxTime := MaxTime(samples)

	m.Title = Title
	m.MaxTime = maxTime
	m.Plot = plot
	m.Scale = plot.Height() / float64(maxTime)

	for i := 0; i < Gridlines; i++ {
		value := int(math.Round(float64(maxTime) * float64(Gridlines-1-i) / float64(Gridlines-1)))
		m.Gridlines = append(m.Gridlines, Gridline{
			Y:     plot.Top + plot.Height()*float64(i)/float64(Gridlines-1),
			Value: value,
			Label: fmt.Sprintf("%dms", value),
		})
	}

	var spacing float64
	if capacity > 1 {
		spacing = plot.Width() / float64(capacity-1)
	}
	m.Points = make([]Point, len(samples))
	for i, v := range samples {
		m.Points[i] = Point{
			X:         plot.Left + float64(i)*spacing,
			Y:         plot.Bottom - float64(v)*m.Scale,
			LatencyMs: v,
		}
	}

	m.YAxis = Line{X1: plot.Left, Y1: plot.Top, X2: plot.Left, Y2: plot.Bottom}
	m.XAxis = Line{X1: plot.Left, Y1: plot.Bottom, X2: plot.Right, Y2: plot.Bottom}

	return m
}

// MaxTime is the top of the y axis for samples.
func MaxTime(samples []int) int {
	maxTime := MinScale
	for _, v := range samples {
		if v > maxTime {
			maxTime = v
		}
	}
	return maxTime
}
