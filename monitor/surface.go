package monitor

import (
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/thetooth/netprobe/check"
	"github.com/thetooth/netprobe/graph"
	"github.com/thetooth/netprobe/resultlog"
)

// Stats is what the display fields show after every cycle.
type Stats struct {
	Sent        int
	Received    int
	LossPercent float64
	AvgLatency  int
	// HasAvg is false while the sample window is empty.
	HasAvg bool
}

func (s Stats) String() string {
	avg := "-"
	if s.HasAvg {
		avg = fmt.Sprintf("%dms", s.AvgLatency)
	}
	return fmt.Sprintf("sent=%d received=%d loss=%.1f%% avg=%s", s.Sent, s.Received, s.LossPercent, avg)
}

// Surface is the presentation layer the monitor drives.
type Surface interface {
	SetStatus(message string, severity check.Severity)
	SetStats(Stats)
	AppendLog(resultlog.Entry)
	ClearLog()
	Draw(graph.Model)
}

// ConsoleSurface prints status and log lines to a writer and keeps the chart
// as a PNG on disk.
type ConsoleSurface struct {
	out       io.Writer
	chartPath string
	mu        sync.Mutex
}

func NewConsoleSurface(out io.Writer, chartPath string) *ConsoleSurface {
	return &ConsoleSurface{out: out, chartPath: chartPath}
}

func (c *ConsoleSurface) SetStatus(message string, severity check.Severity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "* %s\n", message)
	if severity == check.SeverityError {
		logrus.Warn("[ STATUS ] ", message)
	} else {
		logrus.Debug("[ STATUS ] ", message)
	}
}

func (c *ConsoleSurface) SetStats(s Stats) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintln(c.out, "  "+s.String())
}

func (c *ConsoleSurface) AppendLog(e resultlog.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintln(c.out, e.String())
}

func (c *ConsoleSurface) ClearLog() {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintln(c.out, "* History cleared")
}

func (c *ConsoleSurface) Draw(m graph.Model) {
	if err := graph.WritePNG(c.chartPath, m); err != nil {
		logrus.Debug("Failed to write chart: ", err)
	}
}
