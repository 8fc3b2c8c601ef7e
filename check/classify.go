package check

import (
	"fmt"
	"math"
	"time"
)

// Severity tags a message for display.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

// Result is a classified attempt.
type Result struct {
	Received  bool
	LatencyMs int
	Message   string
	Severity  Severity
}

// Classify decides whether an attempt counts as a reply. Anything that returns
// before the deadline is a reply, transport errors included. Hitting the
// deadline, or never sending for lack of a source address, counts as loss.
func Classify(a Attempt, deadline time.Duration) Result {
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	if a.Outcome == Unsent {
		return Result{
			Message:  fmt.Sprintf("No source address for %s", a.Host),
			Severity: SeverityError,
		}
	}
	if a.Outcome == TimedOut || a.Elapsed >= deadline {
		return Result{
			Message:  fmt.Sprintf("Request timeout for %s", a.Host),
			Severity: SeverityError,
		}
	}

	latency := int(math.Round(float64(a.Elapsed) / float64(time.Millisecond)))
	if latency < 0 {
		latency = 0
	}
	return Result{
		Received:  true,
		LatencyMs: latency,
		Message:   fmt.Sprintf("Reply from %s: time=%dms", a.Host, latency),
		Severity:  SeveritySuccess,
	}
}
