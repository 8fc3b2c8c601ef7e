package check

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thetooth/netprobe/util"
)

// DefaultDeadline is the hard abort applied to every attempt.
const DefaultDeadline = 5 * time.Second

// Prober performs one best-effort reachability attempt against host. It must
// return once ctx is done.
type Prober interface {
	Attempt(ctx context.Context, host string) error
}

// Outcome is the raw result of an attempt before classification.
type Outcome int

const (
	Replied Outcome = iota
	TransportError
	TimedOut
	// Unsent means no local address could reach the target's family, so
	// nothing left the host.
	Unsent
)

func (o Outcome) String() string {
	switch o {
	case Replied:
		return "replied"
	case TransportError:
		return "transport_error"
	case TimedOut:
		return "timed_out"
	case Unsent:
		return "unsent"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Attempt is the ephemeral record of a single probe.
type Attempt struct {
	Host    string
	Start   time.Time
	Elapsed time.Duration
	Outcome Outcome
	Err     error
}

// Run issues one probe with the given deadline and reports what happened. now
// is the clock used for timing, nil means time.Now.
func Run(ctx context.Context, p Prober, host string, deadline time.Duration, now func() time.Time) Attempt {
	if now == nil {
		now = time.Now
	}
	if deadline <= 0 {
		deadline = DefaultDeadline
	}

	a := Attempt{Host: host, Start: now()}

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	a.Err = p.Attempt(ctx, host)
	a.Elapsed = now().Sub(a.Start)

	switch {
	case a.Err == nil:
		a.Outcome = Replied
	case errors.Is(a.Err, util.ErrNoSource):
		a.Outcome = Unsent
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		a.Outcome = TimedOut
	default:
		a.Outcome = TransportError
	}

	return a
}

// NewProber builds the prober for a check kind. src optionally picks the
// local address each attempt is sent from.
func NewProber(kind string, src Source) (Prober, error) {
	switch kind {
	case "", "http", "https":
		scheme := kind
		if scheme == "" {
			scheme = "http"
		}
		return NewHTTPer(scheme, src), nil
	case "tcp":
		return NewTCPer(src), nil
	case "icmp", "udp":
		pinger := NewPinger(src)
		pinger.SetPrivileged(kind == "icmp")
		return pinger, nil
	}
	return nil, fmt.Errorf("unsupported check type: %s", kind)
}
