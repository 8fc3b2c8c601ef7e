package check_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thetooth/netprobe/check"
	"github.com/thetooth/netprobe/util"
)

// steppedClock advances by step on every read.
type steppedClock struct {
	t    time.Time
	step time.Duration
}

func (c *steppedClock) Now() time.Time {
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

type proberFunc func(ctx context.Context, host string) error

func (f proberFunc) Attempt(ctx context.Context, host string) error { return f(ctx, host) }

func TestClassifyTransportErrorWithinDeadline(t *testing.T) {
	a := check.Attempt{Host: "example.com", Elapsed: 4999 * time.Millisecond, Outcome: check.TransportError}
	r := check.Classify(a, 5*time.Second)

	assert.True(t, r.Received)
	assert.Equal(t, 4999, r.LatencyMs)
	assert.Equal(t, "Reply from example.com: time=4999ms", r.Message)
	assert.Equal(t, check.SeveritySuccess, r.Severity)
}

func TestClassifyTimeout(t *testing.T) {
	a := check.Attempt{Host: "example.com", Elapsed: 5000 * time.Millisecond, Outcome: check.TimedOut}
	r := check.Classify(a, 5*time.Second)

	assert.False(t, r.Received)
	assert.Zero(t, r.LatencyMs)
	assert.Equal(t, "Request timeout for example.com", r.Message)
	assert.Equal(t, check.SeverityError, r.Severity)
}

func TestClassifyLateErrorIsLoss(t *testing.T) {
	a := check.Attempt{Host: "h", Elapsed: 5001 * time.Millisecond, Outcome: check.TransportError}
	assert.False(t, check.Classify(a, 5*time.Second).Received)
}

func TestClassifyRoundsLatency(t *testing.T) {
	a := check.Attempt{Host: "h", Elapsed: 12600 * time.Microsecond, Outcome: check.Replied}
	r := check.Classify(a, 0)
	assert.True(t, r.Received)
	assert.Equal(t, 13, r.LatencyMs)
}

func TestRunOutcomes(t *testing.T) {
	clock := &steppedClock{t: time.Unix(0, 0), step: 40 * time.Millisecond}

	a := check.Run(context.Background(), proberFunc(func(context.Context, string) error { return nil }), "h", time.Second, clock.Now)
	assert.Equal(t, check.Replied, a.Outcome)
	assert.Equal(t, 40*time.Millisecond, a.Elapsed)

	a = check.Run(context.Background(), proberFunc(func(context.Context, string) error {
		return errors.New("connection refused")
	}), "h", time.Second, clock.Now)
	assert.Equal(t, check.TransportError, a.Outcome)
	assert.Error(t, a.Err)

	a = check.Run(context.Background(), proberFunc(func(ctx context.Context, _ string) error {
		<-ctx.Done()
		return ctx.Err()
	}), "h", 10*time.Millisecond, nil)
	assert.Equal(t, check.TimedOut, a.Outcome)
	assert.GreaterOrEqual(t, a.Elapsed, 10*time.Millisecond)
	assert.False(t, check.Classify(a, 10*time.Millisecond).Received)
}

func TestHTTPer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	p, err := check.NewProber("http", nil)
	require.NoError(t, err)

	host := strings.TrimPrefix(srv.URL, "http://")
	assert.NoError(t, p.Attempt(context.Background(), host))
	assert.NoError(t, p.Attempt(context.Background(), srv.URL))
}

func TestTCPer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	addr := ln.Addr().String()

	p, err := check.NewProber("tcp", nil)
	require.NoError(t, err)
	assert.NoError(t, p.Attempt(context.Background(), addr))

	ln.Close()
	assert.Error(t, p.Attempt(context.Background(), addr))
}

func TestNewProberRejectsUnknownKind(t *testing.T) {
	_, err := check.NewProber("smtp", nil)
	assert.Error(t, err)
}

// listenLoopback6 skips when the host has no IPv6 loopback.
func listenLoopback6(t *testing.T) net.Listener {
	ln, err := net.Listen("tcp", "[::1]:0")
	if err != nil {
		t.Skip("IPv6 loopback unavailable: ", err)
	}
	return ln
}

func TestHTTPerBindsSourceOfTargetFamily(t *testing.T) {
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	srv.Listener.Close()
	srv.Listener = listenLoopback6(t)
	srv.Start()
	defer srv.Close()

	src, err := util.Fixed("127.0.0.1", "::1")
	require.NoError(t, err)
	p, err := check.NewProber("http", src)
	require.NoError(t, err)

	a := check.Run(context.Background(), p, srv.URL, time.Second, nil)
	assert.Equal(t, check.Replied, a.Outcome, "%v", a.Err)
	assert.True(t, check.Classify(a, time.Second).Received)
}

func TestHTTPerWithoutSourceOfTargetFamilyIsLoss(t *testing.T) {
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Listener.Close()
	srv.Listener = listenLoopback6(t)
	srv.Start()
	defer srv.Close()

	src, err := util.Fixed("127.0.0.1")
	require.NoError(t, err)
	p, err := check.NewProber("http", src)
	require.NoError(t, err)

	a := check.Run(context.Background(), p, srv.URL, time.Second, nil)
	assert.Equal(t, check.Unsent, a.Outcome)
	assert.ErrorIs(t, a.Err, util.ErrNoSource)

	r := check.Classify(a, time.Second)
	assert.False(t, r.Received)
	assert.Equal(t, check.SeverityError, r.Severity)
	assert.NotContains(t, r.Message, "Reply")
}

func TestTCPerBindsSourceOfTargetFamily(t *testing.T) {
	ln := listenLoopback6(t)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	src, err := util.Fixed("127.0.0.1", "::1")
	require.NoError(t, err)
	p, err := check.NewProber("tcp", src)
	require.NoError(t, err)
	assert.NoError(t, p.Attempt(context.Background(), ln.Addr().String()))

	v4only, err := util.Fixed("127.0.0.1")
	require.NoError(t, err)
	p, err = check.NewProber("tcp", v4only)
	require.NoError(t, err)
	assert.ErrorIs(t, p.Attempt(context.Background(), ln.Addr().String()), util.ErrNoSource)
}

func TestClassifyUnsent(t *testing.T) {
	a := check.Attempt{Host: "[::1]:80", Elapsed: time.Millisecond, Outcome: check.Unsent}
	r := check.Classify(a, 5*time.Second)
	assert.False(t, r.Received)
	assert.Equal(t, "No source address for [::1]:80", r.Message)
}
