package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thetooth/netprobe/statistics"
)

func TestCollector(t *testing.T) {
	c := NewCollector()
	c.ObserveSent()
	c.ObserveSent()
	c.ObserveReceived(40)
	c.ObserveWindow(statistics.Snapshot{PacketLoss: 50, AvgRtt: 40 * time.Millisecond})
	c.SetRunning(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.probesSent))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.probesReceived))
	assert.Equal(t, 50.0, testutil.ToFloat64(c.packetLoss))
	assert.InDelta(t, 0.04, testutil.ToFloat64(c.avgLatency), 1e-9)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.running))

	c.SetRunning(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.running))

	n, err := testutil.GatherAndCount(c.Registry(), "netprobe_latency_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
