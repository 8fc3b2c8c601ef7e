package statistics_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thetooth/netprobe/config"
	"github.com/thetooth/netprobe/statistics"
)

func TestWindowEvictsOldestFirst(t *testing.T) {
	w := statistics.NewWindow(20)
	for i := 1; i <= 45; i++ {
		w.RecordSent()
		w.RecordReceived(i)

		samples := w.Samples()
		require.LessOrEqual(t, len(samples), w.Capacity())
		require.LessOrEqual(t, w.Received(), w.Sent())

		first := 1
		if i > 20 {
			first = i - 19
		}
		assert.Equal(t, first, samples[0])
		assert.Equal(t, i, samples[len(samples)-1])
	}
}

func TestWindowSteadyState(t *testing.T) {
	w := statistics.NewWindow(statistics.DefaultCapacity)
	for i := 0; i < 25; i++ {
		w.RecordSent()
		w.RecordReceived(50)
	}

	assert.Equal(t, 25, w.Sent())
	assert.Equal(t, 25, w.Received())
	assert.Len(t, w.Samples(), 20)
	assert.Equal(t, 0.0, w.LossPercent())

	avg, ok := w.AverageLatency()
	assert.True(t, ok)
	assert.Equal(t, 50, avg)
}

func TestWindowLossPercent(t *testing.T) {
	w := statistics.NewWindow(statistics.DefaultCapacity)
	assert.Equal(t, 0.0, w.LossPercent())

	for i := 0; i < 4; i++ {
		w.RecordSent()
	}
	for i := 0; i < 3; i++ {
		w.RecordReceived(100)
	}
	assert.Equal(t, 25.0, w.LossPercent())

	w.RecordSent()
	w.RecordSent()
	// 2 of 6 lost
	assert.Equal(t, 33.3, w.LossPercent())
}

func TestWindowAverageFollowsEviction(t *testing.T) {
	w := statistics.NewWindow(3)
	_, ok := w.AverageLatency()
	assert.False(t, ok)

	for _, v := range []int{10, 20, 30} {
		w.RecordSent()
		w.RecordReceived(v)
	}
	avg, _ := w.AverageLatency()
	assert.Equal(t, 20, avg)

	w.RecordSent()
	w.RecordReceived(41)
	// window is now [20 30 41]
	avg, _ = w.AverageLatency()
	assert.Equal(t, 30, avg)
}

func TestWindowClear(t *testing.T) {
	w := statistics.NewWindow(5)
	w.RecordSent()
	w.RecordReceived(12)
	w.Clear()

	assert.Zero(t, w.Sent())
	assert.Zero(t, w.Received())
	assert.Empty(t, w.Samples())
	_, ok := w.AverageLatency()
	assert.False(t, ok)
}

func TestSnapshotAndReport(t *testing.T) {
	w := statistics.NewWindow(10)
	for _, v := range []int{10, 30} {
		w.RecordSent()
		w.RecordReceived(v)
	}
	w.RecordSent()

	s := w.Snapshot()
	assert.Equal(t, 3, s.PacketsSent)
	assert.Equal(t, 2, s.PacketsRecv)
	assert.Equal(t, 33.3, s.PacketLoss)
	assert.Equal(t, 10*time.Millisecond, s.MinRtt)
	assert.Equal(t, 30*time.Millisecond, s.MaxRtt)
	assert.Equal(t, 20*time.Millisecond, s.AvgRtt)
	assert.Equal(t, 10*time.Millisecond, s.StdDevRtt)
	assert.Equal(t, 30*time.Millisecond, s.LastRTT)

	path := filepath.Join(t.TempDir(), "stats.json")
	r := statistics.Build("example.com", true, config.Defaults().Check, s)
	require.NoError(t, r.Write(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, "example.com", decoded["host"])
	assert.Equal(t, "20ms", decoded["avg_rtt"])
	assert.Equal(t, float64(3), decoded["packets_sent"])

	assert.NoError(t, r.Write(""))
}
