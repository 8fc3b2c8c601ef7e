package statistics

import (
	"math"
	"sync"
	"time"
)

// DefaultCapacity is the number of latency samples kept for charting and averaging.
const DefaultCapacity = 20

// Window is a fixed-capacity FIFO of the most recent latency samples together
// with the lifetime sent/received counters.
type Window struct {
	capacity int
	samples  []int
	sent     int
	received int
	mu       sync.RWMutex
}

// NewWindow returns an empty window, capacity below 1 falls back to DefaultCapacity.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Window{
		capacity: capacity,
		samples:  make([]int, 0, capacity+1),
	}
}

func (w *Window) Capacity() int {
	return w.capacity
}

// RecordSent counts an issued probe.
func (w *Window) RecordSent() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.sent++
}

// RecordReceived counts a reply and appends its latency, evicting the oldest
// sample once the window is full.
func (w *Window) RecordReceived(latencyMs int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.received++
	w.samples = append(w.samples, latencyMs)
	if len(w.samples) > w.capacity {
		w.samples = append(w.samples[:0], w.samples[1:]...)
	}
}

// Clear resets both counters and drops every sample.
func (w *Window) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.sent = 0
	w.received = 0
	w.samples = w.samples[:0]
}

func (w *Window) Sent() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.sent
}

func (w *Window) Received() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.received
}

// Samples returns a copy of the window in chronological order.
func (w *Window) Samples() []int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]int, len(w.samples))
	copy(out, w.samples)
	return out
}

// LossPercent is the share of sent probes without a reply, rounded to one decimal.
func (w *Window) LossPercent() float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return lossPercent(w.sent, w.received)
}

// AverageLatency returns the rounded mean of the current samples. ok is false
// when the window is empty.
func (w *Window) AverageLatency() (avg int, ok bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if len(w.samples) == 0 {
		return 0, false
	}
	return int(math.Round(mean(w.samples))), true
}

// Snapshot captures the counters and window aggregates in one consistent read.
func (w *Window) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	s := Snapshot{
		PacketsSent: w.sent,
		PacketsRecv: w.received,
		PacketLoss:  lossPercent(w.sent, w.received),
		Samples:     len(w.samples),
	}
	if len(w.samples) == 0 {
		return s
	}

	s.LastRTT = msToDuration(w.samples[len(w.samples)-1])
	minRtt, maxRtt := w.samples[0], w.samples[0]
	for _, v := range w.samples {
		if v < minRtt {
			minRtt = v
		}
		if v > maxRtt {
			maxRtt = v
		}
	}
	avg := mean(w.samples)
	var m2 float64
	for _, v := range w.samples {
		d := float64(v) - avg
		m2 += d * d
	}
	s.MinRtt = msToDuration(minRtt)
	s.MaxRtt = msToDuration(maxRtt)
	s.AvgRtt = msToDuration(int(math.Round(avg)))
	s.StdDevRtt = time.Duration(math.Sqrt(m2/float64(len(w.samples))) * float64(time.Millisecond))
	return s
}

func lossPercent(sent, received int) float64 {
	if sent == 0 {
		return 0
	}
	loss := float64(sent-received) / float64(sent) * 100
	return math.Round(loss*10) / 10
}

func mean(samples []int) float64 {
	var total int
	for _, v := range samples {
		total += v
	}
	return float64(total) / float64(len(samples))
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
