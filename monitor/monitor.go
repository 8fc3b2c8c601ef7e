package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/thetooth/netprobe/check"
	"github.com/thetooth/netprobe/config"
	"github.com/thetooth/netprobe/decision"
	"github.com/thetooth/netprobe/graph"
	"github.com/thetooth/netprobe/metrics"
	"github.com/thetooth/netprobe/resultlog"
	"github.com/thetooth/netprobe/statistics"
)

// ErrEmptyHost is returned by Start when no host was given.
var ErrEmptyHost = errors.New("please enter a host to ping")

// Options configure a Monitor. Zero values fall back to the defaults.
type Options struct {
	Check       config.Check
	Capacity    int
	LogCapacity int
	Layout      graph.Layout
	StatPath    string
	Metrics     *metrics.Collector

	// Now is the clock used to time probes.
	Now func() time.Time
}

// OptionsFromConfig maps a loaded configuration onto monitor options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Check:       cfg.Check,
		Capacity:    cfg.Capacity,
		LogCapacity: cfg.LogCapacity,
		Layout: graph.Layout{
			Width:   float64(cfg.Chart.Width),
			Height:  float64(cfg.Chart.Height),
			Padding: graph.DefaultPadding,
		},
		StatPath: cfg.StatPath,
	}
}

// Monitor owns the probe session, the sample window and the result log. All
// cycle results are applied under one lock.
type Monitor struct {
	opts    Options
	surface Surface
	window  *statistics.Window
	results *resultlog.Log
	target  *decision.Target

	mu      sync.Mutex
	prober  check.Prober
	host    string
	running bool
	// session identifies the current start, stop or clear epoch. Cycles that
	// began under another session are discarded.
	session uuid.UUID
	// run identifies the current start. Only timer ticks of the current run
	// may begin a cycle.
	run  uuid.UUID
	stop chan struct{}

	loops    sync.WaitGroup
	inflight sync.WaitGroup
}

func New(prober check.Prober, surface Surface, opts Options) *Monitor {
	if opts.Check.Interval.Duration <= 0 {
		opts.Check.Interval.Duration = config.DefaultInterval
	}
	if opts.Check.Timeout.Duration <= 0 {
		opts.Check.Timeout.Duration = check.DefaultDeadline
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Monitor{
		opts:    opts,
		surface: surface,
		prober:  prober,
		window:  statistics.NewWindow(opts.Capacity),
		results: resultlog.New(opts.LogCapacity),
		target:  decision.NewTarget("", opts.Check),
		session: uuid.New(),
	}
}

// Toggle stops a running session, otherwise starts one for host.
func (m *Monitor) Toggle(host string) error {
	if m.Running() {
		m.Stop()
		return nil
	}
	return m.Start(host)
}

// Start begins probing host: one cycle immediately, then one per interval.
// Starting while already running does nothing.
func (m *Monitor) Start(host string) error {
	host = strings.TrimSpace(host)
	if host == "" {
		m.surface.SetStatus("Please enter a host to ping", check.SeverityError)
		return ErrEmptyHost
	}

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = true
	m.host = host
	m.session = uuid.New()
	m.run = uuid.New()
	run := m.run
	m.stop = make(chan struct{})
	stop := m.stop
	m.target.Reset(host)
	m.mu.Unlock()

	logrus.Info("[ PROBE_START ] host: ", host, " interval: ", m.opts.Check.Interval.Duration)
	m.surface.SetStatus(fmt.Sprintf("Pinging %s...", host), check.SeverityInfo)
	if m.opts.Metrics != nil {
		m.opts.Metrics.SetRunning(true)
	}

	m.launch(run)

	m.loops.Add(1)
	go m.runLoop(stop, run)

	return nil
}

// Stop cancels the repeating timer. Probes already in flight finish but their
// results are discarded. Calling Stop while idle does nothing.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.session = uuid.New()
	close(m.stop)
	host := m.host
	m.mu.Unlock()

	logrus.Info("[ PROBE_STOP ] host: ", host)
	m.surface.SetStatus("Stopped", check.SeverityInfo)
	if m.opts.Metrics != nil {
		m.opts.Metrics.SetRunning(false)
	}
}

// Clear resets the counters, the sample window and the log, then redraws.
func (m *Monitor) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.session = uuid.New()
	m.window.Clear()
	m.results.Clear()
	m.surface.ClearLog()
	m.refresh()

	logrus.Info("[ HISTORY_CLEAR ]")
}

// SetProber swaps the reachability transport, restarting a running session.
func (m *Monitor) SetProber(p check.Prober, host string) error {
	wasRunning := m.Running()
	m.Stop()

	m.mu.Lock()
	m.prober = p
	m.mu.Unlock()

	if wasRunning {
		return m.Start(host)
	}
	return nil
}

func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) Host() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.host
}

func (m *Monitor) Window() *statistics.Window {
	return m.window
}

func (m *Monitor) Results() *resultlog.Log {
	return m.results
}

// Report returns the current statistics as written to the stats file.
func (m *Monitor) Report() *statistics.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.report()
}

// Wait blocks until the timer loop and every in-flight probe have returned.
func (m *Monitor) Wait() {
	m.loops.Wait()
	m.inflight.Wait()
}

func (m *Monitor) runLoop(stop <-chan struct{}, run uuid.UUID) {
	defer m.loops.Done()

	interval := time.NewTicker(m.opts.Check.Interval.Duration)
	defer interval.Stop()

	for {
		select {
		case <-stop:
			return
		case <-interval.C:
			m.launch(run)
		}
	}
}

// launch starts a cycle without waiting for the previous one.
func (m *Monitor) launch(run uuid.UUID) {
	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		m.cycle(run)
	}()
}

// cycle performs one probe for run and applies its result. A cycle whose run
// has ended sends nothing, even if a later Start is already running.
func (m *Monitor) cycle(run uuid.UUID) {
	m.mu.Lock()
	if !m.running || m.run != run {
		m.mu.Unlock()
		return
	}
	session, host, prober := m.session, m.host, m.prober
	m.window.RecordSent()
	m.mu.Unlock()

	if m.opts.Metrics != nil {
		m.opts.Metrics.ObserveSent()
	}

	deadline := m.opts.Check.Timeout.Duration
	attempt := check.Run(context.Background(), prober, host, deadline, m.opts.Now)
	res := check.Classify(attempt, deadline)
	if attempt.Err != nil {
		logrus.Trace("[ PROBE_ERROR ] host: ", host, " outcome: ", attempt.Outcome, " err: ", attempt.Err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != session {
		logrus.Debug("[ PROBE_STALE ] host: ", host, " dropped: ", res.Message)
		return
	}
	if res.Received {
		m.window.RecordReceived(res.LatencyMs)
		if m.opts.Metrics != nil {
			m.opts.Metrics.ObserveReceived(res.LatencyMs)
		}
	}

	entry := m.results.Append(res.Message, res.Severity)
	m.surface.AppendLog(entry)
	m.refresh()
}

// refresh pushes statistics, chart and report out. Callers hold m.mu.
func (m *Monitor) refresh() {
	snapshot := m.window.Snapshot()
	avg, ok := m.window.AverageLatency()
	m.surface.SetStats(Stats{
		Sent:        snapshot.PacketsSent,
		Received:    snapshot.PacketsRecv,
		LossPercent: snapshot.PacketLoss,
		AvgLatency:  avg,
		HasAvg:      ok,
	})
	m.surface.Draw(graph.Project(m.window.Samples(), m.window.Capacity(), m.opts.Layout))

	if m.opts.Metrics != nil {
		m.opts.Metrics.ObserveWindow(snapshot)
	}
	m.target.IsUp(snapshot)

	if err := m.report().Write(m.opts.StatPath); err != nil {
		logrus.Debug("Failed to write statistics: ", err)
	}
}

func (m *Monitor) report() *statistics.Report {
	r := statistics.Build(m.host, m.running, m.opts.Check, m.window.Snapshot())
	m.target.Annotate(r)
	return r
}
