package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/thetooth/netprobe/statistics"
)

// Collector mirrors the probe counters into Prometheus.
type Collector struct {
	registry *prometheus.Registry

	probesSent     prometheus.Counter
	probesReceived prometheus.Counter
	packetLoss     prometheus.Gauge
	avgLatency     prometheus.Gauge
	running        prometheus.Gauge
	latency        prometheus.Histogram
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		probesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netprobe_probes_sent_total",
			Help: "Total number of probes issued",
		}),
		probesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netprobe_probes_received_total",
			Help: "Total number of probes classified as received",
		}),
		packetLoss: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "netprobe_packet_loss_percent",
			Help: "Share of probes without a reply since the last clear",
		}),
		avgLatency: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "netprobe_average_latency_seconds",
			Help: "Mean latency over the sample window",
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "netprobe_running",
			Help: "1 while the probe scheduler is active",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "netprobe_latency_seconds",
			Help:    "Latency of received probes",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}

	c.registry.MustRegister(c.probesSent, c.probesReceived, c.packetLoss, c.avgLatency, c.running, c.latency)
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) ObserveSent() {
	c.probesSent.Inc()
}

func (c *Collector) ObserveReceived(latencyMs int) {
	c.probesReceived.Inc()
	c.latency.Observe((time.Duration(latencyMs) * time.Millisecond).Seconds())
}

// ObserveWindow updates the gauges from a window snapshot.
func (c *Collector) ObserveWindow(s statistics.Snapshot) {
	c.packetLoss.Set(s.PacketLoss)
	c.avgLatency.Set(s.AvgRtt.Seconds())
}

func (c *Collector) SetRunning(running bool) {
	if running {
		c.running.Set(1)
		return
	}
	c.running.Set(0)
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logrus.Info("[ METRICS ] listening on ", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
