package main

import (
	"bufio"
	"context"
	"flag"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/thetooth/netprobe/check"
	"github.com/thetooth/netprobe/config"
	"github.com/thetooth/netprobe/metrics"
	"github.com/thetooth/netprobe/monitor"
	"github.com/thetooth/netprobe/util"
)

var (
	path        string
	host        string
	kind        string
	statPath    string
	chartPath   string
	metricsAddr string
	verbose     bool
)

func main() {
	flag.StringVar(&path, "config", "", "Path to probe configuration")
	flag.StringVar(&host, "host", "", "Host to probe, overrides the configuration")
	flag.StringVar(&kind, "kind", "", "Probe kind: http, https, tcp, udp or icmp")
	flag.StringVar(&statPath, "stats", "", "Path to statistics file")
	flag.StringVar(&chartPath, "chart", "", "Path to latency chart PNG")
	flag.StringVar(&metricsAddr, "metrics", "", "Listen address for Prometheus metrics")
	flag.BoolVar(&verbose, "verbose", false, "Enable debug logging")
	flag.Parse()

	cfg := config.Defaults()
	if path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			logrus.Fatal("Unable to load configuration: ", err)
		}
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		logrus.Fatal("Unable to load configuration: ", err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	if verbose {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)

	prober, err := buildProber(cfg.Check)
	if err != nil {
		logrus.Fatal("Unable to set up probe: ", err)
	}

	var current atomic.Pointer[config.Config]
	current.Store(cfg)

	collector := metrics.NewCollector()
	opts := monitor.OptionsFromConfig(cfg)
	opts.Metrics = collector
	m := monitor.New(prober, monitor.NewConsoleSurface(os.Stdout, cfg.Chart.Path), opts)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Metrics != "" {
		g.Go(func() error {
			return collector.Serve(ctx, cfg.Metrics)
		})
	}

	if path != "" {
		g.Go(func() error {
			return config.Watch(ctx, path, func(next *config.Config) {
				applyFlags(next)
				reload(m, current.Load(), next)
				current.Store(next)
			})
		})
	}

	// Scanning stdin cannot be interrupted, so it stays outside the group.
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					// Keep probing when stdin is closed, e.g. running as a service.
					lines = nil
					continue
				}
				if quit := handleCommand(os.Stdout, m, current.Load(), line); quit {
					cancel()
					return nil
				}
			}
		}
	})

	if cfg.Host != "" {
		if err := m.Start(cfg.Host); err != nil {
			logrus.Warn(err)
		}
	}

	if err := g.Wait(); err != nil {
		logrus.Error(err)
	}

	logrus.Info("[ EXIT_CLEANUP ] host: ", m.Host())
	m.Stop()
	m.Wait()
}

func applyFlags(cfg *config.Config) {
	if host != "" {
		cfg.Host = host
	}
	if kind != "" {
		cfg.Check.Kind = kind
	}
	if statPath != "" {
		cfg.StatPath = statPath
	}
	if chartPath != "" {
		cfg.Chart.Path = chartPath
	}
	if metricsAddr != "" {
		cfg.Metrics = metricsAddr
	}
}

func buildProber(c config.Check) (check.Prober, error) {
	var src check.Source
	if c.Interface != "" {
		// Fail early on a missing interface; sources are picked per attempt.
		if _, err := util.BindIface(c.Interface); err != nil {
			return nil, err
		}
		src = util.Interface(c.Interface)
	}
	return check.NewProber(c.Kind, src)
}

// reload swaps the prober when the target or check changed. Other settings
// take effect on restart.
func reload(m *monitor.Monitor, prev, next *config.Config) {
	if prev.Host == next.Host && prev.Check.Kind == next.Check.Kind && prev.Check.Interface == next.Check.Interface {
		return
	}
	prober, err := buildProber(next.Check)
	if err != nil {
		logrus.Warn("[ CONFIG_RELOAD ] keeping previous probe: ", err)
		return
	}
	if err = m.SetProber(prober, next.Host); err != nil {
		logrus.Warn(err)
	}
}
