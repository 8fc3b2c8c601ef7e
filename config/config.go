package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	DefaultInterval    = 2 * time.Second
	DefaultTimeout     = 5 * time.Second
	DefaultCapacity    = 20
	DefaultLogCapacity = 50
	DefaultKind        = "http"
)

// Load reads a JSON configuration file and fills unset fields with defaults.
func Load(path string) (cfg *Config, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	cfg = Defaults()
	err = json.Unmarshal(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	cfg.normalize()

	return cfg, cfg.Validate()
}

// Defaults returns the configuration used when no file is given.
func Defaults() *Config {
	return &Config{
		Check: Check{
			Kind:     DefaultKind,
			Interval: Interval{Duration: DefaultInterval},
			Timeout:  Interval{Duration: DefaultTimeout},
		},
		Capacity:    DefaultCapacity,
		LogCapacity: DefaultLogCapacity,
		Chart:       Chart{Width: 800, Height: 300},
		LogLevel:    "info",
		QuickHosts:  []string{"google.com", "cloudflare.com", "1.1.1.1", "8.8.8.8"},
	}
}

type Config struct {
	Host        string   `json:"host"`
	Check       Check    `json:"check"`
	Capacity    int      `json:"capacity"`
	LogCapacity int      `json:"log_capacity"`
	StatPath    string   `json:"stat_path"`
	Chart       Chart    `json:"chart"`
	Metrics     string   `json:"metrics_listen"`
	LogLevel    string   `json:"log_level"`
	QuickHosts  []string `json:"quick_hosts"`
}

type Check struct {
	Kind          string   `json:"kind"`
	Interface     string   `json:"interface"`
	Interval      Interval `json:"interval"`
	Timeout       Interval `json:"timeout"`
	RTTThreshold  Interval `json:"rtt_threshold"`
	LossThreshold float64  `json:"loss_threshold"`
}

type Chart struct {
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (c *Config) normalize() {
	c.Host = strings.TrimSpace(c.Host)
	c.Check.Kind = strings.ToLower(strings.TrimSpace(c.Check.Kind))
	if c.Check.Kind == "" {
		c.Check.Kind = DefaultKind
	}
	if c.Check.Interval.Duration == 0 {
		c.Check.Interval.Duration = DefaultInterval
	}
	if c.Check.Timeout.Duration == 0 {
		c.Check.Timeout.Duration = DefaultTimeout
	}
	if c.Capacity == 0 {
		c.Capacity = DefaultCapacity
	}
	if c.LogCapacity == 0 {
		c.LogCapacity = DefaultLogCapacity
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch c.Check.Kind {
	case "http", "https", "tcp", "icmp", "udp":
	default:
		return fmt.Errorf("unsupported check kind %q", c.Check.Kind)
	}
	if c.Check.Interval.Duration < 0 || c.Check.Timeout.Duration < 0 {
		return errors.New("check interval and timeout must be positive")
	}
	if c.Capacity < 1 {
		return errors.New("capacity must be at least 1")
	}
	if c.LogCapacity < 1 {
		return errors.New("log_capacity must be at least 1")
	}
	if c.Check.LossThreshold < 0 || c.Check.LossThreshold > 100 {
		return errors.New("loss_threshold must be within 0-100")
	}
	return nil
}

type Interval struct {
	time.Duration
}

func (d *Interval) UnmarshalJSON(data []byte) (err error) {
	var pstr string
	err = json.Unmarshal(data, &pstr)
	if err != nil {
		return err
	}
	d.Duration, err = time.ParseDuration(pstr)
	return
}

func (d *Interval) MarshalJSON() (data []byte, err error) {
	s := d.Duration.String()
	data, err = json.Marshal(s)
	return
}
