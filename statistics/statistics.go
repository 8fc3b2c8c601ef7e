package statistics

import (
	"encoding/json"
	"os"
	"time"

	"github.com/thetooth/netprobe/config"
)

// Snapshot represent the stats of the sample window at a single point in time
type Snapshot struct {
	PacketsSent int
	PacketsRecv int

	// PacketLoss is the percentage of probes without a reply.
	PacketLoss float64

	// Samples is the number of latencies currently held by the window.
	Samples int

	MinRtt    time.Duration
	MaxRtt    time.Duration
	AvgRtt    time.Duration
	StdDevRtt time.Duration
	LastRTT   time.Duration
}

type Report struct {
	Host        string       `json:"host"`
	Running     bool         `json:"running"`
	Check       config.Check `json:"check"`
	Operational bool         `json:"operational"`
	LastChange  int          `json:"last_change"`
	FailCount   int          `json:"fail_count"`

	SuccessCount int `json:"success_count"`

	PacketsRecv int             `json:"packets_recv"`
	PacketsSent int             `json:"packets_sent"`
	PacketLoss  float64         `json:"packet_loss"`
	Samples     int             `json:"samples"`
	MinRtt      config.Interval `json:"min_rtt"`
	MaxRtt      config.Interval `json:"max_rtt"`
	AvgRtt      config.Interval `json:"avg_rtt"`
	StdDevRtt   config.Interval `json:"std_dev_rtt"`
	LastRTT     config.Interval `json:"last_rtt"`
}

// Build folds a window snapshot into the report written to the statistics file
func Build(host string, running bool, check config.Check, s Snapshot) *Report {
	return &Report{
		Host:    host,
		Running: running,
		Check:   check,

		PacketsRecv: s.PacketsRecv,
		PacketsSent: s.PacketsSent,
		PacketLoss:  s.PacketLoss,
		Samples:     s.Samples,
		MinRtt:      config.Interval{Duration: s.MinRtt},
		MaxRtt:      config.Interval{Duration: s.MaxRtt},
		AvgRtt:      config.Interval{Duration: s.AvgRtt},
		StdDevRtt:   config.Interval{Duration: s.StdDevRtt},
		LastRTT:     config.Interval{Duration: s.LastRTT},
	}
}

// Write stores the report as JSON, an empty path disables it.
func (r *Report) Write(path string) error {
	if path == "" {
		return nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
