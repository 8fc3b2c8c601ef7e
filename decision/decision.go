package decision

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/thetooth/netprobe/config"
	"github.com/thetooth/netprobe/statistics"
)

// Target tracks whether the probed host currently meets the configured loss
// and latency thresholds.
type Target struct {
	sync.RWMutex
	Cfg config.Check

	Name         string
	Operational  bool
	FailCount    int
	SuccessCount int
	LastChange   time.Time
}

func NewTarget(name string, cfg config.Check) *Target {
	return &Target{Cfg: cfg, Name: name, Operational: true, LastChange: time.Now()}
}

// IsUp reports whether loss and average RTT are within thresholds. A zero
// threshold disables that check. Transitions are logged and counted.
func (t *Target) IsUp(s statistics.Snapshot) bool {
	t.Lock()
	defer t.Unlock()

	if exceeded(t.Cfg, s) {
		if t.Operational {
			logrus.Warn("[ TARGET_FAIL ] target: ", t.Name, " loss: ", s.PacketLoss, "% avg: ", s.AvgRtt)
			t.LastChange = time.Now()
			t.FailCount++
		}
		t.Operational = false
		return false
	}

	if !t.Operational {
		logrus.Info("[ TARGET_SUCCESS ] target: ", t.Name)
		t.LastChange = time.Now()
		t.SuccessCount++
	}
	t.Operational = true

	return true
}

// Reset marks the target operational again without counting a transition.
func (t *Target) Reset(name string) {
	t.Lock()
	defer t.Unlock()

	t.Name = name
	t.Operational = true
	t.LastChange = time.Now()
}

func exceeded(cfg config.Check, s statistics.Snapshot) bool {
	if s.PacketsSent == 0 {
		return false
	}
	if cfg.LossThreshold > 0 && s.PacketLoss > cfg.LossThreshold {
		return true
	}
	if cfg.RTTThreshold.Duration > 0 && s.AvgRtt > cfg.RTTThreshold.Duration {
		return true
	}
	return false
}

// Annotate copies the target state into a statistics report.
func (t *Target) Annotate(r *statistics.Report) {
	t.RLock()
	defer t.RUnlock()

	r.Operational = t.Operational
	r.LastChange = int(t.LastChange.Unix())
	r.FailCount = t.FailCount
	r.SuccessCount = t.SuccessCount
}
