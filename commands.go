package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/thetooth/netprobe/config"
	"github.com/thetooth/netprobe/monitor"
)

const usage = "commands: start [host], stop, toggle [host], clear, quick <n>, status, hosts, quit"

// handleCommand runs one console command against the monitor and reports
// whether the program should exit.
func handleCommand(out io.Writer, m *monitor.Monitor, cfg *config.Config, line string) (quit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	arg := strings.Join(fields[1:], " ")
	if arg == "" {
		arg = cfg.Host
		if h := m.Host(); h != "" {
			arg = h
		}
	}

	switch strings.ToLower(fields[0]) {
	case "start":
		startErr(m.Start(arg))
	case "stop":
		m.Stop()
	case "toggle":
		startErr(m.Toggle(arg))
	case "clear":
		m.Clear()
	case "quick":
		n, err := strconv.Atoi(strings.TrimSpace(strings.Join(fields[1:], "")))
		if err != nil || n < 1 || n > len(cfg.QuickHosts) {
			fmt.Fprintf(out, "* quick expects 1-%d\n", len(cfg.QuickHosts))
			return false
		}
		// Picking a host restarts the session against it.
		m.Stop()
		startErr(m.Start(cfg.QuickHosts[n-1]))
	case "hosts":
		for i, h := range cfg.QuickHosts {
			fmt.Fprintf(out, "  %d) %s\n", i+1, h)
		}
	case "status":
		r := m.Report()
		state := "idle"
		if r.Running {
			state = "running"
		}
		avg := "-"
		if r.Samples > 0 {
			avg = fmt.Sprintf("%dms", r.AvgRtt.Milliseconds())
		}
		fmt.Fprintf(out, "* %s %s sent=%d received=%d loss=%.1f%% avg=%s\n",
			state, r.Host, r.PacketsSent, r.PacketsRecv, r.PacketLoss, avg)
	case "quit", "exit":
		return true
	default:
		fmt.Fprintln(out, usage)
	}
	return false
}

// startErr logs a refused start. The monitor has already put the reason on
// the surface, so nothing more is printed.
func startErr(err error) {
	if err != nil {
		logrus.Debug("[ COMMAND ] start refused: ", err)
	}
}
