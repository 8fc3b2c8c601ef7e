package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thetooth/netprobe/config"
	"github.com/thetooth/netprobe/monitor"
)

type instantProber struct{}

func (instantProber) Attempt(context.Context, string) error { return nil }

func TestHandleCommand(t *testing.T) {
	var out bytes.Buffer
	cfg := config.Defaults()
	cfg.Check.Interval.Duration = time.Hour
	m := monitor.New(instantProber{}, monitor.NewConsoleSurface(io.Discard, ""), monitor.OptionsFromConfig(cfg))

	assert.False(t, handleCommand(&out, m, cfg, "start"))
	assert.False(t, m.Running(), "no host configured")

	assert.False(t, handleCommand(&out, m, cfg, "start example.com"))
	require.True(t, m.Running())
	require.Eventually(t, func() bool { return m.Results().Len() == 1 }, 2*time.Second, 5*time.Millisecond)

	out.Reset()
	handleCommand(&out, m, cfg, "status")
	assert.True(t, strings.HasPrefix(out.String(), "* running example.com sent=1 received=1 loss=0.0%"), out.String())

	handleCommand(&out, m, cfg, "toggle")
	assert.False(t, m.Running())

	handleCommand(&out, m, cfg, "quick 2")
	assert.True(t, m.Running())
	assert.Equal(t, "cloudflare.com", m.Host())
	handleCommand(&out, m, cfg, "stop")
	m.Wait()

	out.Reset()
	handleCommand(&out, m, cfg, "quick 9")
	assert.Contains(t, out.String(), "quick expects 1-4")

	handleCommand(&out, m, cfg, "clear")
	assert.Zero(t, m.Window().Sent())

	out.Reset()
	handleCommand(&out, m, cfg, "bogus")
	assert.Contains(t, out.String(), usage)

	assert.True(t, handleCommand(&out, m, cfg, "quit"))
	assert.False(t, handleCommand(&out, m, cfg, "   "))
}

func TestStartWithoutHostReportsOnce(t *testing.T) {
	var out, console bytes.Buffer
	cfg := config.Defaults()
	m := monitor.New(instantProber{}, monitor.NewConsoleSurface(&console, ""), monitor.OptionsFromConfig(cfg))

	assert.False(t, handleCommand(&out, m, cfg, "start"))
	assert.False(t, handleCommand(&out, m, cfg, "toggle"))

	assert.False(t, m.Running())
	assert.Empty(t, out.String())
	assert.Equal(t, 2, strings.Count(console.String(), "* Please enter a host to ping\n"))
}
