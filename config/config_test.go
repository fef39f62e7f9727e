package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/udp-sockets/dispatch"
	"github.com/wippyai/udp-sockets/errors"
	"github.com/wippyai/udp-sockets/socket"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, dispatch.DefaultWorkers, cfg.Dispatcher.Workers)
	assert.Equal(t, dispatch.DefaultEventBuffer, cfg.Dispatcher.EventBuffer)
	assert.Equal(t, socket.TypeUDP4, cfg.Socket.Type)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad(t *testing.T) {
	data := `
dispatcher:
  workers: 4
socket:
  type: udp6
  reuse_address: true
  multicast_ttl: 8
  multicast_loopback: false
logging:
  level: debug
  development: true
metrics:
  enabled: true
  listen: ":9100"
`
	path := filepath.Join(t.TempDir(), "udpctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Dispatcher.Workers)
	assert.Equal(t, dispatch.DefaultEventBuffer, cfg.Dispatcher.EventBuffer, "unset keys keep defaults")
	assert.Equal(t, socket.TypeUDP6, cfg.Socket.Type)
	assert.True(t, cfg.Socket.ReuseAddress)
	assert.Equal(t, 8, cfg.Socket.MulticastTTL)
	require.NotNil(t, cfg.Socket.MulticastLoopback)
	assert.False(t, *cfg.Socket.MulticastLoopback)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9100", cfg.Metrics.Listen)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad yaml", "dispatcher: [1, 2"},
		{"zero workers", "dispatcher:\n  workers: 0\n"},
		{"negative buffer", "dispatcher:\n  event_buffer: -1\n"},
		{"zero buffer", "dispatcher:\n  event_buffer: 0\n"},
		{"bad socket type", "socket:\n  type: tcp\n"},
		{"bad ttl", "socket:\n  multicast_ttl: 300\n"},
		{"bad level", "logging:\n  level: loud\n"},
		{"bad listen", "metrics:\n  enabled: true\n  listen: nope\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.ErrorIs(t, err, errors.ErrInvalidConfig)
		})
	}
}

func TestNewLogger(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "warn"

	l, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel), "debug is disabled at warn")

	cfg.Logging.Development = true
	l, err = cfg.NewLogger()
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestDispatchOptions(t *testing.T) {
	cfg := Default()
	cfg.Dispatcher.Workers = 3
	cfg.Metrics.Enabled = true

	reg := prometheus.NewRegistry()
	d, err := dispatch.New(cfg.DispatchOptions(nil, reg)...)
	require.NoError(t, err)
	defer d.Shutdown(context.Background())

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families, "metrics are registered when enabled")
}
