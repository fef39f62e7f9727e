// Package config loads the YAML configuration shared by the udpctl binary
// and embedding applications.
package config

import (
	"fmt"
	"net"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/udp-sockets/dispatch"
	"github.com/wippyai/udp-sockets/errors"
	"github.com/wippyai/udp-sockets/socket"
)

// Config represents the complete configuration
type Config struct {
	Socket     socket.Options   `yaml:"socket"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
}

// DispatcherConfig sizes the worker pool and event stream
type DispatcherConfig struct {
	Workers     int `yaml:"workers"`
	EventBuffer int `yaml:"event_buffer"`
}

// LoggingConfig controls the zap logger
type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Listen  string `yaml:"listen"` // host:port for /metrics
	Enabled bool   `yaml:"enabled"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Dispatcher: DispatcherConfig{
			Workers:     dispatch.DefaultWorkers,
			EventBuffer: dispatch.DefaultEventBuffer,
		},
		Socket: socket.Options{
			Type:           socket.TypeUDP4,
			ReadBufferSize: socket.DefaultReadBufferSize,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Listen: "127.0.0.1:9464",
		},
	}
}

// Load reads path and applies it over Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.InvalidConfig("failed to read config file", err)
	}
	return Parse(data)
}

// Parse decodes YAML over Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.InvalidConfig("failed to parse config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if c.Dispatcher.Workers <= 0 {
		return errors.InvalidConfig(fmt.Sprintf("dispatcher.workers must be positive, got %d", c.Dispatcher.Workers), nil)
	}
	if c.Dispatcher.EventBuffer <= 0 {
		return errors.InvalidConfig(fmt.Sprintf("dispatcher.event_buffer must be positive, got %d", c.Dispatcher.EventBuffer), nil)
	}
	if err := c.Socket.Validate(); err != nil {
		return errors.InvalidConfig("socket", err)
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return errors.InvalidConfig("logging.level", err)
	}
	if c.Metrics.Enabled {
		if _, _, err := net.SplitHostPort(c.Metrics.Listen); err != nil {
			return errors.InvalidConfig("metrics.listen", err)
		}
	}
	return nil
}

// NewLogger builds a zap logger from the logging section.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, errors.InvalidConfig("logging.level", err)
	}

	zc := zap.NewProductionConfig()
	if c.Logging.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	l, err := zc.Build()
	if err != nil {
		return nil, errors.InvalidConfig("build logger", err)
	}
	return l, nil
}

// DispatchOptions converts the dispatcher section into dispatch options.
// reg is only used when metrics are enabled.
func (c *Config) DispatchOptions(logger *zap.Logger, reg prometheus.Registerer) []dispatch.Option {
	opts := []dispatch.Option{
		dispatch.WithWorkers(c.Dispatcher.Workers),
		dispatch.WithEventBuffer(c.Dispatcher.EventBuffer),
	}
	if logger != nil {
		opts = append(opts, dispatch.WithLogger(logger))
	}
	if c.Metrics.Enabled && reg != nil {
		opts = append(opts, dispatch.WithMetrics(reg))
	}
	return opts
}
