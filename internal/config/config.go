// Package config loads runtime configuration for the relay: defaults and
// environment overrides via viper, topped with the four positional CLI
// arguments the specification's wire interface requires.
package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`

	Threads        int   `mapstructure:"threads"`
	PingDurationMs int64 `mapstructure:"ping_duration_ms"`
	PingDuration   time.Duration
}

// ServerConfig contains network-level settings for the WebSocket listener.
type ServerConfig struct {
	Host             string  `mapstructure:"host"`
	Port             int     `mapstructure:"port"`
	AcceptRatePerSec float64 `mapstructure:"accept_rate_per_sec"`
	AcceptBurst      int     `mapstructure:"accept_burst"`
}

// MetricsConfig controls the /health and /metrics HTTP surface.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
	Endpoint   string `mapstructure:"endpoint"`
}

// LoggingConfig controls zap logger level/encoding.
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load reads defaults and PUBSUB_-prefixed environment overrides via
// viper, then layers the CLI's four positional arguments
// (address port threads ping-duration-ms) on top when present, clamping
// threads and ping-duration-ms to a minimum of 1 as required by §6. Pass
// nil or an empty slice to use defaults/environment only (e.g. in tests).
func Load(args []string) (Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.accept_rate_per_sec", 500.0)
	v.SetDefault("server.accept_burst", 200)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listen_addr", ":9095")
	v.SetDefault("metrics.endpoint", "/metrics")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)

	v.SetDefault("threads", 1)
	v.SetDefault("ping_duration_ms", 60000)

	v.SetConfigName("pubsub")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("PUBSUB")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config unmarshal: %w", err)
	}

	if len(args) > 0 {
		if len(args) != 4 {
			return Config{}, fmt.Errorf("usage: pubsub-server <address> <port> <threads> <ping-duration-ms>")
		}

		port, err := strconv.Atoi(args[1])
		if err != nil {
			return Config{}, fmt.Errorf("invalid port %q: %w", args[1], err)
		}
		threads, err := strconv.Atoi(args[2])
		if err != nil {
			return Config{}, fmt.Errorf("invalid threads %q: %w", args[2], err)
		}
		pingMs, err := strconv.ParseInt(args[3], 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ping-duration-ms %q: %w", args[3], err)
		}

		cfg.Server.Host = args[0]
		cfg.Server.Port = port
		cfg.Threads = threads
		cfg.PingDurationMs = pingMs
	}

	if cfg.Threads < 1 {
		cfg.Threads = 1
	}
	if cfg.PingDurationMs < 1 {
		cfg.PingDurationMs = 1
	}
	cfg.PingDuration = time.Duration(cfg.PingDurationMs) * time.Millisecond

	if cfg.Server.AcceptRatePerSec <= 0 {
		cfg.Server.AcceptRatePerSec = 500.0
	}
	if cfg.Server.AcceptBurst <= 0 {
		cfg.Server.AcceptBurst = 200
	}

	return cfg, nil
}
