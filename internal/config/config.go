// Package config provides configuration management for the site backend.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the process.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Monitor MonitorConfig `mapstructure:"monitor"`
	Chat    ChatConfig    `mapstructure:"chat"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// MonitorConfig holds health monitor configuration.
type MonitorConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	AutoRefresh  bool          `mapstructure:"auto_refresh"`
	// BaseURL is the origin real probes fetch pages from. Empty means this server.
	BaseURL      string `mapstructure:"base_url"`
	ServicesFile string `mapstructure:"services_file"`
}

// ChatConfig holds chat widget configuration.
type ChatConfig struct {
	MinDelay          time.Duration `mapstructure:"min_delay"`
	MaxDelay          time.Duration `mapstructure:"max_delay"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	BurstSize         int           `mapstructure:"burst_size"`
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("STARTUPOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Monitor.BaseURL == "" {
		cfg.Monitor.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 43565)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "0s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("monitor.interval", "30s")
	v.SetDefault("monitor.probe_timeout", "10s")
	v.SetDefault("monitor.auto_refresh", true)
	v.SetDefault("monitor.base_url", "")
	v.SetDefault("monitor.services_file", "")

	v.SetDefault("chat.min_delay", "800ms")
	v.SetDefault("chat.max_delay", "1200ms")
	v.SetDefault("chat.requests_per_second", 5.0)
	v.SetDefault("chat.burst_size", 10)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Monitor.Interval <= 0 {
		return errors.New("monitor interval must be positive")
	}
	if c.Monitor.ProbeTimeout <= 0 {
		return errors.New("monitor probe timeout must be positive")
	}
	if c.Chat.MinDelay < 0 || c.Chat.MaxDelay < c.Chat.MinDelay {
		return fmt.Errorf("invalid chat delay range [%s, %s)", c.Chat.MinDelay, c.Chat.MaxDelay)
	}
	if c.Chat.RequestsPerSecond <= 0 {
		return errors.New("chat requests per second must be positive")
	}
	if c.Chat.BurstSize <= 0 {
		return errors.New("chat burst size must be positive")
	}
	if c.Metrics.Enabled {
		if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
			return fmt.Errorf("invalid metrics port: %d", c.Metrics.Port)
		}
		if c.Metrics.Port == c.Server.Port {
			return fmt.Errorf("metrics port %d collides with server port", c.Metrics.Port)
		}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return nil
}
