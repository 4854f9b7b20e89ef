// Package config loads the server configuration from defaults, an optional
// config file, and SYNTAXHELPER_ environment variables, in rising priority.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full server configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Data    DataConfig    `mapstructure:"data"`
	Search  SearchConfig  `mapstructure:"search"`
	Session SessionConfig `mapstructure:"session"`
	NATS    NATSConfig    `mapstructure:"nats"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DataConfig holds data directory paths.
type DataConfig struct {
	HBKDirectory string `mapstructure:"hbk_directory"`
}

// SearchConfig holds search engine settings.
type SearchConfig struct {
	MaxResults int `mapstructure:"max_results"`
}

// SessionConfig holds SSE session timings.
type SessionConfig struct {
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
}

// NATSConfig holds the optional NATS transport settings. An empty URL
// disables the transport.
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// Load reads the configuration. A config.yaml next to the binary or under
// /etc/syntaxhelper is honored when present; its absence is not an error.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("data.hbk_directory", "data/hbk")
	v.SetDefault("search.max_results", 50)
	v.SetDefault("session.heartbeat_interval", 30*time.Second)
	v.SetDefault("session.idle_timeout", 5*time.Minute)
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject_prefix", "mcp")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/syntaxhelper")

	v.SetEnvPrefix("SYNTAXHELPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
