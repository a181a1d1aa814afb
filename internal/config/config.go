package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	History HistoryConfig `mapstructure:"history"`
	Audit   AuditConfig   `mapstructure:"audit"`
	Stream  StreamConfig  `mapstructure:"stream"`
	Static  StaticConfig  `mapstructure:"static"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type HistoryConfig struct {
	Capacity int `mapstructure:"capacity"`
}

type AuditConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Path            string `mapstructure:"path"`
	Format          string `mapstructure:"format"` // json or yaml
	QueueSize       int    `mapstructure:"queue_size"`
	FlushIntervalMs int    `mapstructure:"flush_interval_ms"`
}

// FlushInterval returns the flush period, never less than one millisecond.
func (a AuditConfig) FlushInterval() time.Duration {
	if a.FlushIntervalMs < 1 {
		return time.Millisecond
	}
	return time.Duration(a.FlushIntervalMs) * time.Millisecond
}

type StreamConfig struct {
	SendTimeoutMs       int `mapstructure:"send_timeout_ms"`
	BufferSize          int `mapstructure:"buffer_size"`
	HeartbeatIntervalMs int `mapstructure:"heartbeat_interval_ms"`
}

// SendTimeout bounds a single delivery attempt to one subscriber.
func (s StreamConfig) SendTimeout() time.Duration {
	return time.Duration(s.SendTimeoutMs) * time.Millisecond
}

// HeartbeatInterval returns zero when heartbeats are disabled.
func (s StreamConfig) HeartbeatInterval() time.Duration {
	if s.HeartbeatIntervalMs <= 0 {
		return 0
	}
	return time.Duration(s.HeartbeatIntervalMs) * time.Millisecond
}

type StaticConfig struct {
	Dir string `mapstructure:"dir"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // auto, console or json
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("history.capacity", 50)
	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.path", "webhook_logs.log")
	v.SetDefault("audit.format", "json")
	v.SetDefault("audit.queue_size", 256)
	v.SetDefault("audit.flush_interval_ms", 200)
	v.SetDefault("stream.send_timeout_ms", 1000)
	v.SetDefault("stream.buffer_size", 16)
	v.SetDefault("stream.heartbeat_interval_ms", 15000)
	v.SetDefault("static.dir", "./public")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
}

// Load reads configuration into the global viper instance, which the CLI
// binds its flags to.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads app.yaml (optional), .env (optional) and the environment into v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	_ = godotenv.Load()

	if v.ConfigFileUsed() == "" {
		v.SetConfigName("app")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	SetDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// PORT is the conventional variable for the listen port.
	if err := v.BindEnv("server.port", "SERVER_PORT", "PORT"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.History.Capacity < 0 {
		return fmt.Errorf("invalid history.capacity %d: must be >= 0", c.History.Capacity)
	}
	switch c.Audit.Format {
	case "json", "yaml":
	default:
		return fmt.Errorf("invalid audit.format %q: expected json or yaml", c.Audit.Format)
	}
	if c.Audit.Enabled && c.Audit.Path == "" {
		return errors.New("audit.path is required when audit is enabled")
	}
	if c.Stream.SendTimeoutMs <= 0 {
		return fmt.Errorf("invalid stream.send_timeout_ms %d: must be > 0", c.Stream.SendTimeoutMs)
	}
	if c.Stream.BufferSize < 0 {
		return fmt.Errorf("invalid stream.buffer_size %d", c.Stream.BufferSize)
	}
	return nil
}
