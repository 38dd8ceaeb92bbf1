package config

import (
	"errors"
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Terminal  TerminalConfig
	Stream    StreamConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port        string   `envconfig:"PORT" default:"8787"`
	Host        string   `envconfig:"HOST" default:"127.0.0.1"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// TerminalConfig holds session manager defaults.
type TerminalConfig struct {
	Shell       string `envconfig:"TERMINAL_SHELL"`
	WorkingDir  string `envconfig:"TERMINAL_CWD"`
	Cols        uint16 `envconfig:"TERMINAL_COLS" default:"80"`
	Rows        uint16 `envconfig:"TERMINAL_ROWS" default:"24"`
	MaxSessions int    `envconfig:"TERMINAL_MAX_SESSIONS" default:"32"`
	Backlog     int    `envconfig:"TERMINAL_BACKLOG" default:"512"`
}

// StreamConfig holds output fan-out configuration.
type StreamConfig struct {
	SubscriberBuffer int `envconfig:"STREAM_SUBSCRIBER_BUFFER" default:"256"`
	MaxEvents        int `envconfig:"STREAM_MAX_EVENTS" default:"4096"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8787",
			Host:        "127.0.0.1",
			CORSOrigins: []string{"*"},
		},
		Terminal: TerminalConfig{
			Cols:        80,
			Rows:        24,
			MaxSessions: 32,
			Backlog:     512,
		},
		Stream: StreamConfig{
			SubscriberBuffer: 256,
			MaxEvents:        4096,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Terminal.Cols == 0 || c.Terminal.Rows == 0 {
		errs = append(errs, errors.New("terminal size must be non-zero"))
	}
	if c.Terminal.MaxSessions < 0 {
		errs = append(errs, errors.New("TERMINAL_MAX_SESSIONS must not be negative"))
	}
	if c.Terminal.Backlog < 0 {
		errs = append(errs, errors.New("TERMINAL_BACKLOG must not be negative"))
	}
	if c.Stream.SubscriberBuffer <= 0 {
		errs = append(errs, errors.New("STREAM_SUBSCRIBER_BUFFER must be positive"))
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS must be positive when rate limiting is enabled"))
	}
	return errors.Join(errs...)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}
