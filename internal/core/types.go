package core

import (
	"time"

	"github.com/keepmind9/shelfbot/internal/logger"
)

// Config represents the complete shelfbot configuration structure
type Config struct {
	Discord     DiscordConfig     `yaml:"discord"`
	Interactive InteractiveConfig `yaml:"interactive"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Storage     StorageConfig     `yaml:"storage"`
	Health      HealthConfig      `yaml:"health"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// DiscordConfig represents the gateway connection configuration
type DiscordConfig struct {
	Token          string       `yaml:"token"`
	ErrorChannelID string       `yaml:"error_channel_id"` // Channel that receives handler fault notices (optional)
	ReadyTimeout   string       `yaml:"ready_timeout"`    // How long startup waits for the ready event (default: 30s)
	Status         StatusConfig `yaml:"status"`
}

// StatusConfig represents the rotating presence
type StatusConfig struct {
	Games          []string `yaml:"games"`
	UpdateInterval string   `yaml:"update_interval"` // default: 60s
}

// InteractiveConfig represents interactive message settings
type InteractiveConfig struct {
	TTL       string `yaml:"ttl"`        // How long triggers stay live after publishing (default: 1h)
	QueueSize int    `yaml:"queue_size"` // Outbound reaction queue buffer (default: 100)
}

// RateLimitConfig represents command admission settings
type RateLimitConfig struct {
	Backend       string      `yaml:"backend"` // memory or redis
	Redis         RedisConfig `yaml:"redis"`
	UserLimit     int         `yaml:"user_limit"`  // Negative disables the user budget
	GroupLimit    int         `yaml:"group_limit"` // Negative disables the server budget
	Window        string      `yaml:"window"`
	SweepInterval string      `yaml:"sweep_interval"`
}

// RedisConfig represents the shared rate-limit store
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// StorageConfig represents guild settings persistence
type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite or postgres
	Path   string `yaml:"path"`   // sqlite database file
	DSN    string `yaml:"dsn"`    // postgres connection string
}

// HealthConfig represents the health HTTP server
type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`         // debug, info, warn, error
	File         string `yaml:"file"`          // Log file path
	MaxSize      int    `yaml:"max_size"`      // Single file max size in MB (default: 100)
	MaxBackups   int    `yaml:"max_backups"`   // Number of backups to keep (default: 5)
	MaxAge       int    `yaml:"max_age"`       // Maximum days to retain (default: 30)
	Compress     bool   `yaml:"compress"`      // Whether to compress old logs
	EnableStdout bool   `yaml:"enable_stdout"` // Also output to stdout (forced on without a file)
}

// LoggerConfig converts to the logger package configuration
func (c LoggingConfig) LoggerConfig() logger.Config {
	return logger.Config{
		Level:        c.Level,
		File:         c.File,
		MaxSize:      c.MaxSize,
		MaxBackups:   c.MaxBackups,
		MaxAge:       c.MaxAge,
		Compress:     c.Compress,
		EnableStdout: c.EnableStdout,
	}
}

// duration parses a value already checked by validateConfig
func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// ReadyTimeoutDuration returns the parsed ready timeout
func (c DiscordConfig) ReadyTimeoutDuration() time.Duration { return duration(c.ReadyTimeout) }

// UpdateIntervalDuration returns the parsed presence interval
func (c StatusConfig) UpdateIntervalDuration() time.Duration { return duration(c.UpdateInterval) }

// TTLDuration returns the parsed interactive TTL
func (c InteractiveConfig) TTLDuration() time.Duration { return duration(c.TTL) }

// WindowDuration returns the parsed rate-limit window
func (c RateLimitConfig) WindowDuration() time.Duration { return duration(c.Window) }

// SweepIntervalDuration returns the parsed sweep interval
func (c RateLimitConfig) SweepIntervalDuration() time.Duration { return duration(c.SweepInterval) }
