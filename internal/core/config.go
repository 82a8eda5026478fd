// Package core wires the shelfbot engine together and manages its configuration.
//
// The core package connects the Discord gateway with the event dispatchers,
// the interactive message manager and command admission control. It handles:
//
//   - Configuration loading and validation (from YAML files)
//   - Storage and rate-limit backend selection
//   - Startup ordering and graceful shutdown
//
// # Configuration
//
// Configuration is loaded from a YAML file with the following main sections:
//
//   - discord: gateway token, error channel and presence
//   - interactive: trigger lifetime and reaction queue size
//   - rate_limit: per-user and per-server command budgets
//   - storage: guild settings database
//   - health: HTTP health endpoints
//   - logging: Log configuration
//
// # Example Configuration
//
//	discord:
//	  token: "${DISCORD_TOKEN}"
//	  status:
//	    games: ["/help"]
//	rate_limit:
//	  backend: memory
//	  user_limit: 10
//	  group_limit: 50
//	  window: 60s
//	storage:
//	  driver: sqlite
//	  path: "~/.shelfbot/shelfbot.db"
package core

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/keepmind9/shelfbot/pkg/constants"
	"gopkg.in/yaml.v3"
)

const (
	DefaultLogLevel      = "info"
	DefaultLogMaxBackups = 5

	DefaultStorageDriver = "sqlite"
	DefaultSQLitePath    = "~/.shelfbot/shelfbot.db"
	DefaultHealthAddr    = ":8080"

	BackendMemory = "memory"
	BackendRedis  = "redis"

	// MinPresenceInterval keeps presence updates under the gateway rate limit
	MinPresenceInterval = 5 * time.Second
)

// LoadConfig loads configuration from file and expands environment variables
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expandedData, err := expandEnv(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to expand environment variables: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// expandEnv replaces ${VAR_NAME} patterns with environment variable values
func expandEnv(input string) (string, error) {
	var missingVars []string

	result := os.Expand(input, func(key string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		missingVars = append(missingVars, key)
		return ""
	})

	if len(missingVars) > 0 {
		return "", fmt.Errorf("missing required environment variables: %s",
			strings.Join(missingVars, ", "))
	}

	return result, nil
}

// validateConfig fills in defaults and rejects inconsistent settings
func validateConfig(config *Config) error {
	if config.Discord.Token == "" {
		return fmt.Errorf("discord.token is required")
	}
	if err := defaultDuration(&config.Discord.ReadyTimeout, constants.DefaultReadyTimeout, "discord.ready_timeout"); err != nil {
		return err
	}
	if err := defaultDuration(&config.Discord.Status.UpdateInterval, constants.DefaultStatusUpdateInterval, "discord.status.update_interval"); err != nil {
		return err
	}
	if len(config.Discord.Status.Games) > 0 && config.Discord.Status.UpdateIntervalDuration() < MinPresenceInterval {
		return fmt.Errorf("discord.status.update_interval must be at least %v", MinPresenceInterval)
	}

	// Interactive messages
	if err := defaultDuration(&config.Interactive.TTL, constants.DefaultInteractiveTTL, "interactive.ttl"); err != nil {
		return err
	}
	if config.Interactive.QueueSize < 0 {
		return fmt.Errorf("interactive.queue_size cannot be negative (got %d)", config.Interactive.QueueSize)
	}
	if config.Interactive.QueueSize == 0 {
		config.Interactive.QueueSize = constants.ReactionQueueBufferSize
	}

	// Rate limiting
	rl := &config.RateLimit
	switch rl.Backend {
	case "":
		rl.Backend = BackendMemory
	case BackendMemory:
	case BackendRedis:
		if rl.Redis.Addr == "" {
			return fmt.Errorf("rate_limit.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unsupported rate_limit.backend: %s", rl.Backend)
	}
	if rl.UserLimit == 0 {
		rl.UserLimit = constants.DefaultUserCommandLimit
	}
	if rl.GroupLimit == 0 {
		rl.GroupLimit = constants.DefaultGuildCommandLimit
	}
	if err := defaultDuration(&rl.Window, constants.DefaultRateLimitWindow, "rate_limit.window"); err != nil {
		return err
	}
	if err := defaultDuration(&rl.SweepInterval, constants.DefaultRateLimitSweepInterval, "rate_limit.sweep_interval"); err != nil {
		return err
	}

	// Storage
	switch config.Storage.Driver {
	case "", DefaultStorageDriver:
		config.Storage.Driver = DefaultStorageDriver
		if config.Storage.Path == "" {
			config.Storage.Path = DefaultSQLitePath
		}
		path, err := expandHome(config.Storage.Path)
		if err != nil {
			return err
		}
		config.Storage.Path = path
	case "postgres":
		if config.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported storage.driver: %s", config.Storage.Driver)
	}

	if config.Health.Enabled && config.Health.Addr == "" {
		config.Health.Addr = DefaultHealthAddr
	}

	// Logging
	if config.Logging.Level == "" {
		config.Logging.Level = DefaultLogLevel
	}
	if config.Logging.MaxSize == 0 {
		config.Logging.MaxSize = constants.DefaultLogMaxSize
	}
	if config.Logging.MaxBackups == 0 {
		config.Logging.MaxBackups = DefaultLogMaxBackups
	}
	if config.Logging.MaxAge == 0 {
		config.Logging.MaxAge = constants.DefaultLogMaxAge
	}
	if config.Logging.File == "" {
		config.Logging.EnableStdout = true
	}

	return nil
}

// defaultDuration sets *value to def when empty, then checks it parses to a
// positive duration
func defaultDuration(value *string, def time.Duration, field string) error {
	if *value == "" {
		*value = def.String()
	}
	d, err := time.ParseDuration(*value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", field, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive (got %v)", field, d)
	}
	return nil
}

// expandHome expands ~ to user's home directory
func expandHome(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return home + path[1:], nil
	}
	return path, nil
}

// MaskedToken returns the token with its middle hidden, for display
func (c *Config) MaskedToken() string {
	token := c.Discord.Token
	if len(token) < constants.MinSecretLengthForMasking {
		return "***"
	}
	return token[:constants.SecretMaskPrefixLength] + "***" + token[len(token)-constants.SecretMaskSuffixLength:]
}
