package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_ValidConfig_ReturnsConfigStruct(t *testing.T) {
	t.Setenv("SHELFBOT_TEST_TOKEN", "test-token-12345")
	path := writeConfig(t, `
discord:
  token: "${SHELFBOT_TEST_TOKEN}"
  error_channel_id: "42"
  status:
    games: ["/help", "with reactions"]
    update_interval: 30s
interactive:
  ttl: 30m
rate_limit:
  backend: memory
  user_limit: 5
  window: 30s
storage:
  driver: sqlite
  path: /tmp/shelfbot-test.db
health:
  enabled: true
logging:
  level: debug
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "test-token-12345", config.Discord.Token)
	assert.Equal(t, "42", config.Discord.ErrorChannelID)
	assert.Equal(t, []string{"/help", "with reactions"}, config.Discord.Status.Games)
	assert.Equal(t, 30*time.Second, config.Discord.Status.UpdateIntervalDuration())
	assert.Equal(t, 30*time.Second, config.Discord.ReadyTimeoutDuration())
	assert.Equal(t, 30*time.Minute, config.Interactive.TTLDuration())
	assert.Equal(t, 100, config.Interactive.QueueSize)
	assert.Equal(t, 5, config.RateLimit.UserLimit)
	assert.Equal(t, 50, config.RateLimit.GroupLimit)
	assert.Equal(t, 30*time.Second, config.RateLimit.WindowDuration())
	assert.Equal(t, 5*time.Minute, config.RateLimit.SweepIntervalDuration())
	assert.Equal(t, "/tmp/shelfbot-test.db", config.Storage.Path)
	assert.Equal(t, DefaultHealthAddr, config.Health.Addr)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.True(t, config.Logging.EnableStdout)
}

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, "discord:\n  token: abc\n"))
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, config.RateLimit.Backend)
	assert.Equal(t, 10, config.RateLimit.UserLimit)
	assert.Equal(t, time.Minute, config.RateLimit.WindowDuration())
	assert.Equal(t, time.Hour, config.Interactive.TTLDuration())
	assert.Equal(t, DefaultStorageDriver, config.Storage.Driver)
	assert.NotContains(t, config.Storage.Path, "~")
	assert.False(t, config.Health.Enabled)
	assert.Empty(t, config.Health.Addr)
	assert.Equal(t, DefaultLogLevel, config.Logging.Level)
	assert.Equal(t, DefaultLogMaxBackups, config.Logging.MaxBackups)
}

func TestLoadConfig_MissingEnv(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "discord:\n  token: ${SHELFBOT_TEST_UNSET_VAR}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHELFBOT_TEST_UNSET_VAR")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "discord: [unclosed"))
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{name: "valid", modify: func(*Config) {}},
		{name: "missing token", modify: func(c *Config) { c.Discord.Token = "" }, wantErr: "discord.token"},
		{name: "bad ttl", modify: func(c *Config) { c.Interactive.TTL = "soon" }, wantErr: "interactive.ttl"},
		{name: "negative window", modify: func(c *Config) { c.RateLimit.Window = "-1s" }, wantErr: "rate_limit.window must be positive"},
		{name: "negative queue", modify: func(c *Config) { c.Interactive.QueueSize = -1 }, wantErr: "queue_size"},
		{name: "unknown backend", modify: func(c *Config) { c.RateLimit.Backend = "etcd" }, wantErr: "unsupported rate_limit.backend"},
		{name: "redis without addr", modify: func(c *Config) { c.RateLimit.Backend = BackendRedis }, wantErr: "rate_limit.redis.addr"},
		{name: "redis with addr", modify: func(c *Config) {
			c.RateLimit.Backend = BackendRedis
			c.RateLimit.Redis.Addr = "localhost:6379"
		}},
		{name: "postgres without dsn", modify: func(c *Config) { c.Storage.Driver = "postgres" }, wantErr: "storage.dsn"},
		{name: "unknown driver", modify: func(c *Config) { c.Storage.Driver = "mysql" }, wantErr: "unsupported storage.driver"},
		{name: "presence too fast", modify: func(c *Config) {
			c.Discord.Status.Games = []string{"x"}
			c.Discord.Status.UpdateInterval = "1s"
		}, wantErr: "update_interval must be at least"},
		{name: "disabled limits kept", modify: func(c *Config) {
			c.RateLimit.UserLimit = -1
			c.RateLimit.GroupLimit = -1
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{Discord: DiscordConfig{Token: "token"}}
			tt.modify(config)
			err := validateConfig(config)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateConfig_KeepsDisabledLimits(t *testing.T) {
	config := &Config{Discord: DiscordConfig{Token: "token"}, RateLimit: RateLimitConfig{UserLimit: -1}}
	require.NoError(t, validateConfig(config))
	assert.Equal(t, -1, config.RateLimit.UserLimit)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandHome("~/data/x.db")
	require.NoError(t, err)
	assert.Equal(t, home+"/data/x.db", got)

	got, err = expandHome("/abs/x.db")
	require.NoError(t, err)
	assert.Equal(t, "/abs/x.db", got)
}

func TestMaskedToken(t *testing.T) {
	c := &Config{Discord: DiscordConfig{Token: "abcdefghijklmnop"}}
	assert.Equal(t, "abcd***mnop", c.MaskedToken())

	c.Discord.Token = "short"
	assert.Equal(t, "***", c.MaskedToken())
}

func TestLoggerConfig(t *testing.T) {
	lc := LoggingConfig{Level: "warn", File: "/tmp/x.log", MaxSize: 1, Compress: true}.LoggerConfig()
	assert.Equal(t, "warn", lc.Level)
	assert.Equal(t, "/tmp/x.log", lc.File)
	assert.True(t, lc.Compress)
}
