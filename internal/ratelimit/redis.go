package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "shelfbot:ratelimit:"

// checkScript returns {limited, retryAfterMillis}
var checkScript = redis.NewScript(`
local count = tonumber(redis.call("HGET", KEYS[1], "count") or "0")
local start = tonumber(redis.call("HGET", KEYS[1], "start") or "0")
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
if start == 0 or now - start >= window then
  return {0, 0}
end
if count >= limit then
  return {1, start + window - now}
end
return {0, 0}
`)

var recordScript = redis.NewScript(`
local start = tonumber(redis.call("HGET", KEYS[1], "start") or "0")
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
if start == 0 or now - start >= window then
  redis.call("HSET", KEYS[1], "count", 1, "start", now)
else
  redis.call("HINCRBY", KEYS[1], "count", 1)
end
redis.call("PEXPIRE", KEYS[1], window * 2)
return 1
`)

// RedisOptions configures a RedisLimiter
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisLimiter is a Backend shared across processes through Redis.
// Buckets expire on their own after two idle windows, so Sweep is a no-op.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisLimiter creates a limiter. It does not contact the server; use Ping.
func NewRedisLimiter(opts RedisOptions, now func() time.Time) (*RedisLimiter, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if now == nil {
		now = time.Now
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &RedisLimiter{client: client, prefix: prefix, now: now}, nil
}

// Ping verifies the server is reachable
func (r *RedisLimiter) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

// Close releases the client
func (r *RedisLimiter) Close() error {
	return r.client.Close()
}

func (r *RedisLimiter) key(k ActorKey) string {
	return r.prefix + k.String()
}

func windowMillis(window time.Duration) int64 {
	ms := window.Milliseconds()
	if ms <= 0 {
		ms = 1000
	}
	return ms
}

// Check implements Backend
func (r *RedisLimiter) Check(ctx context.Context, key ActorKey, limit int, window time.Duration) (Decision, error) {
	if limit <= 0 {
		return Decision{}, nil
	}
	result, err := checkScript.Run(ctx, r.client, []string{r.key(key)},
		r.now().UnixMilli(), windowMillis(window), limit).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("failed to check %s: %w", key, err)
	}
	values, ok := result.([]any)
	if !ok || len(values) < 2 {
		return Decision{}, errors.New("unexpected redis rate limit response")
	}
	limited, _ := values[0].(int64)
	retryMillis, _ := values[1].(int64)
	return Decision{
		Limited:    limited == 1,
		RetryAfter: time.Duration(retryMillis) * time.Millisecond,
	}, nil
}

// Record implements Backend
func (r *RedisLimiter) Record(ctx context.Context, key ActorKey, window time.Duration) error {
	err := recordScript.Run(ctx, r.client, []string{r.key(key)},
		r.now().UnixMilli(), windowMillis(window)).Err()
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", key, err)
	}
	return nil
}

// Sweep implements Backend
func (r *RedisLimiter) Sweep(context.Context) (int, error) {
	return 0, nil
}
