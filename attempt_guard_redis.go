package identity

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisAttemptGuard shares failure counters across instances through
// Redis, so an attacker cannot reset their budget by hitting a different
// replica. INCR+EXPIRE run in a pipeline, making the per-key increment
// atomic without client-side locking.
//
// On Redis errors the guard fails open: a broken counter store degrades
// brute-force protection, it does not take logins down with it.
type RedisAttemptGuard struct {
	client    *redis.Client
	threshold int
	window    time.Duration
	prefix    string
	logger    Logger
}

var _ AttemptGuard = (*RedisAttemptGuard)(nil)

// NewRedisAttemptGuard creates a Redis-backed guard. Non-positive
// threshold/window fall back to the defaults.
func NewRedisAttemptGuard(client *redis.Client, threshold int, window time.Duration) *RedisAttemptGuard {
	if threshold <= 0 {
		threshold = DefaultMaxLoginAttempts
	}
	if window <= 0 {
		window = DefaultAttemptWindow
	}

	return &RedisAttemptGuard{
		client:    client,
		threshold: threshold,
		window:    window,
		prefix:    "login_attempts",
		logger:    defLogger{},
	}
}

func (g *RedisAttemptGuard) WithLogger(logger Logger) *RedisAttemptGuard {
	if logger != nil {
		g.logger = logger
	}
	return g
}

// WithPrefix overrides the key namespace, mostly useful when several
// deployments share one Redis.
func (g *RedisAttemptGuard) WithPrefix(prefix string) *RedisAttemptGuard {
	if prefix != "" {
		g.prefix = prefix
	}
	return g
}

func (g *RedisAttemptGuard) key(key string) string {
	return g.prefix + ":" + key
}

// RecordFailure increments the counter for key and refreshes its idle
// expiry in a single pipeline.
func (g *RedisAttemptGuard) RecordFailure(ctx context.Context, key string) error {
	pipe := g.client.Pipeline()
	pipe.Incr(ctx, g.key(key))
	pipe.Expire(ctx, g.key(key), g.window)

	if _, err := pipe.Exec(ctx); err != nil {
		g.logger.Warn("attempt guard failed to record failure", "key", key, "error", err)
		return err
	}
	return nil
}

// RecordSuccess removes the counter for key unconditionally.
func (g *RedisAttemptGuard) RecordSuccess(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, g.key(key)).Err(); err != nil {
		g.logger.Warn("attempt guard failed to record success", "key", key, "error", err)
		return err
	}
	return nil
}

// IsBlocked reports whether key has reached the failure threshold. A Redis
// error reads as not blocked.
func (g *RedisAttemptGuard) IsBlocked(ctx context.Context, key string) bool {
	count, err := g.client.Get(ctx, g.key(key)).Int()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		g.logger.Warn("attempt guard read failed, failing open", "key", key, "error", err)
		return false
	}
	return count >= g.threshold
}
