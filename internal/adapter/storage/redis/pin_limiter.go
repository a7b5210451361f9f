package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// PINAttemptLimiter implements ports.AttemptLimiter with a fixed-window
// failure counter per key. The counter lives in Redis, so it survives
// process restarts and is shared across instances: restarting the service
// does not reopen a saturated window.
//
// Only failures are counted. A successful PIN check does not reset the
// window; a caller who fails maxAttempts times stays blocked until the
// window key expires.
type PINAttemptLimiter struct {
	client      *goredis.Client
	prefix      string
	maxAttempts int64
	window      time.Duration
}

// NewPINAttemptLimiter creates the limiter. maxAttempts is the number of
// failures tolerated per window before Blocked reports true.
func NewPINAttemptLimiter(client *goredis.Client, maxAttempts int64, window time.Duration) *PINAttemptLimiter {
	return &PINAttemptLimiter{
		client:      client,
		prefix:      "pinfail:",
		maxAttempts: maxAttempts,
		window:      window,
	}
}

func (l *PINAttemptLimiter) key(key string) string {
	windowID := time.Now().Unix() / int64(l.window.Seconds())
	return fmt.Sprintf("%s%s:%d", l.prefix, key, windowID)
}

// Blocked reports whether the key's current window is saturated.
func (l *PINAttemptLimiter) Blocked(ctx context.Context, key string) (bool, error) {
	count, err := l.client.Get(ctx, l.key(key)).Int64()
	if err != nil {
		if err == goredis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("redis pin limiter get: %w", err)
	}
	return count >= l.maxAttempts, nil
}

// RecordFailure increments the key's failure counter for the current window.
func (l *PINAttemptLimiter) RecordFailure(ctx context.Context, key string) error {
	redisKey := l.key(key)
	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return fmt.Errorf("redis pin limiter incr: %w", err)
	}
	if count == 1 {
		l.client.Expire(ctx, redisKey, l.window+time.Second)
	}
	return nil
}
