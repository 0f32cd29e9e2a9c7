package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxAttempts = 5
	defaultLockout     = 15 * time.Minute
)

// LoginThrottle counts failed logins per identity in Redis.
// Key format: login:fail:<email>
//
// Every failure pushes the expiry out by the lockout window, so an identity
// stays blocked until it has been quiet for that long.
type LoginThrottle struct {
	client      *redis.Client
	maxAttempts int64
	lockout     time.Duration
}

// NewLoginThrottle creates a LoginThrottle wrapping the given Redis client.
// Non-positive values fall back to 5 attempts per 15 minutes.
func NewLoginThrottle(client *redis.Client, maxAttempts int, lockout time.Duration) *LoginThrottle {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if lockout <= 0 {
		lockout = defaultLockout
	}
	return &LoginThrottle{client: client, maxAttempts: int64(maxAttempts), lockout: lockout}
}

// Blocked reports whether the identity has used up its attempts.
func (t *LoginThrottle) Blocked(ctx context.Context, identity string) (bool, error) {
	n, err := t.client.Get(ctx, t.key(identity)).Int64()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("throttle check: %w", err)
	}
	return n >= t.maxAttempts, nil
}

// Fail records one failed attempt.
func (t *LoginThrottle) Fail(ctx context.Context, identity string) error {
	key := t.key(identity)
	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, t.lockout)
		return nil
	})
	if err != nil {
		return fmt.Errorf("throttle record: %w", err)
	}
	return nil
}

// Reset clears the failure count after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, identity string) error {
	return t.client.Del(ctx, t.key(identity)).Err()
}

func (t *LoginThrottle) key(identity string) string {
	return fmt.Sprintf("login:fail:%s", identity)
}
