package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Throttle limits repeated failed logins per email.
type Throttle interface {
	Allowed(ctx context.Context, email string) (bool, error)
	Fail(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

// LoginThrottle counts failed logins in Redis. Counters expire after the
// lockout window measured from the first failure.
type LoginThrottle struct {
	client      *redis.Client
	maxFailures int
	window      time.Duration
}

// NewLoginThrottle constructs a LoginThrottle.
func NewLoginThrottle(client *redis.Client, maxFailures int, window time.Duration) *LoginThrottle {
	return &LoginThrottle{client: client, maxFailures: maxFailures, window: window}
}

// Allowed reports whether email may attempt another login.
func (t *LoginThrottle) Allowed(ctx context.Context, email string) (bool, error) {
	if t == nil || t.client == nil || t.maxFailures <= 0 {
		return true, nil
	}
	n, err := t.client.Get(ctx, t.key(email)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return true, nil
		}
		return true, fmt.Errorf("auth: throttle get: %w", err)
	}
	return n < t.maxFailures, nil
}

// Fail records a failed attempt for email.
func (t *LoginThrottle) Fail(ctx context.Context, email string) error {
	if t == nil || t.client == nil || t.maxFailures <= 0 {
		return nil
	}
	key := t.key(email)
	n, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("auth: throttle incr: %w", err)
	}
	if n == 1 {
		if err := t.client.Expire(ctx, key, t.window).Err(); err != nil {
			return fmt.Errorf("auth: throttle expire: %w", err)
		}
	}
	return nil
}

// Reset clears the failure counter for email.
func (t *LoginThrottle) Reset(ctx context.Context, email string) error {
	if t == nil || t.client == nil {
		return nil
	}
	if err := t.client.Del(ctx, t.key(email)).Err(); err != nil {
		return fmt.Errorf("auth: throttle reset: %w", err)
	}
	return nil
}

func (t *LoginThrottle) key(email string) string {
	sum := sha256.Sum256([]byte(normalizeEmail(email)))
	return "auth:login-failures:" + hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
