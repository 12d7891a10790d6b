package security

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrTooManyAttempts signals that the caller exhausted the login attempts for
// the current window.
var ErrTooManyAttempts = errors.New("too many login attempts")

const loginAttemptPrefix = "login_attempts:"

// LoginLimiter throttles failed logins per email over a fixed window,
// backed by Redis INCR with a window-scoped expiry. Redis outages fail open.
type LoginLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	logger *zap.Logger
}

// NewLoginLimiter builds the limiter. A nil client disables throttling.
func NewLoginLimiter(client *redis.Client, limit int, window time.Duration, logger *zap.Logger) *LoginLimiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &LoginLimiter{client: client, limit: limit, window: window, logger: logger}
}

// Allow records an attempt and reports whether the caller may proceed.
func (l *LoginLimiter) Allow(ctx context.Context, email string) error {
	if l == nil || l.client == nil {
		return nil
	}

	key := loginAttemptPrefix + strings.ToLower(strings.TrimSpace(email))
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		l.warn("login limiter unavailable", err)
		return nil
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			l.warn("login limiter expire failed", err)
		}
	}
	if count > int64(l.limit) {
		return ErrTooManyAttempts
	}
	return nil
}

// Reset clears the attempt counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, email string) {
	if l == nil || l.client == nil {
		return
	}
	key := loginAttemptPrefix + strings.ToLower(strings.TrimSpace(email))
	if err := l.client.Del(ctx, key).Err(); err != nil {
		l.warn("login limiter reset failed", err)
	}
}

func (l *LoginLimiter) warn(msg string, err error) {
	if l.logger != nil {
		l.logger.Warn(msg, zap.Error(err))
	}
}
