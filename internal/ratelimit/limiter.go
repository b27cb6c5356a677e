// Package ratelimit throttles unauthenticated free-tier usage with a
// per-identity counter in the key-value store. Premium sessions bypass
// this package entirely.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"smartfile/internal/store"
)

const counterPrefix = "limit:"

// Defaults match the free tier: five actions per rolling hour.
const (
	DefaultCeiling = 5
	DefaultWindow  = time.Hour
)

// Decision is the outcome of a rate-limit check.
type Decision struct {
	Allowed   bool
	Remaining int
}

// Limiter counts free-tier actions per identity within a fixed window.
// The identity is an opaque string; deriving it (source address or
// client fingerprint) is the caller's concern.
type Limiter struct {
	store   store.Store
	logger  *slog.Logger
	ceiling int
	window  time.Duration
}

type Option func(*Limiter)

// WithCeiling overrides the per-window action ceiling.
func WithCeiling(n int) Option {
	return func(l *Limiter) { l.ceiling = n }
}

// WithWindow overrides the rolling window length.
func WithWindow(d time.Duration) Option {
	return func(l *Limiter) { l.window = d }
}

func NewLimiter(s store.Store, logger *slog.Logger, opts ...Option) *Limiter {
	l := &Limiter{
		store:   s,
		logger:  logger.With(slog.String("component", "rate_limiter")),
		ceiling: DefaultCeiling,
		window:  DefaultWindow,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Ceiling returns the configured per-window ceiling.
func (l *Limiter) Ceiling() int { return l.ceiling }

// CheckAndIncrement consumes one action for identity if the ceiling has
// not been reached. A rejected call does not increment, so a capped
// identity cannot push its own window forward. The window TTL is set by
// the store only when the counter is created.
func (l *Limiter) CheckAndIncrement(ctx context.Context, identity string) (Decision, error) {
	key := counterPrefix + identity

	count, err := l.current(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	if count >= int64(l.ceiling) {
		l.logger.InfoContext(ctx, "free tier limit reached",
			slog.Int64("count", count),
			slog.Int("ceiling", l.ceiling))
		return Decision{Allowed: false, Remaining: 0}, nil
	}

	count, err = l.store.Increment(ctx, key, l.window)
	if err != nil {
		return Decision{}, fmt.Errorf("increment rate counter: %w", err)
	}

	remaining := l.ceiling - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: true, Remaining: remaining}, nil
}

func (l *Limiter) current(ctx context.Context, key string) (int64, error) {
	raw, err := l.store.Get(ctx, key)
	if errors.Is(err, store.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read rate counter: %w", err)
	}
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode rate counter: %w", err)
	}
	return count, nil
}
