// Package ratelimit implements the fixed window request counter that guards
// the subscribe endpoint.
//
// The limiter is advisory abuse mitigation. With the memory store its state
// is lost on restart, so a client able to trigger restarts gets a fresh quota.
package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultWindow      = 60 * time.Second
	DefaultMaxRequests = 5
)

// Record is the per-identity counter state.
type Record struct {
	ResetAt  time.Time
	Identity string
	Count    int
}

// Store applies the fixed window algorithm for one identity atomically.
type Store interface {
	Consume(ctx context.Context, identity string, now time.Time, window time.Duration, maxRequests int) (limited bool, err error)
}

// Limiter decides whether a request from an identity must be rejected.
type Limiter struct {
	store       Store
	logger      *slog.Logger
	window      time.Duration
	maxRequests int
}

// New creates a limiter. Zero window or maxRequests select the defaults.
func New(store Store, window time.Duration, maxRequests int, logger *slog.Logger) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	return &Limiter{
		store:       store,
		logger:      logger,
		window:      window,
		maxRequests: maxRequests,
	}
}

// CheckAndConsume counts one request for identity and reports whether it is
// over quota. A failing store lets the request through.
func (l *Limiter) CheckAndConsume(ctx context.Context, identity string, now time.Time) bool {
	limited, err := l.store.Consume(ctx, identity, now, l.window, l.maxRequests)
	if err != nil {
		l.logger.Warn("Rate limit store unavailable, allowing request", "identity", identity, "error", err)
		return false
	}
	return limited
}

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration {
	return l.window
}

