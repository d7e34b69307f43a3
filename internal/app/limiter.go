package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"storefront/internal/domain"
	"storefront/internal/metrics"
)

const (
	DefaultMaxLoginAttempts = 5
	DefaultLoginWindow      = 300 * time.Second
)

// releaseTimeout bounds a release whose request context may already be
// done.
const releaseTimeout = 2 * time.Second

// LoginLimiter blocks an email after too many failed logins inside the
// window. Every verification first reserves an attempt, so concurrent
// requests cannot all slip past the threshold. A failed verification keeps
// its reservation, a success clears the count, and any other outcome
// releases it. The window restarts on every reservation.
type LoginLimiter struct {
	counter     domain.AttemptCounter
	maxAttempts int64
	window      time.Duration
	log         zerolog.Logger
}

// NewLoginLimiter creates a limiter. Non-positive values select the
// defaults.
func NewLoginLimiter(counter domain.AttemptCounter, maxAttempts int, window time.Duration, log zerolog.Logger) *LoginLimiter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxLoginAttempts
	}
	if window <= 0 {
		window = DefaultLoginWindow
	}
	return &LoginLimiter{
		counter:     counter,
		maxAttempts: int64(maxAttempts),
		window:      window,
		log:         log,
	}
}

func attemptKey(email string) string {
	return "login_attempts:" + email
}

// Acquire reserves one login attempt for email and reports false once
// the threshold is reached. An unreachable counter never blocks.
func (l *LoginLimiter) Acquire(ctx context.Context, email string) bool {
	n, ok, err := l.counter.Reserve(ctx, attemptKey(email), l.maxAttempts, l.window)
	if err != nil {
		metrics.CacheErrors.WithLabelValues("attempts").Inc()
		l.log.Warn().Err(err).Msg("attempt counter unavailable, allowing login")
		return true
	}
	l.log.Debug().Int64("attempts", n).Bool("allowed", ok).Msg("login attempt reserved")
	return ok
}

// Release gives back an attempt whose verification neither failed nor
// succeeded.
func (l *LoginLimiter) Release(ctx context.Context, email string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	if err := l.counter.Release(ctx, attemptKey(email)); err != nil {
		metrics.CacheErrors.WithLabelValues("attempts").Inc()
		l.log.Warn().Err(err).Msg("failed to release login attempt")
	}
}

// Reset clears the attempt count for email.
func (l *LoginLimiter) Reset(ctx context.Context, email string) {
	if err := l.counter.Reset(ctx, attemptKey(email)); err != nil {
		metrics.CacheErrors.WithLabelValues("attempts").Inc()
		l.log.Warn().Err(err).Msg("failed to reset login attempts")
	}
}
