package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/user/quizcraft-go/config"
)

// Key prefixes keep the email and IP counters separate inside one store.
const (
	emailKeyPrefix = "email:"
	ipKeyPrefix    = "ip:"
)

// Decision is the outcome of a rate-limit check.
type Decision struct {
	Allowed bool
	// Reason is the user-facing denial message; empty when allowed.
	Reason string
	// RetryAfter is how long until the oldest counted attempt leaves the
	// window, i.e. when a retry could succeed.
	RetryAfter time.Duration
}

// Limiter enforces the signup guard's sliding-window limits: per normalized
// email and, separately, per client IP. Denials are advisory; the state
// behind them is approximate and may reset with the process.
type Limiter struct {
	store      AttemptStore
	window     time.Duration
	emailLimit int
	ipLimit    int

	// now is a seam for tests.
	now func() time.Time
}

// NewLimiter creates a Limiter over the given attempt store using the
// configured window and per-key limits.
func NewLimiter(store AttemptStore, cfg *config.GuardConfig) *Limiter {
	return &Limiter{
		store:      store,
		window:     cfg.Window,
		emailLimit: cfg.EmailLimit,
		ipLimit:    cfg.IPLimit,
		now:        time.Now,
	}
}

// Check decides whether a signup attempt for the email/IP pair may proceed.
// The email limit is evaluated first; either key reaching its limit inside
// the window denies the attempt. An "unknown" IP is counted like any other
// key, so lookup failures share one bucket.
func (l *Limiter) Check(ctx context.Context, email, ip string) (Decision, error) {
	since := l.now().Add(-l.window)

	count, oldest, ok, err := l.store.Window(ctx, emailKeyPrefix+NormalizeEmail(email), since)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit email window: %w", err)
	}
	if count >= l.emailLimit {
		return l.deny(oldest, ok), nil
	}

	count, oldest, ok, err = l.store.Window(ctx, ipKeyPrefix+ip, since)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit ip window: %w", err)
	}
	if count >= l.ipLimit {
		return l.deny(oldest, ok), nil
	}

	return Decision{Allowed: true}, nil
}

// Record appends the current timestamp under both the email and IP keys.
// Callers invoke it only after a create-account request was actually
// forwarded, so denied and invalid submissions never consume quota.
func (l *Limiter) Record(ctx context.Context, email, ip string) error {
	at := l.now()
	if err := l.store.Append(ctx, emailKeyPrefix+NormalizeEmail(email), at); err != nil {
		return fmt.Errorf("record email attempt: %w", err)
	}
	if err := l.store.Append(ctx, ipKeyPrefix+ip, at); err != nil {
		return fmt.Errorf("record ip attempt: %w", err)
	}
	return nil
}

// Prune discards attempts that have left the window.
func (l *Limiter) Prune(ctx context.Context) error {
	return l.store.Prune(ctx, l.now().Add(-l.window))
}

// Window reports the configured sliding window.
func (l *Limiter) Window() time.Duration {
	return l.window
}

func (l *Limiter) deny(oldest time.Time, ok bool) Decision {
	retryAfter := l.window
	if ok {
		retryAfter = oldest.Add(l.window).Sub(l.now())
		if retryAfter < 0 {
			retryAfter = 0
		}
	}
	minutes := int((retryAfter + time.Minute - 1) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return Decision{
		Allowed:    false,
		Reason:     fmt.Sprintf("Too many signup attempts. Please try again in %d minutes", minutes),
		RetryAfter: retryAfter,
	}
}
