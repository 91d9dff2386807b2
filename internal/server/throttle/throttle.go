// Package throttle slows down repeated failed logins for the same identifier.
// It never locks an identifier out: once the failure count reaches the
// threshold every further attempt is delayed before credentials are checked.
package throttle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/taskdesk/internal/logging"
)

const (
	DefaultThreshold = 5
	DefaultDelay     = 15 * time.Second
)

// Counter stores failure counts per identifier.
type Counter interface {
	Get(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// Throttle applies the delay policy on top of a Counter.
type Throttle struct {
	counter   Counter
	threshold int64
	delay     time.Duration
	sleep     func(time.Duration)
	log       logging.Logger
}

type Option func(*Throttle)

// WithSleeper replaces time.Sleep, mostly for tests.
func WithSleeper(fn func(time.Duration)) Option {
	return func(t *Throttle) { t.sleep = fn }
}

func WithLogger(l logging.Logger) Option {
	return func(t *Throttle) { t.log = l }
}

// New returns a Throttle. Non-positive threshold or delay fall back to the
// defaults.
func New(counter Counter, threshold int, delay time.Duration, opts ...Option) *Throttle {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	t := &Throttle{
		counter:   counter,
		threshold: int64(threshold),
		delay:     delay,
		sleep:     time.Sleep,
		log:       logging.NewNopLogger(),
	}
	for _, o := range opts {
		o(t)
	}
	t.log = t.log.With("module", "throttle")
	return t
}

// NormalizeIdentifier maps submitted emails to counter keys.
func NormalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// CheckAndMaybeDelay blocks for the configured delay when the identifier has
// already failed threshold times. The count is read before the current
// attempt is recorded, so the attempt after the fifth failure is the first
// one delayed. The sleep ignores ctx.
func (t *Throttle) CheckAndMaybeDelay(ctx context.Context, identifier string) error {
	key := NormalizeIdentifier(identifier)
	n, err := t.counter.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("throttle check: %w", err)
	}
	if n >= t.threshold {
		t.log.Warn(ctx, "delaying login attempt", "failures", n, "delay", t.delay.String())
		t.sleep(t.delay)
	}
	return nil
}

// RecordFailure counts one failed identity or credential check.
func (t *Throttle) RecordFailure(ctx context.Context, identifier string) error {
	if _, err := t.counter.Incr(ctx, NormalizeIdentifier(identifier)); err != nil {
		return fmt.Errorf("throttle record: %w", err)
	}
	return nil
}

// Reset clears the identifier's failures after a successful login.
func (t *Throttle) Reset(ctx context.Context, identifier string) error {
	if err := t.counter.Reset(ctx, NormalizeIdentifier(identifier)); err != nil {
		return fmt.Errorf("throttle reset: %w", err)
	}
	return nil
}

// Failures returns the current count for identifier.
func (t *Throttle) Failures(ctx context.Context, identifier string) (int64, error) {
	return t.counter.Get(ctx, NormalizeIdentifier(identifier))
}
