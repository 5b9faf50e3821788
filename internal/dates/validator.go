// Package dates enforces the admissible window for extracted transaction dates.
package dates

import (
	"fmt"
	"time"
)

// Clock supplies the current time. The orchestrator injects it so the window
// check is deterministic under test; nothing in this package reads the system
// clock directly.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real time.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant. Intended for tests.
type FixedClock struct {
	Instant time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return c.Instant }

const (
	// DefaultMaxAge tolerates delayed SMS delivery of up to a year.
	DefaultMaxAge = 365 * 24 * time.Hour
	// DefaultMaxSkew rejects any future-dated transaction.
	DefaultMaxSkew = 0 * time.Hour
)

// Validator checks an extracted date against the admissible window
// [now-MaxAge, now+MaxSkew]. Dates outside the window are rejected, never
// silently clamped, and a missing date is the caller's responsibility to
// reject before ever reaching the window check.
type Validator struct {
	clock   Clock
	maxAge  time.Duration
	maxSkew time.Duration
}

// NewValidator creates a validator with the given window bounds.
func NewValidator(clock Clock, maxAge, maxSkew time.Duration) (*Validator, error) {
	if clock == nil {
		return nil, fmt.Errorf("clock cannot be nil")
	}
	if maxAge < 0 {
		return nil, fmt.Errorf("max age cannot be negative, got %s", maxAge)
	}
	if maxSkew < 0 {
		return nil, fmt.Errorf("max skew cannot be negative, got %s", maxSkew)
	}
	return &Validator{clock: clock, maxAge: maxAge, maxSkew: maxSkew}, nil
}

// NewDefaultValidator creates a validator with the default window.
func NewDefaultValidator(clock Clock) *Validator {
	v, err := NewValidator(clock, DefaultMaxAge, DefaultMaxSkew)
	if err != nil {
		// Defaults are non-negative, so this cannot fail.
		panic(err)
	}
	return v
}

// Validate checks that date falls inside the admissible window. Comparison is
// at day granularity: a transaction dated today passes even when the message
// carries no time component.
func (v *Validator) Validate(date time.Time) error {
	now := v.clock.Now()

	earliest := truncateToDay(now.Add(-v.maxAge))
	latest := truncateToDay(now.Add(v.maxSkew))
	day := truncateToDay(date)

	if day.Before(earliest) {
		return fmt.Errorf("date %s is older than the admissible window (earliest %s)",
			day.Format("2006-01-02"), earliest.Format("2006-01-02"))
	}
	if day.After(latest) {
		return fmt.Errorf("date %s is in the future beyond the admissible window (latest %s)",
			day.Format("2006-01-02"), latest.Format("2006-01-02"))
	}
	return nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
