// Package retry implements the exponential-backoff-on-transient-error
// pattern for operations that can fail spuriously. Its one caller is
// backend.NewTmux, which retries the initial session creation while the
// multiplexer server is still starting up.
package retry

import "time"

// Policy describes a bounded exponential backoff.
type Policy struct {
	InitialDelay time.Duration
	MaxAttempts  int
	Multiplier   float64
	Sleep        func(time.Duration) // overridable in tests
}

// DefaultPolicy mirrors the cadence used for git lock contention in the
// pack this supervisor was adapted from: a handful of fast retries rather
// than a long, user-visible stall.
func DefaultPolicy() Policy {
	return Policy{
		InitialDelay: 200 * time.Millisecond,
		MaxAttempts:  6,
		Multiplier:   2,
		Sleep:        time.Sleep,
	}
}

// Do runs fn, retrying while isTransient(err) is true, up to MaxAttempts,
// with exponential backoff between attempts. The final error (transient or
// not) is returned if every attempt fails.
func (p Policy) Do(isTransient func(error) bool, fn func() error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	delay := p.InitialDelay
	var err error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == p.MaxAttempts-1 || !isTransient(err) {
			return err
		}
		sleep(delay)
		delay = time.Duration(float64(delay) * p.Multiplier)
	}
	return err
}
