// Package poll provides the one waiting primitive the crawler uses for
// asynchronous rendering: sample a value at a fixed interval until it has
// stopped changing.
package poll

import (
	"context"
	"time"
)

// Options bound a stability wait.
type Options struct {
	// Interval between samples.
	Interval time.Duration
	// Threshold is the number of consecutive identical samples, after the
	// first, that counts as stable.
	Threshold int
	// Timeout caps the whole wait.
	Timeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = 500 * time.Millisecond
	}
	if o.Threshold <= 0 {
		o.Threshold = 3
	}
	if o.Timeout <= 0 {
		o.Timeout = 8 * time.Second
	}
	return o
}

// UntilStable calls sample every Interval until it returns the same value
// Threshold times in a row, the Timeout elapses, or ctx is done. It returns
// the last sample and whether stability was reached. Sampling errors reset
// the streak but do not end the wait; the last error is returned only if no
// sample ever succeeded.
func UntilStable[T comparable](ctx context.Context, opts Options, sample func() (T, error)) (T, bool, error) {
	opts = opts.withDefaults()

	deadline := time.NewTimer(opts.Timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	var (
		last    T
		have    bool
		streak  int
		lastErr error
	)
	take := func() bool {
		v, err := sample()
		if err != nil {
			lastErr = err
			streak = 0
			return false
		}
		if have && v == last {
			streak++
		} else {
			streak = 0
		}
		last, have = v, true
		return streak >= opts.Threshold
	}

	if take() {
		return last, true, nil
	}
	for {
		select {
		case <-ctx.Done():
			if !have {
				return last, false, ctx.Err()
			}
			return last, false, nil
		case <-deadline.C:
			if !have {
				return last, false, lastErr
			}
			return last, false, nil
		case <-ticker.C:
			if take() {
				return last, true, nil
			}
		}
	}
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
