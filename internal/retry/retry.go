// Package retry runs an operation a bounded number of times with a
// configurable pause between attempts.
package retry

import (
	"context"
	"time"
)

// DelayFunc returns how long to wait after the failed attempt with the given
// zero-based index before starting the next one.
type DelayFunc func(attempt int) time.Duration

type Policy struct {
	Attempts int
	Delay    DelayFunc

	// Sleep defaults to a context-aware timer. Tests swap it out.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnFailure is called for every failed attempt, including the last one.
	OnFailure func(attempt int, err error)
}

// Exponential waits base * 2^attempt: 1, 2, 4... time units for base = 1 unit.
func Exponential(base time.Duration) DelayFunc {
	return func(attempt int) time.Duration {
		return base << uint(attempt)
	}
}

// Immediate retries without pausing.
func Immediate(int) time.Duration { return 0 }

func SleepContext(ctx context.Context, d time.Duration) error {
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

// Do calls fn until it succeeds or the policy's attempts are used up, and
// returns the last error on exhaustion. A cancelled context stops the loop
// early with the context's error.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.Delay
	if delay == nil {
		delay = Immediate
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var zero T
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		v, err := fn(ctx, i)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if p.OnFailure != nil {
			p.OnFailure(i, err)
		}
		if i == attempts-1 {
			break
		}
		if err := sleep(ctx, delay(i)); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}
