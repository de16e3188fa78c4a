package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func recordSleep(got *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*got = append(*got, d)
		return nil
	}
}

func TestDoSucceedsOnThirdAttemptWithBackoff(t *testing.T) {
	var slept []time.Duration
	calls := 0
	p := Policy{Attempts: 3, Delay: Exponential(time.Second), Sleep: recordSleep(&slept)}

	v, err := Do(context.Background(), p, func(context.Context, int) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("boom")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	require.Equal(t, "ok", v)
	require.Equal(t, 3, calls)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, slept)
}

func TestDoReturnsLastErrorWithoutSleepingAfterFinalAttempt(t *testing.T) {
	var slept []time.Duration
	var failures []int
	p := Policy{
		Attempts:  3,
		Delay:     Exponential(time.Second),
		Sleep:     recordSleep(&slept),
		OnFailure: func(attempt int, _ error) { failures = append(failures, attempt) },
	}

	_, err := Do(context.Background(), p, func(_ context.Context, attempt int) (int, error) {
		return 0, fmt.Errorf("attempt %d", attempt)
	})

	require.EqualError(t, err, "attempt 2")
	require.Len(t, slept, 2)
	require.Equal(t, []int{0, 1, 2}, failures)
}

func TestDoImmediatePolicyNeverWaits(t *testing.T) {
	var slept []time.Duration
	p := Policy{Attempts: 3, Delay: Immediate, Sleep: recordSleep(&slept)}

	_, err := Do(context.Background(), p, func(context.Context, int) (int, error) {
		return 0, errors.New("nope")
	})

	require.Error(t, err)
	require.Equal(t, []time.Duration{0, 0}, slept)
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0

	_, err := Do(ctx, Policy{Attempts: 3}, func(context.Context, int) (int, error) {
		calls++
		return 0, nil
	})

	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, calls)
}

func TestExponential(t *testing.T) {
	d := Exponential(time.Millisecond)
	require.Equal(t, time.Millisecond, d(0))
	require.Equal(t, 2*time.Millisecond, d(1))
	require.Equal(t, 4*time.Millisecond, d(2))
}
