package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOpts() Options {
	return Options{Interval: time.Millisecond, Threshold: 3, Timeout: time.Second}
}

func TestUntilStableSettles(t *testing.T) {
	values := []int{1, 2, 3, 5, 5, 5, 5, 9}
	i := 0
	got, stable, err := UntilStable(context.Background(), fastOpts(), func() (int, error) {
		v := values[i]
		if i < len(values)-1 {
			i++
		}
		return v, nil
	})
	require.NoError(t, err)
	assert.True(t, stable)
	assert.Equal(t, 5, got)
	// 4 samples of 5: the first plus three repeats
	assert.Equal(t, 7, i)
}

func TestUntilStableTimesOut(t *testing.T) {
	n := 0
	opts := Options{Interval: time.Millisecond, Threshold: 3, Timeout: 20 * time.Millisecond}
	start := time.Now()
	got, stable, err := UntilStable(context.Background(), opts, func() (int, error) {
		n++
		return n, nil
	})
	require.NoError(t, err)
	assert.False(t, stable)
	assert.Equal(t, n, got)
	assert.Less(t, time.Since(start), time.Second)
}

type fingerprint struct {
	Links int
	Size  int
}

func TestUntilStableStructSamples(t *testing.T) {
	seq := []fingerprint{{1, 10}, {4, 80}, {4, 80}, {4, 80}, {4, 80}}
	i := 0
	got, stable, err := UntilStable(context.Background(), fastOpts(), func() (fingerprint, error) {
		v := seq[i]
		if i < len(seq)-1 {
			i++
		}
		return v, nil
	})
	require.NoError(t, err)
	assert.True(t, stable)
	assert.Equal(t, fingerprint{4, 80}, got)
}

func TestUntilStableErrorsResetStreak(t *testing.T) {
	calls := 0
	got, stable, err := UntilStable(context.Background(), fastOpts(), func() (int, error) {
		calls++
		if calls == 3 {
			return 0, errors.New("flaky")
		}
		return 7, nil
	})
	require.NoError(t, err)
	assert.True(t, stable)
	assert.Equal(t, 7, got)
	assert.Greater(t, calls, 4)
}

func TestUntilStableAllErrors(t *testing.T) {
	boom := errors.New("evaluate failed")
	opts := Options{Interval: time.Millisecond, Threshold: 2, Timeout: 10 * time.Millisecond}
	_, stable, err := UntilStable(context.Background(), opts, func() (int, error) {
		return 0, boom
	})
	assert.False(t, stable)
	assert.ErrorIs(t, err, boom)
}

func TestUntilStableContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n := 0
	_, stable, err := UntilStable(ctx, Options{Interval: time.Hour, Threshold: 3, Timeout: time.Hour}, func() (int, error) {
		n++
		return n, nil
	})
	assert.NoError(t, err)
	assert.False(t, stable)
	assert.Equal(t, 1, n)
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
}
