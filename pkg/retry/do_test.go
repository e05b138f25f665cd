package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_Success(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetryThenSuccess(t *testing.T) {
	attempts := 0
	var retried []int
	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("connection refused")
		}
		return nil
	},
		WithMaxAttempts(3),
		WithBackoff(Fixed(time.Millisecond)),
		WithOnRetry(func(attempt int, err error) { retried = append(retried, attempt) }),
	)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("still down")
	}, WithMaxAttempts(4), WithBackoff(Fixed(0)))
	require.EqualError(t, err, "still down")
	assert.Equal(t, 4, attempts)
}

func TestDo_Permanent(t *testing.T) {
	sentinel := errors.New("bad request")
	attempts := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return Permanent(sentinel)
	}, WithMaxAttempts(5), WithBackoff(Fixed(0)))
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, attempts)
}

func TestDo_RetryIf(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("fatal")
	}, WithMaxAttempts(5), WithRetryIf(func(error) bool { return false }))
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDo_ContextCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	attempts := 0
	start := time.Now()
	err := Do(ctx, func(ctx context.Context) error {
		attempts++
		return errors.New("unavailable")
	}, WithMaxAttempts(10), WithBackoff(Fixed(time.Second)))
	assert.EqualError(t, err, "unavailable")
	assert.Equal(t, 1, attempts)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestBackoff(t *testing.T) {
	b := Exponential(100*time.Millisecond, time.Second)
	assert.Equal(t, 100*time.Millisecond, b.Next(0))
	assert.Equal(t, 400*time.Millisecond, b.Next(2))
	assert.Equal(t, time.Second, b.Next(5))

	assert.Equal(t, 2*time.Second, Fixed(2*time.Second).Next(7))

	for i := 0; i < 20; i++ {
		d := FullJitter(time.Second)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Less(t, d, time.Second)
	}
	assert.Equal(t, time.Duration(0), FullJitter(0))
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, IsRetryableError(nil))
	assert.False(t, IsRetryableError(context.Canceled))
	assert.False(t, IsRetryableError(context.DeadlineExceeded))
	assert.True(t, IsRetryableError(errors.New("x")))
}
