package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Fixed(3, 0).Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	lastErr := errors.New("still broken")
	calls := 0
	err := Fixed(3, 0).Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("earlier failure")
		}
		return lastErr
	})
	assert.Equal(t, 3, calls)
	// The final rejection surfaces the last underlying error.
	assert.Same(t, lastErr, err)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	fatal := errors.New("bad request")
	calls := 0
	p := Policy{
		MaxAttempts: 5,
		RetryIf:     func(err error) bool { return !errors.Is(err, fatal) },
	}
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return fatal
	})
	assert.Equal(t, 1, calls)
	assert.Same(t, fatal, err)
}

func TestDoRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Fixed(5, 50*time.Millisecond).Do(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDoZeroValueRunsOnce(t *testing.T) {
	calls := 0
	err := Policy{}.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestBackoffDelayGrowth(t *testing.T) {
	p := Backoff(4, 10*time.Millisecond, 15*time.Millisecond)
	start := time.Now()
	calls := 0
	_ = p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("transient")
	})
	// 10ms + 15ms + 15ms between the four attempts.
	assert.Equal(t, 4, calls)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}
