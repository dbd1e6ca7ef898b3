package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SuccessFirstTry(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := Do(context.Background(), time.Millisecond, func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesAfterRateLimit(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := Do(context.Background(), time.Millisecond, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &RateLimitedError{Service: "registry"}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestDo_NonRateLimitErrorReturnsImmediately(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := Do(context.Background(), time.Millisecond, func(ctx context.Context) (int, error) {
		calls++
		return 0, &CallError{Service: "crm", StatusCode: 500, Body: "boom"}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var ce *CallError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 500, ce.StatusCode)
}

func TestDo_ContextCancelledDuringCooldown(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, time.Hour, func(ctx context.Context) (int, error) {
			calls++
			return 0, &RateLimitedError{Service: "notifier"}
		})
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after context cancellation")
	}
}

func TestIsAuth(t *testing.T) {
	t.Parallel()

	assert.True(t, IsAuth(&AuthError{Service: "crm", Message: "bad key"}))
	assert.False(t, IsAuth(&CallError{Service: "crm", StatusCode: 500}))
	assert.False(t, IsAuth(nil))
}
