package async_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/async"
)

func TestAsync(t *testing.T) {
	t.Parallel()

	t.Run("returns the function result", func(t *testing.T) {
		t.Parallel()
		future := async.Async(context.Background(), 42, func(_ context.Context, n int) (string, error) {
			time.Sleep(20 * time.Millisecond)
			return fmt.Sprintf("Number: %d", n), nil
		})

		res, err := future.Await()
		require.NoError(t, err)
		assert.Equal(t, "Number: 42", res)
		assert.True(t, future.IsComplete())
	})

	t.Run("propagates errors", func(t *testing.T) {
		t.Parallel()
		expected := errors.New("boom")
		future := async.Async(context.Background(), 1, func(_ context.Context, _ int) (int, error) {
			return 0, expected
		})

		res, err := future.Await()
		assert.ErrorIs(t, err, expected)
		assert.Zero(t, res)
	})

	t.Run("honours context deadline", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		future := async.Async(ctx, 1, func(ctx context.Context, _ int) (string, error) {
			select {
			case <-time.After(time.Second):
				return "late", nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		})

		res, err := future.Await()
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Empty(t, res)
	})

	t.Run("pre-cancelled context skips the function", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var called atomic.Bool
		future := async.Async(ctx, 1, func(_ context.Context, _ int) (int, error) {
			called.Store(true)
			return 1, nil
		})

		_, err := future.Await()
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called.Load())
	})
}

func TestAwaitWithTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	future := async.Async(context.Background(), 1, func(_ context.Context, n int) (int, error) {
		<-release
		return n, nil
	})

	_, err := future.AwaitWithTimeout(10 * time.Millisecond)
	assert.ErrorIs(t, err, async.ErrTimeout)
	assert.False(t, future.IsComplete())

	close(release)
	res, err := future.AwaitWithTimeout(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, res)
}

func TestDetach(t *testing.T) {
	t.Parallel()

	t.Run("survives caller cancellation", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())

		started := make(chan struct{})
		future := async.Detach(ctx, "sub_1", func(ctx context.Context, _ string) error {
			close(started)
			time.Sleep(20 * time.Millisecond)
			return ctx.Err()
		}, nil)

		<-started
		cancel()

		_, err := future.AwaitWithTimeout(time.Second)
		assert.NoError(t, err)
	})

	t.Run("reports failures to the callback", func(t *testing.T) {
		t.Parallel()
		expected := errors.New("cancel failed")
		got := make(chan string, 1)

		future := async.Detach(context.Background(), "sub_2", func(_ context.Context, _ string) error {
			return expected
		}, func(id string, err error) {
			assert.ErrorIs(t, err, expected)
			got <- id
		})

		_, err := future.AwaitWithTimeout(time.Second)
		assert.ErrorIs(t, err, expected)
		assert.Equal(t, "sub_2", <-got)
	})
}
