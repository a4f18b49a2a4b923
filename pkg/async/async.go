package async

import (
	"context"
	"sync"
	"time"
)

// Future represents the result of an asynchronous computation.
type Future[U any] struct {
	result U
	err    error
	once   sync.Once
	done   chan struct{}
}

// Await waits for the asynchronous function to complete and returns its result and error.
func (f *Future[U]) Await() (U, error) {
	<-f.done
	return f.result, f.err
}

// AwaitWithTimeout waits for completion for at most timeout.
// Returns ErrTimeout if the function is still running when the timeout fires.
func (f *Future[U]) AwaitWithTimeout(timeout time.Duration) (U, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-time.After(timeout):
		var zero U
		return zero, ErrTimeout
	}
}

// IsComplete reports whether the function has finished, without blocking.
func (f *Future[U]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Async executes fn in its own goroutine and returns a Future for its result.
func Async[T any, U any](ctx context.Context, param T, fn func(context.Context, T) (U, error)) *Future[U] {
	f := &Future[U]{done: make(chan struct{})}

	go func() {
		defer close(f.done)

		// Early exit prevents goroutine leak when context is pre-canceled
		select {
		case <-ctx.Done():
			f.err = ctx.Err()
			return
		default:
		}

		res, err := fn(ctx, param)

		f.once.Do(func() {
			f.result = res
			f.err = err
		})
	}()

	return f
}

// Detach runs fn in the background, decoupled from the cancellation of ctx
// (values such as the request ID are kept). Callers are not expected to wait:
// a non-nil error is handed to onError, which may be nil.
// The returned Future exists for tests and shutdown hooks.
func Detach[T any](ctx context.Context, param T, fn func(context.Context, T) error, onError func(T, error)) *Future[struct{}] {
	return Async(context.WithoutCancel(ctx), param, func(ctx context.Context, p T) (struct{}, error) {
		err := fn(ctx, p)
		if err != nil && onError != nil {
			onError(p, err)
		}
		return struct{}{}, err
	})
}
