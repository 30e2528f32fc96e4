package pgoose

import "context"

// Future is the eventual result of an asynchronous operation.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Go runs fn in a new goroutine and returns a Future for its result.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.val, f.err = fn()
	}()
	return f
}

// Resolved returns a Future that is already complete.
func Resolved[T any](v T, err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), val: v, err: err}
	close(f.done)
	return f
}

// Done returns a channel that is closed when the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then calls cb with the result once it is available. The callback runs on
// its own goroutine and receives the same error Wait would return.
func (f *Future[T]) Then(cb func(T, error)) {
	go func() {
		<-f.done
		cb(f.val, f.err)
	}()
}

// Op is a deferred model operation that is not a chainable query.
type Op[T any] struct {
	run func(context.Context) (T, error)
}

// Exec runs the operation.
func (o *Op[T]) Exec(ctx context.Context) (T, error) {
	return o.run(ctx)
}

// ExecAsync runs the operation in the background.
func (o *Op[T]) ExecAsync(ctx context.Context) *Future[T] {
	return Go(func() (T, error) { return o.run(ctx) })
}
