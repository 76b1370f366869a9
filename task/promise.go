package task

// Promise is the "real promise" a Task can be mirrored into via
// [Task.ToPromise]: a one-shot, blocking settlement handle, useful when a
// caller needs to wait across a genuine concurrency boundary rather than
// just registering a continuation.
type Promise[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Wait blocks until the promise settles and returns its outcome.
func (p *Promise[T]) Wait() (T, error) {
	<-p.done
	return p.value, p.err
}

// ToPromise lazily creates a [Promise] mirroring t's eventual settlement.
// The same Promise is always returned for a given Task.
func (t *Task[T]) ToPromise() *Promise[T] {
	t.promiseOnce.Do(func() {
		p := &Promise[T]{done: make(chan struct{})}
		t.Then(func(v T) T {
			p.value = v
			close(p.done)
			return v
		}, func(err error) T {
			p.err = err
			close(p.done)
			var zero T
			return zero
		})
		t.promise = p
	})
	return t.promise
}
