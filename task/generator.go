package task

import "github.com/benjamn/wryware/supertext"

// Awaitable is anything [FromGenerator]'s yield function can suspend on.
// *Task[T] for any T satisfies it via an unexported adapter method.
type Awaitable interface {
	await(resume func(value any, err error))
}

func (t *Task[T]) await(resume func(value any, err error)) {
	t.Then(func(v T) T {
		resume(v, nil)
		return v
	}, func(err error) T {
		resume(nil, err)
		var zero T
		return zero
	})
}

// Yield is called from inside a [Generator] body with something to await;
// it blocks the generator's own goroutine (not the caller of
// [FromGenerator]) until that Awaitable settles, then returns its value or
// panics with its rejection reason.
type Yield func(awaited Awaitable) any

// Generator is a function body that suspends by calling yield, driven to
// completion by [FromGenerator]. It is the Go analogue of an async
// generator function: a state machine fed by repeated poll(next, value)
// resumptions, here implemented as a dedicated goroutine parked on a
// channel handoff instead of an explicit state enum.
type Generator[T any] func(yield Yield) T

type resumeMsg struct {
	value any
	err   error
}

type doneSignal struct{ value any }

// FromGenerator drives gen to completion, capturing the ambient Supertext
// once and reinstating it around every resumption, and returns a Task that
// settles with gen's eventual result (or a rejection, if gen panics or an
// awaited Task rejects).
func FromGenerator[T any](gen Generator[T]) *Task[T] {
	out := newTask[T]()
	ctx := supertext.Current()

	yielded := make(chan any)
	resumed := make(chan resumeMsg)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				out.reject(panicToError(r))
			}
			close(yielded)
		}()

		result := supertext.Call(ctx, func() T {
			return gen(func(awaited Awaitable) any {
				yielded <- awaited
				msg := <-resumed
				if msg.err != nil {
					panic(msg.err)
				}
				return msg.value
			})
		})
		yielded <- doneSignal{value: result}
	}()

	go func() {
		for v := range yielded {
			if d, ok := v.(doneSignal); ok {
				out.resolve(d.value.(T))
				return
			}
			awaited := v.(Awaitable)
			awaited.await(func(value any, err error) {
				resumed <- resumeMsg{value: value, err: err}
			})
		}
	}()

	return out
}
