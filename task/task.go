// Package task implements Task[T], a settlement container shaped like a
// promise but with one deliberate deviation from promise semantics: a
// settled task's then callbacks run synchronously, in registration order,
// rather than being deferred to a future tick.
package task

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/benjamn/wryware/supertext"
)

type state int32

const (
	unsettled state = iota
	settling
	resolved
	rejected
)

// Context is the lightweight diagnostic record every Task carries: a weak
// link to the context of the task that was current when it was
// constructed. It never retains Task objects, so it cannot itself be the
// reason a settled task's memory is kept alive.
type Context struct {
	Parent *Context
	Label  string
}

// Task is a single-assignment settlement container. The zero value is not
// usable; construct one with [New], [Resolve], or [Reject].
type Task[T any] struct {
	state   atomic.Int32
	value   T
	err     error
	context *Context

	mu        chan struct{} // binary semaphore guarding reactions/settlement
	reactions []reaction[T]

	promiseOnce sync.Once
	promise     *Promise[T]
}

type reaction[T any] struct {
	onResolved func(T)
	onRejected func(error)
}

func newTask[T any]() *Task[T] {
	t := &Task[T]{mu: make(chan struct{}, 1)}
	t.mu <- struct{}{}
	t.context = &Context{Parent: currentContext(), Label: ""}
	return t
}

// contextStack is the ambient "task currently running" slot: a bare
// cooperative stack in the same spirit as supertext's stackBackend, since
// the stdlib has no async-context primitive to hook into. It is pushed
// around an executor or a Then/Catch reaction, so a Task constructed from
// within one picks up the running task's Context as its Parent.
var contextStack []*Context

func currentContext() *Context {
	if len(contextStack) == 0 {
		return nil
	}
	return contextStack[len(contextStack)-1]
}

func runWithContext(ctx *Context, fn func()) {
	contextStack = append(contextStack, ctx)
	defer func() { contextStack = contextStack[:len(contextStack)-1] }()
	fn()
}

func (t *Task[T]) lock()   { <-t.mu }
func (t *Task[T]) unlock() { t.mu <- struct{}{} }

// Executor is run synchronously, with the task's own context established,
// at construction time; a panic from it rejects the task with the
// recovered value as the reason.
type Executor[T any] func(resolve func(T), reject func(error))

// New constructs a Task and, if executor is non-nil, runs it immediately.
func New[T any](executor Executor[T]) *Task[T] {
	t := newTask[T]()
	if executor == nil {
		return t
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				t.reject(panicToError(r))
			}
		}()
		supertext.Run(supertext.Current(), func() {
			runWithContext(t.context, func() {
				executor(t.resolve, t.reject)
			})
		})
	}()
	return t
}

// Resolve returns an already-resolved Task.
func Resolve[T any](value T) *Task[T] {
	t := newTask[T]()
	t.resolve(value)
	return t
}

// Reject returns an already-rejected Task.
func Reject[T any](err error) *Task[T] {
	t := newTask[T]()
	t.reject(err)
	return t
}

// VOID is conventionally used where a Task carries no meaningful value.
var VOID = Resolve(struct{}{})

func (t *Task[T]) resolve(value T) {
	t.lock()
	if state(t.state.Load()) != unsettled {
		t.unlock()
		return
	}
	t.state.Store(int32(resolved))
	t.value = value
	reactions := t.reactions
	t.reactions = nil
	t.unlock()

	for _, r := range reactions {
		if r.onResolved != nil {
			r.onResolved(value)
		}
	}
}

func (t *Task[T]) reject(err error) {
	t.lock()
	if state(t.state.Load()) != unsettled {
		t.unlock()
		return
	}
	t.state.Store(int32(rejected))
	t.err = err
	reactions := t.reactions
	t.reactions = nil
	t.unlock()

	for _, r := range reactions {
		if r.onRejected != nil {
			r.onRejected(err)
		}
	}
}

// Then registers continuations. If the task is already settled, the
// matching continuation is invoked synchronously, before Then returns -
// the required deviation from always-async promise semantics. If still
// pending, it is queued and fires in registration order at settlement.
// The returned Task settles with onResolved's (or onRejected's) result.
func (t *Task[T]) Then(onResolved func(T) T, onRejected func(error) T) *Task[T] {
	out := newTask[T]()

	deliverResolved := func(v T) {
		runWithContext(out.context, func() {
			defer func() {
				if r := recover(); r != nil {
					out.reject(panicToError(r))
				}
			}()
			if onResolved != nil {
				out.resolve(onResolved(v))
			} else {
				out.resolve(v)
			}
		})
	}
	deliverRejected := func(err error) {
		runWithContext(out.context, func() {
			defer func() {
				if r := recover(); r != nil {
					out.reject(panicToError(r))
				}
			}()
			if onRejected != nil {
				out.resolve(onRejected(err))
			} else {
				out.reject(err)
			}
		})
	}

	t.lock()
	switch state(t.state.Load()) {
	case resolved:
		t.unlock()
		deliverResolved(t.value)
	case rejected:
		t.unlock()
		deliverRejected(t.err)
	default:
		t.reactions = append(t.reactions, reaction[T]{onResolved: deliverResolved, onRejected: deliverRejected})
		t.unlock()
	}

	return out
}

// Catch is sugar for Then(nil, onRejected).
func (t *Task[T]) Catch(onRejected func(error) T) *Task[T] {
	return t.Then(nil, onRejected)
}

// Settled reports whether the task has resolved or rejected.
func (t *Task[T]) Settled() bool {
	s := state(t.state.Load())
	return s == resolved || s == rejected
}

// Context returns the diagnostic context captured at construction.
func (t *Task[T]) Context() *Context { return t.context }

func panicToError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("task: panic: %v", r)
}

// All waits, blocking the calling goroutine, until every input Task has
// settled. It then resolves with their results in order, or, if any input
// rejected, rejects with the first rejection reason reported. It does not
// return early when an input rejects while others are still pending.
func All[T any](tasks ...*Task[T]) *Task[[]T] {
	results := make([]T, len(tasks))
	var g errgroup.Group
	for i, tk := range tasks {
		i, tk := i, tk
		g.Go(func() error {
			done := make(chan error, 1)
			tk.Then(func(v T) T {
				results[i] = v
				done <- nil
				return v
			}, func(err error) T {
				done <- err
				var zero T
				return zero
			})
			return <-done
		})
	}
	out := newTask[[]T]()
	if err := g.Wait(); err != nil {
		out.reject(err)
	} else {
		out.resolve(results)
	}
	return out
}
