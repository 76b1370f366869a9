package supertext

// Backend is the storage seam for the process-wide "current Supertext"
// slot. The stdlib has no host-provided async-context primitive, so
// [DefaultBackend] is an explicit cooperative stack; a platform that adds
// one could substitute its own Backend.
type Backend interface {
	// Current returns the Supertext currently in effect.
	Current() *Supertext
	// Push makes s the current Supertext and returns a function that
	// restores the prior one. Callers must call the restore function even
	// on an exceptional exit (e.g. via defer).
	Push(s *Supertext) (restore func())
}

type stackBackend struct {
	stack []*Supertext
}

func (b *stackBackend) Current() *Supertext {
	if len(b.stack) == 0 {
		return EMPTY
	}
	return b.stack[len(b.stack)-1]
}

func (b *stackBackend) Push(s *Supertext) func() {
	b.stack = append(b.stack, s)
	depth := len(b.stack)
	return func() {
		b.stack = b.stack[:depth-1]
	}
}

// DefaultBackend is the package's active ambient-context backend. Tests
// that need isolation may swap it out and restore it afterward; production
// code has no reason to.
var DefaultBackend Backend = &stackBackend{}

// Current returns the Supertext currently in effect on [DefaultBackend].
func Current() *Supertext {
	return DefaultBackend.Current()
}

// Run pushes self as the current Supertext, calls callback, and restores
// the previous one on return - including on panic.
func Run(self *Supertext, callback func()) {
	restore := DefaultBackend.Push(self)
	defer restore()
	callback()
}

// Call is [Run] for a callback that produces a value.
func Call[R any](self *Supertext, callback func() R) R {
	restore := DefaultBackend.Push(self)
	defer restore()
	return callback()
}

// Bind captures the currently active Supertext and returns a wrapper that,
// when invoked, runs callback with Merge(captured, Current()) active -
// giving automatic merge resolution when a bound callback later runs
// inside some other ambient context.
func Bind(callback func()) func() {
	captured := Current()
	return func() {
		Run(Merge(captured, Current()), callback)
	}
}

// BindOnly captures the currently active Supertext and returns a wrapper
// that runs callback with only the captured context active, ignoring
// whatever context is ambient when it is later invoked.
func BindOnly(callback func()) func() {
	captured := Current()
	return func() {
		Run(captured, callback)
	}
}
