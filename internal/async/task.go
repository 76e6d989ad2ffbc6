package async

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
)

var (
	// ErrNotLaunched is returned by Get on a task whose Compute was never called.
	ErrNotLaunched = errors.New("task was never launched")

	// ErrAlreadyLaunched is returned by a second call to Compute.
	ErrAlreadyLaunched = errors.New("task already launched")
)

// PanicError carries a panic recovered from a task computation.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Task is a one-shot computation producing a T.
//
// Compute launches the computation on its own goroutine. Ready and Progress
// never block. Get blocks until the computation has returned and then always
// returns the same result; the computation itself runs at most once.
type Task[T any] struct {
	fn       func(*Progress) (T, error)
	progress Progress
	launched atomic.Bool
	done     chan struct{}

	// written once before done is closed
	result T
	err    error
}

// New creates a task for a computation that does not report progress.
func New[T any](fn func() (T, error)) *Task[T] {
	return NewWithProgress(func(*Progress) (T, error) { return fn() })
}

// NewWithProgress creates a task for a computation that reports progress
// through the handle it is given.
func NewWithProgress[T any](fn func(*Progress) (T, error)) *Task[T] {
	return &Task[T]{
		fn:   fn,
		done: make(chan struct{}),
	}
}

// Compute starts the computation. It returns ErrAlreadyLaunched if the task
// was started before.
func (t *Task[T]) Compute() error {
	if !t.launched.CompareAndSwap(false, true) {
		return ErrAlreadyLaunched
	}
	go t.run()
	return nil
}

func (t *Task[T]) run() {
	defer close(t.done)
	defer func() {
		if r := recover(); r != nil {
			t.err = &PanicError{Value: r, Stack: debug.Stack()}
		}
		t.progress.Set(1)
	}()
	t.result, t.err = t.fn(&t.progress)
}

// Launched reports whether Compute has been called.
func (t *Task[T]) Launched() bool {
	return t.launched.Load()
}

// Ready reports whether the computation has returned.
func (t *Task[T]) Ready() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Get waits for the computation and returns its result.
func (t *Task[T]) Get() (T, error) {
	if !t.launched.Load() {
		var zero T
		return zero, ErrNotLaunched
	}
	<-t.done
	return t.result, t.err
}

// Progress returns the latest progress value without blocking.
func (t *Task[T]) Progress() float32 {
	return t.progress.Value()
}

// SetProgress overrides the reported progress, typically with Indeterminate
// while a phase the task does not track is running.
func (t *Task[T]) SetProgress(v float32) {
	t.progress.Set(v)
}
