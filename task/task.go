// Package task provides a cancelable handle around a single asynchronous job.
//
// A Task runs its Job in its own goroutine and settles exactly once: with a
// value, with the job's error, or as canceled. Cancel may be called any number
// of times from any goroutine; only the first call before settlement has an
// effect, and a task that has already settled is never changed by it.
//
// The job observes cancellation through the context it receives. Every I/O
// call the job makes must be given that context so that a canceled task stops
// its reads and releases its connections.
//
// Example:
//
//	t := task.New(ctx, func(ctx context.Context) ([]byte, error) {
//	    return fetch(ctx)
//	}, nil)
//	go func() { <-interrupt; t.Cancel(nil) }()
//	data, err := t.Result(ctx)
//	if errors.IsCanceled(err) {
//	    // canceled, not failed
//	}
package task

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/input-output-hk/catalyst-forge-libs/storage/errors"
)

// State is the lifecycle position of a Task.
type State int32

const (
	// StatePending means the job has not settled yet.
	StatePending State = iota
	// StateSucceeded means the job returned a value.
	StateSucceeded
	// StateFailed means the job returned an error.
	StateFailed
	// StateCanceled means the task was canceled before it settled.
	StateCanceled
)

// String returns the lower-case name of the state.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Job is a unit of asynchronous work. It must pass ctx to every blocking
// call and return promptly once ctx is done.
type Job[T any] func(ctx context.Context) (T, error)

// Task is a handle to an in-flight Job.
type Task[T any] struct {
	id       string
	op       string
	ctx      context.Context
	cancel   context.CancelCauseFunc
	onCancel func(reason error)

	// mu guards the settlement fields below.
	mu       sync.Mutex
	state    State
	canceled bool
	reason   error
	value    T
	err      error

	done chan struct{}
}

// New starts job in a new goroutine and returns its handle.
// onCancel, if non-nil, runs once when the first effective Cancel happens.
func New[T any](parent context.Context, job Job[T], onCancel func(reason error)) *Task[T] {
	return NewNamed(parent, "task", job, onCancel)
}

// NewNamed is New with an operation name used in the canceled error.
func NewNamed[T any](parent context.Context, op string, job Job[T], onCancel func(reason error)) *Task[T] {
	id := uuid.NewString()
	ctx, cancel := context.WithCancelCause(context.WithValue(parent, idKey{}, id))
	t := &Task[T]{
		id:       id,
		op:       op,
		ctx:      ctx,
		cancel:   cancel,
		onCancel: onCancel,
		done:     make(chan struct{}),
	}
	go t.run(job)
	return t
}

type idKey struct{}

// IDFromContext returns the ID of the task whose job received ctx.
func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(idKey{}).(string)
	return id, ok
}

// ID returns a unique identifier for the task.
func (t *Task[T]) ID() string {
	return t.id
}

// Cancel requests cancellation with an optional reason. It is idempotent,
// safe for concurrent use, and has no effect once the task has settled.
func (t *Task[T]) Cancel(reason error) {
	if reason == nil {
		reason = errors.ErrCanceled
	}

	t.mu.Lock()
	if t.state != StatePending || t.canceled {
		t.mu.Unlock()
		return
	}
	t.canceled = true
	t.reason = reason
	t.mu.Unlock()

	t.cancel(reason)
	if t.onCancel != nil {
		t.onCancel(reason)
	}
}

// Done returns a channel that is closed once the task has settled.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// State returns the current state of the task.
func (t *Task[T]) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Result blocks until the task settles or ctx is done. If ctx finishes
// first, its error is returned and the task keeps running.
func (t *Task[T]) Result(ctx context.Context) (T, error) {
	select {
	case <-t.done:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value, t.err
}

func (t *Task[T]) run(job Job[T]) {
	defer close(t.done)
	defer t.cancel(nil)

	var (
		value T
		err   error
	)
	// A Cancel that lands before the job starts means the job never runs.
	started := t.ctx.Err() == nil
	if started {
		value, err = job(t.ctx)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case t.canceled:
		t.state = StateCanceled
		t.err = errors.NewCanceledError(t.op, t.reason)
	case !started, err != nil && t.ctx.Err() != nil:
		// The parent context ended underneath the job.
		t.state = StateCanceled
		t.err = errors.NewCanceledError(t.op, context.Cause(t.ctx))
	case err != nil:
		t.state = StateFailed
		t.err = err
	default:
		t.state = StateSucceeded
		t.value = value
	}
}
