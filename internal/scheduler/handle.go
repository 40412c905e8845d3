package scheduler

import (
	"context"
	"sync"
	"time"
)

// State is the lifecycle position of a submitted task.
type State int

const (
	Queued State = iota
	Running
	Resolved
	Failed
)

func (s State) String() string {
	switch s {
	case Queued:
		return "queued"
	case Running:
		return "running"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Handle is the caller's view of a submitted task. The outcome is written
// once by the drain loop and is safe to read from any goroutine.
type Handle struct {
	id        string
	submitted time.Time
	done      chan struct{}

	mu      sync.Mutex
	state   State
	started time.Time
	value   any
	err     error
}

func newHandle() *Handle {
	return &Handle{
		id:        newTaskID(),
		submitted: time.Now(),
		done:      make(chan struct{}),
	}
}

// ID returns the task identifier.
func (h *Handle) ID() string { return h.id }

// Submitted returns when the task was queued.
func (h *Handle) Submitted() time.Time { return h.submitted }

// Done is closed once the outcome is available.
func (h *Handle) Done() <-chan struct{} { return h.done }

// State returns the current task state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Started returns when the task began running, or the zero time.
func (h *Handle) Started() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.started
}

// Wait blocks until the outcome is delivered or ctx ends. A cancelled ctx
// only stops the wait; the task itself still runs.
func (h *Handle) Wait(ctx context.Context) (any, error) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.value, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Handle) start() {
	h.mu.Lock()
	h.state = Running
	h.started = time.Now()
	h.mu.Unlock()
}

func (h *Handle) finish(value any, err error) {
	h.mu.Lock()
	h.value = value
	h.err = err
	if err != nil {
		h.state = Failed
	} else {
		h.state = Resolved
	}
	h.mu.Unlock()
	close(h.done)
}

// Run submits op to s and waits for its typed result.
func Run[T any](ctx context.Context, s *Scheduler, op func() (T, error)) (T, error) {
	h := s.Submit(func() (any, error) {
		return op()
	})
	v, err := h.Wait(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}
