package process

import (
	"context"
	"sync"

	"github.com/matzehuels/buckaroo/pkg/event"
)

// Task is a running [Process]. Its events are delivered on an unbuffered
// channel that is closed after the result is stored, so a consumer that
// ranges over [Task.Events] can read the result as soon as the loop ends.
type Task[T any] struct {
	events chan event.Event
	done   chan struct{}
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool

	value T
	err   error
}

// Start runs p in a new goroutine. The task is abandoned when ctx is
// cancelled or [Task.Cancel] is called.
func Start[T any](ctx context.Context, p Process[T]) *Task[T] {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task[T]{
		events: make(chan event.Event),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	emit := func(e event.Event) {
		t.mu.RLock()
		defer t.mu.RUnlock()
		if t.closed || ctx.Err() != nil {
			return
		}
		select {
		case t.events <- e:
		case <-ctx.Done():
		}
	}

	go func() {
		v, err := p(ctx, emit)
		t.value, t.err = v, err
		cancel()

		t.mu.Lock()
		t.closed = true
		close(t.events)
		close(t.done)
		t.mu.Unlock()
	}()

	return t
}

// Events returns the event stream. It is closed when the task finishes.
func (t *Task[T]) Events() <-chan event.Event { return t.events }

// Done is closed when the result is available.
func (t *Task[T]) Done() <-chan struct{} { return t.done }

// Cancel abandons the task. Pending and later events are dropped and the
// outcome becomes the context error unless the task already finished.
func (t *Task[T]) Cancel() { t.cancel() }

// Wait discards any events not yet received and returns the outcome.
func (t *Task[T]) Wait() (T, error) {
	for range t.events {
	}
	<-t.done
	return t.value, t.err
}

// Result returns the outcome of a finished task. It must only be called
// after [Task.Done] is closed.
func (t *Task[T]) Result() (T, error) {
	return t.value, t.err
}
