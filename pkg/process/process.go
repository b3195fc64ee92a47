// Package process provides a composable unit of asynchronous work that reports
// progress while it runs and ends with exactly one result.
//
// A [Process] is a description, not a running computation: nothing happens
// until it is invoked with a context and an [Emitter]. Processes compose with
// [Chain], [Concat], [Map] and [All], so a deep pipeline such as
//
//	resolve → fetch recipe → download → hash → unzip → read manifest
//
// presents one event stream and one terminal outcome to its caller.
//
// # Events versus results
//
// Events are observational. A caller may discard every event (pass a nil
// emitter) and the outcome of the process is unchanged. Correctness is only
// ever decided by the returned value and error.
//
// # Cancellation
//
// Cancelling the context abandons the process: combinators stop scheduling
// new steps, events emitted through a [Task] after cancellation are dropped,
// and the outcome is the context error.
package process

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/buckaroo/pkg/event"
)

// Emitter receives progress events. Emitters passed to a Process are never
// nil; an Emitter may block to apply backpressure.
type Emitter func(event.Event)

// Discard is an Emitter that drops every event.
func Discard(event.Event) {}

// Detach returns an emitter that forwards to emit until stop is called and
// drops events afterwards. Work shared with other callers, which can
// outlive the caller that started it, emits through a detached emitter.
func Detach(emit Emitter) (detached Emitter, stop func()) {
	var mu sync.Mutex
	live := true
	detached = func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		if live {
			emit(e)
		}
	}
	stop = func() {
		mu.Lock()
		live = false
		mu.Unlock()
	}
	return detached, stop
}

// Process is a computation that emits zero or more events and then succeeds
// with a T or fails with an error.
type Process[T any] func(ctx context.Context, emit Emitter) (T, error)

// Run invokes p. A nil emit discards events.
func (p Process[T]) Run(ctx context.Context, emit Emitter) (T, error) {
	if emit == nil {
		emit = Discard
	}
	return p(ctx, emit)
}

// Just returns a process that emits nothing and succeeds with v.
func Just[T any](v T) Process[T] {
	return func(context.Context, Emitter) (T, error) {
		return v, nil
	}
}

// Error returns a process that emits nothing and fails with err.
func Error[T any](err error) Process[T] {
	return func(context.Context, Emitter) (T, error) {
		var zero T
		return zero, err
	}
}

// Emit returns a process that emits e and succeeds.
func Emit(e event.Event) Process[struct{}] {
	return func(_ context.Context, emit Emitter) (struct{}, error) {
		emit(e)
		return struct{}{}, nil
	}
}

// Chain runs p and, if it succeeds with v, runs f(v). Events of p are
// followed by events of f(v). If p fails, f is never invoked.
func Chain[T, U any](p Process[T], f func(T) Process[U]) Process[U] {
	return func(ctx context.Context, emit Emitter) (U, error) {
		var zero U
		v, err := p(ctx, emit)
		if err != nil {
			return zero, err
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return f(v)(ctx, emit)
	}
}

// Concat runs p to completion and then q, succeeding with q's value only if
// both succeed.
func Concat[T, U any](p Process[T], q Process[U]) Process[U] {
	return Chain(p, func(T) Process[U] { return q })
}

// Map transforms the value of p without touching its events.
func Map[T, U any](p Process[T], f func(T) U) Process[U] {
	return func(ctx context.Context, emit Emitter) (U, error) {
		v, err := p(ctx, emit)
		if err != nil {
			var zero U
			return zero, err
		}
		return f(v), nil
	}
}

// MapErr transforms the error of p, if any.
func MapErr[T any](p Process[T], f func(error) error) Process[T] {
	return func(ctx context.Context, emit Emitter) (T, error) {
		v, err := p(ctx, emit)
		if err != nil {
			return v, f(err)
		}
		return v, nil
	}
}

// MapEvents runs p with every event passed through f first.
func MapEvents[T any](p Process[T], f func(event.Event) event.Event) Process[T] {
	return func(ctx context.Context, emit Emitter) (T, error) {
		return p(ctx, func(e event.Event) { emit(f(e)) })
	}
}

// All runs ps concurrently and succeeds with their values in input order.
// The first failure cancels the others and becomes the outcome. Events from
// the children are serialized: each reaches emit in the order it was emitted.
func All[T any](ps []Process[T]) Process[[]T] {
	return func(ctx context.Context, emit Emitter) ([]T, error) {
		results := make([]T, len(ps))
		if len(ps) == 0 {
			return results, nil
		}

		var mu sync.Mutex
		serial := func(e event.Event) {
			mu.Lock()
			defer mu.Unlock()
			emit(e)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i, p := range ps {
			g.Go(func() error {
				v, err := p(gctx, serial)
				if err != nil {
					return err
				}
				results[i] = v
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return results, nil
	}
}

// Fold runs ps concurrently like [All] and then reduces their values, in
// input order, starting from init. The reduction only runs once every
// process has succeeded.
func Fold[T, A any](ps []Process[T], init A, f func(A, T) A) Process[A] {
	return Map(All(ps), func(vs []T) A {
		acc := init
		for _, v := range vs {
			acc = f(acc, v)
		}
		return acc
	})
}
