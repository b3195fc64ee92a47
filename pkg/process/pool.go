package process

import (
	"context"

	"golang.org/x/sync/semaphore"
)

const (
	// DefaultWorkers is the default number of concurrent I/O operations.
	DefaultWorkers = 10
	// MinWorkers is the smallest pool size. A fetch may schedule a second
	// fetch before releasing its own slot.
	MinWorkers = 2
)

// Pool bounds the number of leaf operations (HTTP calls, downloads, disk
// extraction) that run at once. Requests beyond the bound queue until a slot
// frees up or their context is cancelled.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// NewPool returns a pool of n slots. n is raised to [MinWorkers] if smaller.
func NewPool(n int) *Pool {
	if n < MinWorkers {
		n = MinWorkers
	}
	return &Pool{sem: semaphore.NewWeighted(int64(n)), size: n}
}

// Size returns the number of slots.
func (p *Pool) Size() int { return p.size }

// Limit returns a process that holds one pool slot while p runs. Only leaf
// operations should be limited; a composite that waits on limited children
// while holding a slot can exhaust the pool. A nil pool does not limit.
func Limit[T any](pool *Pool, p Process[T]) Process[T] {
	if pool == nil {
		return p
	}
	return func(ctx context.Context, emit Emitter) (T, error) {
		if err := pool.sem.Acquire(ctx, 1); err != nil {
			var zero T
			return zero, err
		}
		defer pool.sem.Release(1)
		return p(ctx, emit)
	}
}
