// Package keyqueue serializes work per key in the order it was issued.
package keyqueue

import (
	"context"
	"sync"
)

// Queue hands out turns per key. Each caller waits for the caller that
// acquired the same key before it.
type Queue[K comparable] struct {
	mu    sync.Mutex
	tails map[K]chan struct{}
}

func New[K comparable]() *Queue[K] {
	return &Queue[K]{tails: make(map[K]chan struct{})}
}

// Acquire blocks until every earlier caller for key has released. When
// ctx ends first the turn is still released in order, after the
// predecessor, so later callers are not stranded.
func (q *Queue[K]) Acquire(ctx context.Context, key K) (release func(), err error) {
	q.mu.Lock()
	prev := q.tails[key]
	done := make(chan struct{})
	q.tails[key] = done
	q.mu.Unlock()

	release = func() {
		q.mu.Lock()
		if q.tails[key] == done {
			delete(q.tails, key)
		}
		q.mu.Unlock()
		close(done)
	}

	if prev == nil {
		return release, nil
	}
	select {
	case <-prev:
		return release, nil
	case <-ctx.Done():
		go func() {
			<-prev
			release()
		}()
		return nil, ctx.Err()
	}
}
