package keyqueue

// Pending reports whether key has a holder or waiters.
func (q *Queue[K]) Pending(key K) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.tails[key]
	return ok
}

func (q *Queue[K]) tail(key K) chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.tails[key]
}
