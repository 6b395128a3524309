package keyqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireIsFIFO(t *testing.T) {
	q := New[string]()
	ctx := context.Background()

	first, err := q.Acquire(ctx, "course")
	require.NoError(t, err)

	var (
		mu  sync.Mutex
		got []int
		wg  sync.WaitGroup
	)
	for i := 1; i <= 3; i++ {
		before := q.tail("course")
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			release, err := q.Acquire(ctx, "course")
			if err != nil {
				return
			}
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			release()
		}(i)
		// Wait until caller i is queued before issuing the next one.
		require.Eventually(t, func() bool { return q.tail("course") != before }, time.Second, time.Millisecond)
	}

	first()
	wg.Wait()
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.False(t, q.Pending("course"))
}

func TestKeysAreIndependent(t *testing.T) {
	q := New[int]()
	ctx := context.Background()

	releaseA, err := q.Acquire(ctx, 1)
	require.NoError(t, err)
	defer releaseA()

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	releaseB, err := q.Acquire(ctx, 2)
	require.NoError(t, err)
	releaseB()
}

func TestCancelledWaiterKeepsOrder(t *testing.T) {
	q := New[string]()

	first, err := q.Acquire(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = q.Acquire(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)

	acquired := make(chan struct{})
	go func() {
		release, err := q.Acquire(context.Background(), "k")
		if err == nil {
			release()
		}
		close(acquired)
	}()

	first()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("caller was stranded behind a cancelled waiter")
	}
}
