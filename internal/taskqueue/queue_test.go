package taskqueue_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LeonanFr/FindTheBug/internal/taskqueue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRunsTasks(t *testing.T) {
	q := taskqueue.New(2)

	var counter int64
	for i := 0; i < 10; i++ {
		require.NoError(t, q.Enqueue(func() error {
			atomic.AddInt64(&counter, 1)
			return nil
		}))
	}

	q.Stop()
	assert.Equal(t, int64(10), atomic.LoadInt64(&counter))
}

func TestQueueDrainsOnStop(t *testing.T) {
	q := taskqueue.New(1)

	var order []int
	var mu sync.Mutex
	block := make(chan struct{})

	require.NoError(t, q.Enqueue(func() error {
		<-block
		mu.Lock()
		order = append(order, 1)
		mu.Unlock()
		return nil
	}))
	require.NoError(t, q.Enqueue(func() error {
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
		return nil
	}))

	close(block)
	q.Stop()

	assert.Equal(t, []int{1, 2}, order, "queued work still runs during shutdown")
}

func TestQueueSurvivesErrorsAndPanics(t *testing.T) {
	q := taskqueue.New(1)

	require.NoError(t, q.Enqueue(func() error {
		return errors.New("boom")
	}))
	require.NoError(t, q.Enqueue(func() error {
		panic("worse boom")
	}))

	executed := make(chan struct{})
	require.NoError(t, q.Enqueue(func() error {
		close(executed)
		return nil
	}))

	select {
	case <-executed:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive a failing task")
	}
	q.Stop()
}

func TestQueueEnqueueAfterStop(t *testing.T) {
	q := taskqueue.New(1)
	q.Stop()

	err := q.Enqueue(func() error { return nil })
	assert.ErrorIs(t, err, taskqueue.ErrStopped)
}

func TestQueueConcurrentEnqueue(t *testing.T) {
	q := taskqueue.New(4)

	var counter int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_ = q.Enqueue(func() error {
					atomic.AddInt64(&counter, 1)
					return nil
				})
			}
		}()
	}
	wg.Wait()
	q.Stop()

	assert.Equal(t, int64(200), atomic.LoadInt64(&counter))
}
