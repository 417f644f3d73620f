package taskqueue

import (
	"errors"
	"log"
	"sync"
)

// Task is one unit of work. Errors are logged at the pool boundary; they
// never terminate a worker.
type Task func() error

// Queue is a fixed-size worker pool draining a shared FIFO. Queued work
// still runs during shutdown; in-flight tasks are never cancelled.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	tasks   []Task
	stopped bool
	wg      sync.WaitGroup
}

var ErrStopped = errors.New("task queue stopped")

func New(workers int) *Queue {
	if workers < 1 {
		workers = 1
	}

	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)

	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go q.workerLoop(i)
	}
	return q
}

// Enqueue appends a task and wakes one waiting worker.
func (q *Queue) Enqueue(task Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return ErrStopped
	}
	q.tasks = append(q.tasks, task)
	q.cond.Signal()
	return nil
}

// Stop wakes all workers and blocks until the queue is drained and every
// worker has exited.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.cond.Broadcast()
	q.wg.Wait()
}

func (q *Queue) workerLoop(id int) {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		for !q.stopped && len(q.tasks) == 0 {
			q.cond.Wait()
		}
		if q.stopped && len(q.tasks) == 0 {
			q.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		q.run(id, task)
	}
}

func (q *Queue) run(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("taskqueue: worker %d recovered from panic: %v", id, r)
		}
	}()

	if err := task(); err != nil {
		log.Printf("taskqueue: worker %d task failed: %v", id, err)
	}
}
