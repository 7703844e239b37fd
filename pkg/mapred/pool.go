package mapred

import (
	"fmt"
	"sync"
)

// workerPool runs submitted tasks on a fixed number of goroutines.
// Task panics are recovered and surfaced as errors so a bad record
// cannot take down a whole round.
type workerPool struct {
	taskQueue chan func() error
	wg        sync.WaitGroup

	mu     sync.RWMutex // protects taskQueue from concurrent close during send
	closed bool         // protected by mu
	once   sync.Once

	errMu    sync.Mutex
	firstErr error
}

func newWorkerPool(workers int) *workerPool {
	if workers <= 0 {
		workers = 1
	}

	pool := &workerPool{
		taskQueue: make(chan func() error, workers*2),
	}

	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go pool.worker()
	}

	return pool
}

func (wp *workerPool) worker() {
	defer wp.wg.Done()

	for task := range wp.taskQueue {
		err := func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("task panic: %v", r)
				}
			}()
			return task()
		}()

		if err != nil {
			wp.errMu.Lock()
			if wp.firstErr == nil {
				wp.firstErr = err
			}
			wp.errMu.Unlock()
		}
	}
}

// submit queues a task. Returns false if the pool has been closed.
func (wp *workerPool) submit(task func() error) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return false
	}

	wp.taskQueue <- task
	return true
}

// close drains the queue, waits for all workers to finish and returns
// the first task error, if any.
func (wp *workerPool) close() error {
	wp.once.Do(func() {
		wp.mu.Lock()
		wp.closed = true
		close(wp.taskQueue)
		wp.mu.Unlock()
	})
	wp.wg.Wait()

	wp.errMu.Lock()
	defer wp.errMu.Unlock()
	return wp.firstErr
}
