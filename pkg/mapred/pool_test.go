package mapred

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

// TestWorkerPoolRunsTasks verifies submitted tasks all execute
func TestWorkerPoolRunsTasks(t *testing.T) {
	pool := newWorkerPool(4)

	var counter int64
	for i := 0; i < 100; i++ {
		pool.submit(func() error {
			atomic.AddInt64(&counter, 1)
			return nil
		})
	}

	if err := pool.close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if counter != 100 {
		t.Errorf("expected 100 tasks run, got %d", counter)
	}
}

// TestWorkerPoolReportsFirstError verifies a task error is returned
// from close
func TestWorkerPoolReportsFirstError(t *testing.T) {
	pool := newWorkerPool(2)
	boom := errors.New("boom")

	pool.submit(func() error { return nil })
	pool.submit(func() error { return boom })

	if err := pool.close(); !errors.Is(err, boom) {
		t.Errorf("expected task error, got %v", err)
	}
}

// TestWorkerPoolRecoversPanics verifies a panicking task becomes an
// error instead of crashing the worker
func TestWorkerPoolRecoversPanics(t *testing.T) {
	pool := newWorkerPool(2)

	pool.submit(func() error { panic("bad task") })

	if err := pool.close(); err == nil {
		t.Error("expected panic to surface as error")
	}
}

// TestWorkerPoolSubmitAfterClose verifies submission to a closed pool
// is refused, not a panic
func TestWorkerPoolSubmitAfterClose(t *testing.T) {
	pool := newWorkerPool(2)
	if err := pool.close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if ok := pool.submit(func() error { return nil }); ok {
		t.Error("closed pool accepted a task")
	}
}

// TestWorkerPoolConcurrentSubmitters verifies concurrent submissions
// are all executed
func TestWorkerPoolConcurrentSubmitters(t *testing.T) {
	pool := newWorkerPool(8)

	var counter int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				pool.submit(func() error {
					atomic.AddInt64(&counter, 1)
					return nil
				})
			}
		}()
	}
	wg.Wait()

	if err := pool.close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if counter != 500 {
		t.Errorf("expected 500 tasks run, got %d", counter)
	}
}
