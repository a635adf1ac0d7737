package core

import (
	"sync/atomic"
	"testing"
	"time"
)

// TestThreadPool_StartThreadsIdempotent verifies repeated starts are no-ops
// Given: a pool configured for 2 workers
// When: StartThreads is called twice
// Then: the pool still reports 2 running workers and stays running
func TestThreadPool_StartThreadsIdempotent(t *testing.T) {
	// Arrange
	pool := NewThreadPool(false)
	pool.SetLogger(NewNoOpLogger())
	pool.SetNumThreads(2, false)

	// Act
	pool.StartThreads()
	pool.StartThreads()
	defer pool.Shutdown()

	// Assert
	stats := pool.Stats()
	if !stats.Running {
		t.Error("Running: got = false, want true")
	}
	if stats.RunningWorkers != 2 {
		t.Errorf("RunningWorkers: got = %d, want 2", stats.RunningWorkers)
	}
	if stats.Workers != 2 {
		t.Errorf("Workers: got = %d, want 2", stats.Workers)
	}
}

// TestThreadPool_AddRemoveScheduler verifies attach/detach round-trips
// Given: a running pool
// When: a scheduler is added and then removed
// Then: the attached count returns to its prior value
func TestThreadPool_AddRemoveScheduler(t *testing.T) {
	// Arrange
	pool := newTestPool(2)
	defer pool.Shutdown()
	scheduler := newQuietScheduler("roundtrip")

	before := pool.Stats().Schedulers

	// Act
	pool.Add(scheduler)
	during := pool.Stats().Schedulers
	pool.Remove(scheduler)
	after := pool.Stats().Schedulers

	// Assert
	if during != before+1 {
		t.Errorf("schedulers after Add: got = %d, want %d", during, before+1)
	}
	if after != before {
		t.Errorf("schedulers after Remove: got = %d, want %d", after, before)
	}

	// Removing a scheduler that is not attached is a no-op
	pool.Remove(scheduler)
	if got := pool.Stats().Schedulers; got != before {
		t.Errorf("schedulers after double Remove: got = %d, want %d", got, before)
	}
}

// TestThreadPool_ResizeUnderLoad verifies shrink during active work
// Given: a pool of 8 workers running a long task chain
// When: the pool is resized to 4 while the chain runs
// Then: the chain completes with the correct result and the pool reports 4
func TestThreadPool_ResizeUnderLoad(t *testing.T) {
	// Arrange
	pool := newTestPool(8)
	defer pool.Shutdown()
	scheduler := newQuietScheduler("resize")

	var count atomic.Int64
	resized := make(chan struct{})

	go func() {
		// Give the chain a moment to spread across workers, then shrink.
		time.Sleep(10 * time.Millisecond)
		pool.SetNumThreads(4, true)
		close(resized)
	}()

	// Act
	err := scheduler.SpawnRoot(pool, 2000, func(th *Thread) {
		for i := 0; i < 2000; i++ {
			th.Spawn(1, func(th *Thread) {
				count.Add(1)
			})
		}
		th.Wait()
	})
	<-resized

	// Assert
	if err != nil {
		t.Fatalf("SpawnRoot: got = %v, want nil", err)
	}
	if got := count.Load(); got != 2000 {
		t.Errorf("count: got = %d, want 2000", got)
	}
	if got := pool.Size(); got != 4 {
		t.Errorf("Size after resize: got = %d, want 4", got)
	}
	if got := pool.Stats().RunningWorkers; got != 4 {
		t.Errorf("RunningWorkers after resize: got = %d, want 4", got)
	}
}

// TestThreadPool_Shutdown verifies teardown joins every worker
// Given: a running pool with 4 workers
// When: Shutdown is called
// Then: the pool reports stopped with zero running workers, and a second
// Shutdown is safe
func TestThreadPool_Shutdown(t *testing.T) {
	// Arrange
	pool := newTestPool(4)

	// Act
	pool.Shutdown()

	// Assert
	stats := pool.Stats()
	if stats.Running {
		t.Error("Running after Shutdown: got = true, want false")
	}
	if stats.RunningWorkers != 0 {
		t.Errorf("RunningWorkers after Shutdown: got = %d, want 0", stats.RunningWorkers)
	}

	pool.Shutdown()
}

// TestThreadPool_GrowUnderLoad verifies growth while serving a scheduler
// Given: a pool of 2 workers with an active scheduler
// When: the pool grows to 4 mid-run
// Then: the work completes and the pool reports 4 running workers
func TestThreadPool_GrowUnderLoad(t *testing.T) {
	// Arrange
	pool := newTestPool(2)
	defer pool.Shutdown()
	scheduler := newQuietScheduler("grow")

	var count atomic.Int64
	grown := make(chan struct{})

	go func() {
		time.Sleep(10 * time.Millisecond)
		pool.SetNumThreads(4, true)
		close(grown)
	}()

	// Act
	err := scheduler.SpawnRoot(pool, 2000, func(th *Thread) {
		for i := 0; i < 2000; i++ {
			th.Spawn(1, func(th *Thread) {
				count.Add(1)
			})
		}
		th.Wait()
	})
	<-grown

	// Assert
	if err != nil {
		t.Fatalf("SpawnRoot: got = %v, want nil", err)
	}
	if got := count.Load(); got != 2000 {
		t.Errorf("count: got = %d, want 2000", got)
	}
	if got := pool.Stats().RunningWorkers; got != 4 {
		t.Errorf("RunningWorkers after grow: got = %d, want 4", got)
	}
}

// TestThreadPool_SchedulersServedInOrder verifies sequential contexts drain
// Given: one pool serving two schedulers submitted one after the other
// When: both regions run to completion
// Then: both counters reach their full totals
func TestThreadPool_SchedulersServedInOrder(t *testing.T) {
	// Arrange
	pool := newTestPool(4)
	defer pool.Shutdown()

	var a, b atomic.Int64

	// Act - Two consecutive scheduling contexts on the same pool
	for _, job := range []struct {
		name    string
		counter *atomic.Int64
	}{
		{"first", &a},
		{"second", &b},
	} {
		scheduler := newQuietScheduler(job.name)
		counter := job.counter
		err := scheduler.SpawnRoot(pool, 1000, func(th *Thread) {
			for i := 0; i < 1000; i++ {
				th.Spawn(1, func(th *Thread) {
					counter.Add(1)
				})
			}
			th.Wait()
		})
		if err != nil {
			t.Fatalf("%s SpawnRoot: got = %v, want nil", job.name, err)
		}
	}

	// Assert
	if got := a.Load(); got != 1000 {
		t.Errorf("a: got = %d, want 1000", got)
	}
	if got := b.Load(); got != 1000 {
		t.Errorf("b: got = %d, want 1000", got)
	}
}
