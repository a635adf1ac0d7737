package workstealing

import (
	"sync"

	"github.com/Swind/go-work-stealing/core"
)

// =============================================================================
// Global Thread Pool Helper (Singleton)
// =============================================================================

var (
	globalPool *core.ThreadPool
	globalMu   sync.Mutex
)

// Create initializes the process-wide thread pool. numThreads of 0 means all
// logical CPUs; when setAffinity is true each worker is pinned to the CPU
// matching its thread index. Calling Create again only updates the desired
// thread count.
func Create(numThreads int, setAffinity bool) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalPool == nil {
		globalPool = core.NewThreadPool(setAffinity)
	}
	globalPool.SetNumThreads(numThreads, false)
}

// Destroy tears down the process-wide thread pool, joining all workers.
func Destroy() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalPool != nil {
		globalPool.Shutdown()
		globalPool = nil
	}
}

// StartThreads ensures the pool's workers are spawned; idempotent.
func StartThreads() {
	if pool := getPool(); pool != nil {
		pool.StartThreads()
	}
}

// ThreadCount returns the size of the process-wide thread pool.
func ThreadCount() int {
	if pool := getPool(); pool != nil {
		return pool.Size()
	}
	return 0
}

// AddScheduler attaches a scheduling context to the process-wide pool.
func AddScheduler(scheduler *core.TaskScheduler) {
	if pool := getPool(); pool != nil {
		pool.Add(scheduler)
	}
}

// RemoveScheduler detaches a scheduling context from the process-wide pool.
func RemoveScheduler(scheduler *core.TaskScheduler) {
	if pool := getPool(); pool != nil {
		pool.Remove(scheduler)
	}
}

// GetGlobalThreadPool returns the process-wide pool instance.
// It panics if Create has not been called.
func GetGlobalThreadPool() *core.ThreadPool {
	pool := getPool()
	if pool == nil {
		panic("workstealing: thread pool not initialized. Call Create() first.")
	}
	return pool
}

func getPool() *core.ThreadPool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalPool
}

// SpawnRootAndWait runs closure as the root of a fresh scheduling context on
// the process-wide pool and blocks until the whole task tree has completed.
// The calling goroutine participates as a worker. Returns the first failure
// any task raised, or nil.
func SpawnRootAndWait(size int64, closure Closure) error {
	return SpawnRootAndWaitWithConfig(nil, size, closure)
}

// SpawnRootAndWaitWithConfig is SpawnRootAndWait with a custom scheduler
// configuration (name, panic handler, metrics, logger).
func SpawnRootAndWaitWithConfig(config *SchedulerConfig, size int64, closure Closure) error {
	var scheduler *core.TaskScheduler
	if config != nil {
		scheduler = core.NewTaskSchedulerWithConfig(config)
	} else {
		scheduler = core.NewTaskScheduler()
	}
	return scheduler.SpawnRoot(getPool(), size, closure)
}
