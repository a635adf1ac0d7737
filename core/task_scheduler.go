package core

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// threadTableSize returns the size of the per-scheduler thread table. It is
// twice the logical thread count because joining submitters enroll alongside
// the pool's workers; a small floor keeps oversubscribed test pools inside
// the bound.
func threadTableSize() int {
	n := 2 * runtime.GOMAXPROCS(0)
	if n < 64 {
		n = 64
	}
	return n
}

// TaskScheduler is one scheduling context: a logical set of worker threads, a
// root task, and the sticky first-failure slot. Multiple schedulers can share
// one ThreadPool; each is isolated from the others' tasks and failures.
type TaskScheduler struct {
	mu   sync.Mutex
	cond *sync.Cond

	// threadCounter counts the threads currently bound to this scheduler,
	// workers and joining submitters alike.
	threadCounter atomic.Int64

	// anyTasksRunning tracks "is there still work". It is incremented once
	// per outstanding root and once more by every worker that is actively
	// executing tasks, so a worker that just stole work raises it before any
	// peer can observe zero and leave.
	anyTasksRunning atomic.Int64

	// hasRootTask gates joining submitters until a root task exists.
	hasRootTask atomic.Bool

	// cancellingException holds the first failure observed in this context;
	// sticky until the context is reset.
	cancellingException atomic.Pointer[TaskPanicError]

	// threadLocal maps dense thread index -> live Thread. Each slot is
	// written only by its owning thread and read by peers looking for
	// steal victims.
	threadLocal []atomic.Pointer[Thread]

	name         string
	panicHandler PanicHandler
	metrics      Metrics
	logger       Logger

	statExecuted atomic.Int64
	statStolen   atomic.Int64
}

// NewTaskScheduler creates a scheduling context with default handlers.
func NewTaskScheduler() *TaskScheduler {
	return NewTaskSchedulerWithConfig(DefaultSchedulerConfig())
}

// NewTaskSchedulerWithConfig creates a scheduling context with the given
// configuration; nil config or nil fields fall back to the defaults.
func NewTaskSchedulerWithConfig(config *SchedulerConfig) *TaskScheduler {
	s := &TaskScheduler{
		threadLocal: make([]atomic.Pointer[Thread], threadTableSize()),
	}
	s.cond = sync.NewCond(&s.mu)

	if config != nil {
		s.name = config.Name
		s.panicHandler = config.PanicHandler
		s.metrics = config.Metrics
		s.logger = config.Logger
	}
	if s.name == "" {
		s.name = "scheduler"
	}
	if s.panicHandler == nil {
		s.panicHandler = &DefaultPanicHandler{}
	}
	if s.metrics == nil {
		s.metrics = &NilMetrics{}
	}
	if s.logger == nil {
		s.logger = NewDefaultLogger()
	}
	return s
}

// Name returns the scheduler's label used in logs and metrics.
func (s *TaskScheduler) Name() string {
	return s.name
}

// allocThreadIndex hands out the next dense thread index. The table bound is
// hard: exceeding it means more workers plus joiners than the scheduler was
// sized for, which is a configuration error.
func (s *TaskScheduler) allocThreadIndex() int {
	threadIndex := int(s.threadCounter.Add(1)) - 1
	if threadIndex >= len(s.threadLocal) {
		panic("workstealing: thread table exhausted: too many workers bound to one scheduler")
	}
	return threadIndex
}

// SpawnRoot enqueues a root task and drains it to completion, with the
// calling goroutine enrolled as a worker (index zero unless a joiner enrolled
// first). When pool is non-nil the
// scheduler attaches to it for the duration, so the pool's workers help.
//
// The returned error is the first failure any task raised, or nil.
func (s *TaskScheduler) SpawnRoot(pool *ThreadPool, size int64, closure Closure) error {
	if pool != nil {
		pool.StartThreads()
	}

	threadIndex := s.allocThreadIndex()
	thread := newThread(threadIndex, s)
	s.threadLocal[threadIndex].Store(thread)

	thread.tasks.push(thread, size, closure)

	s.mu.Lock()
	s.anyTasksRunning.Add(1)
	s.hasRootTask.Store(true)
	s.cond.Broadcast()
	s.mu.Unlock()

	if pool != nil {
		pool.Add(s)
	}

	for thread.tasks.executeLocal(thread, nil) {
	}
	s.anyTasksRunning.Add(-1)

	if pool != nil {
		pool.Remove(s)
	}

	var err error
	if except := s.cancellingException.Load(); except != nil {
		err = except
	}

	// Wait for all peer threads to leave this context. The sticky failure
	// stays in place until Reset.
	s.threadCounter.Add(-1)
	for s.threadCounter.Load() > 0 {
		runtime.Gosched()
	}

	s.threadLocal[threadIndex].Store(nil)
	return err
}

// Join enrolls the calling goroutine as an extra worker: it blocks until a
// root task exists, serves the context until the work drains, and returns
// the first failure any task raised, or nil.
func (s *TaskScheduler) Join() error {
	s.mu.Lock()
	threadIndex := s.allocThreadIndex()
	for !s.hasRootTask.Load() {
		s.cond.Wait()
	}
	s.mu.Unlock()
	return s.threadLoop(threadIndex)
}

// Reset clears the root-task gate and the sticky failure between consecutive
// submissions.
func (s *TaskScheduler) Reset() {
	s.hasRootTask.Store(false)
	s.cancellingException.Store(nil)
}

// WaitForThreads spins until at least threadCount-1 threads, the caller
// included, have bound to this scheduler. Useful before timing-sensitive regions that assume all workers
// are enrolled.
func (s *TaskScheduler) WaitForThreads(threadCount int) {
	for s.threadCounter.Load() < int64(threadCount)-1 {
		cpuRelax()
	}
}

// threadLoop binds a fresh Thread to the given index and works the context
// until it drains. Returns the sticky failure observed at exit, if any.
func (s *TaskScheduler) threadLoop(threadIndex int) error {
	thread := newThread(threadIndex, s)
	s.threadLocal[threadIndex].Store(thread)

	for s.anyTasksRunning.Load() > 0 {
		stealLoop(thread,
			func() bool { return s.anyTasksRunning.Load() > 0 },
			func() {
				// Raise the drain counter before peers can observe "no work",
				// then run everything the steal brought in.
				s.anyTasksRunning.Add(1)
				for thread.tasks.executeLocal(thread, nil) {
				}
				s.anyTasksRunning.Add(-1)
			})
	}
	s.threadLocal[threadIndex].Store(nil)

	var err error
	if except := s.cancellingException.Load(); except != nil {
		err = except
	}

	// Wait for all threads to terminate before handing the index back, so a
	// reused scheduler never sees two generations of workers at once.
	s.threadCounter.Add(-1)
	for s.threadCounter.Load() > 0 {
		runtime.Gosched()
	}
	return err
}

// stealFromOtherThreads walks the thread table starting just past the caller
// and claims one task from the first peer that has any. Returns true on a
// successful steal.
func (s *TaskScheduler) stealFromOtherThreads(thread *Thread) bool {
	threadIndex := thread.threadIndex
	threadCount := int(s.threadCounter.Load())

	for i := 1; i < threadCount; i++ {
		cpuRelax()
		otherThreadIndex := threadIndex + i
		if otherThreadIndex >= threadCount {
			otherThreadIndex -= threadCount
		}
		if otherThreadIndex < 0 || otherThreadIndex >= len(s.threadLocal) {
			continue
		}

		othread := s.threadLocal[otherThreadIndex].Load()
		if othread == nil {
			continue
		}

		if othread.tasks.steal(thread) {
			s.statStolen.Add(1)
			s.metrics.RecordSteal(s.name)
			return true
		}
	}

	return false
}

// cancelling returns the sticky first failure, or nil.
func (s *TaskScheduler) cancelling() *TaskPanicError {
	return s.cancellingException.Load()
}

// Cancelled reports whether this context has been poisoned by a failure.
func (s *TaskScheduler) Cancelled() bool {
	return s.cancelling() != nil
}

// capturePanic records the first task failure; later failures in the same
// context are discarded. Only the winning write reaches the panic handler.
func (s *TaskScheduler) capturePanic(value any, stack []byte, threadIndex int) {
	err := &TaskPanicError{Value: value, Stack: stack}
	if !s.cancellingException.CompareAndSwap(nil, err) {
		return
	}
	s.metrics.RecordTaskPanic(s.name, value)
	s.logger.Debug("scheduler poisoned by task panic",
		F("scheduler", s.name), F("thread", threadIndex))
	s.panicHandler.HandlePanic(s.name, threadIndex, value, stack)
}

// noteExecuted feeds the execution counters; called once per closure run.
func (s *TaskScheduler) noteExecuted() {
	s.statExecuted.Add(1)
	s.metrics.RecordTaskExecuted(s.name)
}

// ExecutedTasks returns the number of closures this context has run.
func (s *TaskScheduler) ExecutedTasks() int64 {
	return s.statExecuted.Load()
}

// Stats returns current observability data for this scheduler.
func (s *TaskScheduler) Stats() SchedulerStats {
	stats := SchedulerStats{
		Name:        s.name,
		Threads:     int(s.threadCounter.Load()),
		Active:      int(s.anyTasksRunning.Load()),
		Executed:    s.statExecuted.Load(),
		Stolen:      s.statStolen.Load(),
		HasRootTask: s.hasRootTask.Load(),
		Cancelled:   s.Cancelled(),
	}
	if stats.Cancelled {
		stats.Panicked = 1
	}
	for i := range s.threadLocal {
		if th := s.threadLocal[i].Load(); th != nil {
			stats.Queued += th.tasks.span()
		}
	}
	return stats
}
