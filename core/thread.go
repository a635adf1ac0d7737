package core

import "runtime"

const (
	// stealRounds is the number of yield rounds the steal loop makes before
	// starting over. There is no bounded exit: the predicate is the only one.
	stealRounds = 32

	// stealSpins is the spin budget per round, strided by the live thread
	// count so that threads probe out of phase with each other.
	stealSpins = 1024
)

// Thread is the per-worker context: a dense index within its scheduler, the
// thread's task queue, and the task it is currently executing.
//
// A Thread is handed to every closure; it is the submission surface for child
// tasks. Threads are not safe for use from goroutines other than the worker
// they belong to.
type Thread struct {
	threadIndex int
	scheduler   *TaskScheduler
	task        *Task
	tasks       TaskQueue
}

// newThread heap-allocates a worker context; the embedded queue is too large
// to live on a stack frame that the steal loop keeps recursing over.
func newThread(threadIndex int, scheduler *TaskScheduler) *Thread {
	return &Thread{threadIndex: threadIndex, scheduler: scheduler}
}

// Index returns this thread's dense index within its scheduler.
func (t *Thread) Index() int {
	return t.threadIndex
}

// Scheduler returns the scheduling context this thread is bound to.
func (t *Thread) Scheduler() *TaskScheduler {
	return t.scheduler
}

// Spawn pushes a new child task under the currently running task. It returns
// once the task is enqueued; it does not wait. The size argument is a hint
// for how much work the task represents, consulted by thieves deciding
// whether a steal is worthwhile.
func (t *Thread) Spawn(size int64, closure Closure) {
	t.tasks.push(t, size, closure)
}

// Wait drains the local queue until every task spawned by the current task
// has completed. A task that spawns children must call Wait before returning.
//
// Returns false when the scheduler has been poisoned by a failure; callers
// should stop spawning further work in that case.
func (t *Thread) Wait() bool {
	for t.tasks.executeLocal(t, t.task) {
	}
	return t.scheduler.cancelling() == nil
}

// QueuedTasks is a snapshot of how many tasks sit in this thread's queue.
func (t *Thread) QueuedTasks() int {
	return t.tasks.span()
}

// StealableTaskSize reports the size hint of the oldest queued task, the one
// a thief would claim next, or 0 when there is nothing to steal.
func (t *Thread) StealableTaskSize() int64 {
	return t.tasks.taskSizeAtLeft()
}

// threadCount is the number of threads currently bound to the scheduler.
func (t *Thread) threadCount() int {
	return int(t.scheduler.threadCounter.Load())
}

// stealLoop runs body every time a steal succeeds, until pred turns false.
// Structure: up to stealRounds rounds of stealSpins spin attempts each; a
// successful steal resets both counters, an exhausted round yields the OS
// thread. Callers must guarantee that pred eventually becomes false.
func stealLoop(thread *Thread, pred func() bool, body func()) {
	for {
		for i := 0; i < stealRounds; i++ {
			threadCount := thread.threadCount()
			if threadCount < 1 {
				threadCount = 1
			}
			for j := 0; j < stealSpins; j += threadCount {
				if !pred() {
					return
				}
				if thread.scheduler.stealFromOtherThreads(thread) {
					i, j = 0, 0
					body()
				}
			}
			runtime.Gosched()
		}
	}
}

// cpuRelax backs concurrent thieves off from each other between victim
// probes. Go exposes no portable pause instruction, so this yields instead.
func cpuRelax() {
	runtime.Gosched()
}
