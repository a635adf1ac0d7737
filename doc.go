// Package workstealing provides a fork/join task scheduler with work
// stealing for fine-grained, nested parallelism inside a single process.
//
// A shared pool of workers is multiplexed across independent scheduling
// contexts. Each worker owns a task deque: it pushes and pops its own tasks
// at the right end (LIFO, cache-hot), while idle workers steal the oldest
// tasks from the left end (FIFO). Tasks spawned by a running task become its
// children; a parent must wait for its children before returning, and the
// first failure inside any task cancels the rest of its scheduling context
// and surfaces to the submitter.
//
// # Quick Start
//
// Initialize the global thread pool at application startup:
//
//	workstealing.Create(4, false) // 4 workers, no CPU pinning
//	defer workstealing.Destroy()
//
// Run a parallel region and wait for it:
//
//	err := workstealing.SpawnRootAndWait(1, func(t *workstealing.Thread) {
//		for i := 0; i < 8; i++ {
//			i := i
//			t.Spawn(1, func(t *workstealing.Thread) {
//				process(i)
//			})
//		}
//		t.Wait()
//	})
//
// Or use the loop helpers built on top:
//
//	err := workstealing.ParallelFor(0, int64(len(items)), 64, func(i int64) {
//		process(items[i])
//	})
//
// # Key Concepts
//
// Thread: the per-worker context handed to every closure. Spawn enqueues a
// child task under the currently running task; Wait drains local work until
// all direct children have completed.
//
// TaskScheduler: one scheduling context. Multiple schedulers can share the
// same ThreadPool; work and failures never leak between them.
//
// ThreadPool: the process-wide worker set. Workers serve the front scheduler
// until its work drains, then move on.
//
// # Failure Semantics
//
// A panicking task poisons its scheduler: remaining tasks are claimed and
// accounted for but not executed, the region drains cleanly, and the first
// panic value is returned to the submitter as a *core.TaskPanicError.
//
// For more details, see https://github.com/Swind/go-work-stealing
package workstealing
