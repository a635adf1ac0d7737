package core

import (
	"runtime/debug"
	"strings"
	"sync/atomic"
)

// Closure is the unit of work executed by the scheduler. The Thread argument
// is the worker context the closure runs on; use it to spawn child tasks and
// to wait for them.
type Closure func(thread *Thread)

// Task states. The zero value is taskStateDone so that unused queue slots
// read as already-claimed and a racing thief simply loses the claim.
const (
	taskStateDone uint32 = iota
	taskStateInitialized
)

// Task is a closure plus the dependency accounting that ties it into the
// fork/join tree. A task lives inside a queue slot; its address is stable for
// as long as its dependency count is non-zero.
type Task struct {
	state        atomic.Uint32
	dependencies atomic.Int64
	closure      Closure
	parent       *Task
	size         int64
	stealable    bool
}

// addDependencies adjusts the dependency counter: +1 per spawned child,
// -1 per completed child (and once for the task's own execution).
func (t *Task) addDependencies(n int64) {
	t.dependencies.Add(n)
}

// init arms a queue slot with a fresh task. The parent gains a dependency
// before the state flips to initialized, so a thief that claims this task can
// never observe the parent without the extra reference.
func (t *Task) init(closure Closure, parent *Task, size int64) {
	t.closure = closure
	t.parent = parent
	t.size = size
	t.stealable = true
	t.dependencies.Store(1)
	if parent != nil {
		parent.addDependencies(1)
	}
	t.state.Store(taskStateInitialized)
}

// initStolen arms the thief-side copy of a stolen task. The copy's parent is
// the abandoned original: when the copy finishes it releases the original,
// and the original (still sitting in the victim's queue) releases the real
// parent when the victim pops it. That keeps "decrement the parent exactly
// once" true on both sides of the steal.
func (t *Task) initStolen(closure Closure, parent *Task) {
	t.closure = closure
	t.parent = parent
	t.size = 1
	t.stealable = false
	t.dependencies.Store(1)
	t.state.Store(taskStateInitialized)
}

// trySteal attempts to claim this task for execution elsewhere. On success
// the original is marked done (it degrades to a join node) and child is armed
// as the runnable copy in the thief's queue.
func (t *Task) trySteal(child *Task) bool {
	if !t.stealable {
		return false
	}
	if !t.state.CompareAndSwap(taskStateInitialized, taskStateDone) {
		return false
	}
	child.initStolen(t.closure, t)
	return true
}

// run executes this task on the given thread and blocks until every
// transitively spawned child has completed.
//
// Whoever flips the state initialized->done runs the closure; a task that was
// already claimed by a thief skips execution but still participates in the
// drain below, because its dependency counter only reaches zero once the
// stolen copy has finished.
func (t *Task) run(thread *Thread) {
	scheduler := thread.scheduler

	if t.state.CompareAndSwap(taskStateInitialized, taskStateDone) {
		prevTask := thread.task
		thread.task = t
		if scheduler.cancelling() == nil {
			rightBefore := thread.tasks.right.Load()
			if t.invoke(thread) {
				scheduler.noteExecuted()
				if thread.tasks.right.Load() != rightBefore {
					panic("workstealing: task returned with spawned subtasks still queued; call Wait before returning")
				}
			}
		}
		thread.task = prevTask
		t.addDependencies(-1)
	}

	// Steal until all dependencies have completed. Local tasks above this one
	// are our own children; prefer them over stealing.
	stealLoop(thread,
		func() bool { return t.dependencies.Load() > 0 },
		func() {
			for thread.tasks.executeLocal(thread, t) {
			}
		})

	// Signal our parent that we are finished.
	if t.parent != nil {
		t.parent.addDependencies(-1)
	}
}

// invoke runs the closure, converting a panic into the scheduler's cancelling
// failure. Returns false if the closure panicked. The scheduler's own
// "workstealing: " diagnostics (structural and capacity violations raised by
// nested tasks) are fatal and are re-raised instead of captured.
func (t *Task) invoke(thread *Thread) (completed bool) {
	defer func() {
		if r := recover(); r != nil {
			if msg, ok := r.(string); ok && strings.HasPrefix(msg, "workstealing: ") {
				panic(r)
			}
			thread.scheduler.capturePanic(r, debug.Stack(), thread.threadIndex)
		}
	}()
	t.closure(thread)
	return true
}
