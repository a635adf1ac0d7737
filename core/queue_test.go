package core

import (
	"testing"
)

func newTestScheduler() *TaskScheduler {
	config := DefaultSchedulerConfig()
	config.Logger = NewNoOpLogger()
	return NewTaskSchedulerWithConfig(config)
}

// newBoundThread creates a thread registered in the scheduler's table, the
// way SpawnRoot and threadLoop do it.
func newBoundThread(s *TaskScheduler) *Thread {
	index := s.allocThreadIndex()
	thread := newThread(index, s)
	s.threadLocal[index].Store(thread)
	return thread
}

// TestTaskQueue_LIFOOrder verifies owner-side execution order
// Given: a thread whose queue holds three tasks pushed in order
// When: the owner drains its local queue
// Then: tasks execute newest-first (LIFO) and the queue ends empty
func TestTaskQueue_LIFOOrder(t *testing.T) {
	// Arrange
	s := newTestScheduler()
	thread := newBoundThread(s)

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		thread.tasks.push(thread, 1, func(th *Thread) {
			order = append(order, i)
		})
	}

	// Act
	for thread.tasks.executeLocal(thread, nil) {
	}

	// Assert - Newest task ran first
	want := []int{2, 1, 0}
	if len(order) != len(want) {
		t.Fatalf("executed count: got = %d, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d]: got = %d, want %d", i, order[i], want[i])
		}
	}
	if got := thread.tasks.span(); got != 0 {
		t.Errorf("queue span after drain: got = %d, want 0", got)
	}
}

// TestTaskQueue_Bounds verifies index invariants across push and pop
// Given: a thread queue with a handful of tasks
// When: tasks are pushed and drained
// Then: 0 <= left <= right holds at every observation point
func TestTaskQueue_Bounds(t *testing.T) {
	// Arrange
	s := newTestScheduler()
	thread := newBoundThread(s)
	q := &thread.tasks

	check := func(step string) {
		left, right := q.left.Load(), q.right.Load()
		if left < 0 || left > right || right > taskStackSize {
			t.Fatalf("%s: invariant violated: left = %d, right = %d", step, left, right)
		}
	}

	// Act / Assert - Invariant holds after every operation
	check("empty")
	for i := 0; i < 5; i++ {
		q.push(thread, 1, func(th *Thread) {})
		check("push")
	}
	for q.executeLocal(thread, nil) {
		check("pop")
	}
	check("drained")
}

// TestTaskQueue_StealMovesOldest verifies the thief takes the left end
// Given: an owner queue with two tasks and an idle thief thread
// When: the thief steals once and both threads drain
// Then: the oldest task runs on the thief, each closure runs exactly once
func TestTaskQueue_StealMovesOldest(t *testing.T) {
	// Arrange
	s := newTestScheduler()
	owner := newBoundThread(s)
	thief := newBoundThread(s)

	var ranOld, ranNew int
	var oldOn, newOn *Thread
	owner.tasks.push(owner, 1, func(th *Thread) {
		ranOld++
		oldOn = th
	})
	owner.tasks.push(owner, 1, func(th *Thread) {
		ranNew++
		newOn = th
	})

	// Act - Thief claims one task, then both queues drain
	if !owner.tasks.steal(thief) {
		t.Fatal("steal: got = false, want true")
	}
	for thief.tasks.executeLocal(thief, nil) {
	}
	for owner.tasks.executeLocal(owner, nil) {
	}

	// Assert - Oldest ran on the thief, newest on the owner, once each
	if ranOld != 1 || ranNew != 1 {
		t.Errorf("execution counts: got = (%d, %d), want (1, 1)", ranOld, ranNew)
	}
	if oldOn != thief {
		t.Error("oldest task thread: got = owner, want thief")
	}
	if newOn != owner {
		t.Error("newest task thread: got = thief, want owner")
	}
}

// TestTaskQueue_StealEmpty verifies stealing from an empty queue fails
// Given: a thread with an empty queue
// When: a thief attempts a steal
// Then: the steal returns false and the thief's queue stays empty
func TestTaskQueue_StealEmpty(t *testing.T) {
	// Arrange
	s := newTestScheduler()
	owner := newBoundThread(s)
	thief := newBoundThread(s)

	// Act
	stolen := owner.tasks.steal(thief)

	// Assert
	if stolen {
		t.Error("steal on empty queue: got = true, want false")
	}
	if got := thief.tasks.span(); got != 0 {
		t.Errorf("thief queue span: got = %d, want 0", got)
	}
}

// TestTaskQueue_TaskSizeAtLeft verifies the steal-worthiness hint
// Given: a queue with tasks of sizes 7 and 3 pushed in order
// When: the left-end size hint is read
// Then: it reports the oldest task's size, and 0 once the queue is empty
func TestTaskQueue_TaskSizeAtLeft(t *testing.T) {
	// Arrange
	s := newTestScheduler()
	thread := newBoundThread(s)

	if got := thread.StealableTaskSize(); got != 0 {
		t.Errorf("empty queue hint: got = %d, want 0", got)
	}

	// Act
	thread.tasks.push(thread, 7, func(th *Thread) {})
	thread.tasks.push(thread, 3, func(th *Thread) {})

	// Assert - Left end is the first push
	if got := thread.StealableTaskSize(); got != 7 {
		t.Errorf("size at left: got = %d, want 7", got)
	}

	for thread.tasks.executeLocal(thread, nil) {
	}
	if got := thread.StealableTaskSize(); got != 0 {
		t.Errorf("drained queue hint: got = %d, want 0", got)
	}
}

// TestTaskQueue_Overflow verifies capacity violations are fatal
// Given: a queue filled to capacity
// When: one more task is pushed
// Then: the push panics with a queue overflow diagnostic
func TestTaskQueue_Overflow(t *testing.T) {
	// Arrange
	s := newTestScheduler()
	thread := newBoundThread(s)
	for i := 0; i < taskStackSize; i++ {
		thread.tasks.tasks[i].init(func(th *Thread) {}, nil, 1)
	}
	thread.tasks.right.Store(taskStackSize)

	// Act / Assert
	defer func() {
		if recover() == nil {
			t.Error("push past capacity: got = no panic, want panic")
		}
	}()
	thread.tasks.push(thread, 1, func(th *Thread) {})
}
