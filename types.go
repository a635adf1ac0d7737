package workstealing

import "github.com/Swind/go-work-stealing/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the workstealing package for most use cases.

// Closure is the unit of work executed by the scheduler
type Closure = core.Closure

// Thread is the per-worker context handed to every closure
type Thread = core.Thread

// TaskScheduler is one scheduling context sharing the thread pool
type TaskScheduler = core.TaskScheduler

// ThreadPool is the process-wide worker set
type ThreadPool = core.ThreadPool

// SchedulerConfig configures handlers and metrics for a TaskScheduler
type SchedulerConfig = core.SchedulerConfig

// TaskPanicError is the failure surfaced to the submitter
type TaskPanicError = core.TaskPanicError

// Logger and Field are the structured logging surface
type Logger = core.Logger
type Field = core.Field

// Observability snapshots
type SchedulerStats = core.SchedulerStats
type PoolStats = core.PoolStats

// Handler interfaces
type PanicHandler = core.PanicHandler
type Metrics = core.Metrics

// Convenience constructors re-exported from core
var (
	NewTaskScheduler           = core.NewTaskScheduler
	NewTaskSchedulerWithConfig = core.NewTaskSchedulerWithConfig
	NewThreadPool              = core.NewThreadPool
	DefaultSchedulerConfig     = core.DefaultSchedulerConfig
	NewDefaultLogger           = core.NewDefaultLogger
	NewNoOpLogger              = core.NewNoOpLogger
	F                          = core.F
)
