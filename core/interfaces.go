package core

import "fmt"

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called once per scheduling context, for the first task
// panic that poisons it. Implementations should be thread-safe; the call
// happens on whichever worker observed the failure.
type PanicHandler interface {
	// HandlePanic is called when a task panics.
	//
	// Parameters:
	// - schedulerName: the name of the scheduling context
	// - threadIndex: the worker's index within the scheduler
	// - panicInfo: the panic value recovered from the task
	// - stackTrace: the stack trace at the time of panic
	HandlePanic(schedulerName string, threadIndex int, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler provides a basic panic handler that logs to stdout.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stdout.
func (h *DefaultPanicHandler) HandlePanic(schedulerName string, threadIndex int, panicInfo any, stackTrace []byte) {
	fmt.Printf("[Thread %d @ %s] Panic: %v\nStack trace:\n%s",
		threadIndex, schedulerName, panicInfo, stackTrace)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting scheduler execution metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods run on the scheduling hot path; they must be non-blocking and fast.
type Metrics interface {
	// RecordTaskExecuted records that a task closure ran to completion.
	RecordTaskExecuted(schedulerName string)

	// RecordSteal records that a worker claimed a task from a peer's queue.
	RecordSteal(schedulerName string)

	// RecordTaskPanic records that a task panicked and poisoned the scheduler.
	RecordTaskPanic(schedulerName string, panicInfo any)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

// RecordTaskExecuted is a no-op.
func (m *NilMetrics) RecordTaskExecuted(schedulerName string) {}

// RecordSteal is a no-op.
func (m *NilMetrics) RecordSteal(schedulerName string) {}

// RecordTaskPanic is a no-op.
func (m *NilMetrics) RecordTaskPanic(schedulerName string, panicInfo any) {}

// =============================================================================
// SchedulerConfig: Configuration for TaskScheduler
// =============================================================================

// SchedulerConfig holds configuration options for a TaskScheduler.
// All handlers are optional; if not provided, default implementations will be used.
type SchedulerConfig struct {
	// Name labels the scheduler in logs and metrics. Defaults to "scheduler".
	Name string

	// PanicHandler is called for the first task panic. Defaults to DefaultPanicHandler.
	PanicHandler PanicHandler

	// Metrics is called to record execution metrics. Defaults to NilMetrics.
	Metrics Metrics

	// Logger receives scheduler lifecycle messages. Defaults to NewDefaultLogger().
	Logger Logger
}

// DefaultSchedulerConfig returns a config with default handlers.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		Name:         "scheduler",
		PanicHandler: &DefaultPanicHandler{},
		Metrics:      &NilMetrics{},
		Logger:       NewDefaultLogger(),
	}
}
