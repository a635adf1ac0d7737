package prometheus

import (
	"errors"
	"fmt"

	"github.com/Swind/go-work-stealing/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	taskExecutedTotal *prom.CounterVec
	taskStolenTotal   *prom.CounterVec
	taskPanicTotal    *prom.CounterVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "workstealing"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}

	executedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_executed_total",
		Help:      "Total number of task closures executed.",
	}, []string{"scheduler"})
	stolenVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_stolen_total",
		Help:      "Total number of tasks claimed from a peer's queue.",
	}, []string{"scheduler"})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_panic_total",
		Help:      "Total number of task panics that poisoned a scheduler.",
	}, []string{"scheduler"})

	var err error
	if executedVec, err = registerCollector(reg, executedVec); err != nil {
		return nil, err
	}
	if stolenVec, err = registerCollector(reg, stolenVec); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		taskExecutedTotal: executedVec,
		taskStolenTotal:   stolenVec,
		taskPanicTotal:    panicVec,
	}, nil
}

// RecordTaskExecuted records a completed task closure.
func (m *MetricsExporter) RecordTaskExecuted(schedulerName string) {
	if m == nil {
		return
	}
	m.taskExecutedTotal.WithLabelValues(normalizeLabel(schedulerName, "unknown")).Inc()
}

// RecordSteal records a successful steal.
func (m *MetricsExporter) RecordSteal(schedulerName string) {
	if m == nil {
		return
	}
	m.taskStolenTotal.WithLabelValues(normalizeLabel(schedulerName, "unknown")).Inc()
}

// RecordTaskPanic records a task panic event.
func (m *MetricsExporter) RecordTaskPanic(schedulerName string, panicInfo any) {
	if m == nil {
		return
	}
	m.taskPanicTotal.WithLabelValues(normalizeLabel(schedulerName, "unknown")).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
