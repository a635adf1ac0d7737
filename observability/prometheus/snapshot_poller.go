package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-work-stealing/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// SchedulerSnapshotProvider provides current scheduler stats snapshots.
type SchedulerSnapshotProvider interface {
	Stats() core.SchedulerStats
}

// PoolSnapshotProvider provides current pool stats snapshots.
type PoolSnapshotProvider interface {
	Stats() core.PoolStats
}

// SnapshotPoller periodically exports scheduler/pool Stats() snapshots into
// Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	schedulersMu sync.RWMutex
	schedulers   map[string]SchedulerSnapshotProvider

	poolsMu sync.RWMutex
	pools   map[string]PoolSnapshotProvider

	schedulerThreads   *prom.GaugeVec
	schedulerActive    *prom.GaugeVec
	schedulerQueued    *prom.GaugeVec
	schedulerExecuted  *prom.GaugeVec
	schedulerStolen    *prom.GaugeVec
	schedulerCancelled *prom.GaugeVec

	poolWorkers        *prom.GaugeVec
	poolRunningWorkers *prom.GaugeVec
	poolSchedulers     *prom.GaugeVec
	poolRunning        *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	schedulerThreads := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "workstealing",
		Name:      "scheduler_threads",
		Help:      "Number of threads bound per scheduler.",
	}, []string{"scheduler"})
	schedulerActive := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "workstealing",
		Name:      "scheduler_active",
		Help:      "Drain counter per scheduler (outstanding roots plus busy workers).",
	}, []string{"scheduler"})
	schedulerQueued := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "workstealing",
		Name:      "scheduler_queued",
		Help:      "Queued task slots across all threads per scheduler.",
	}, []string{"scheduler"})
	schedulerExecuted := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "workstealing",
		Name:      "scheduler_executed",
		Help:      "Executed task count snapshot per scheduler.",
	}, []string{"scheduler"})
	schedulerStolen := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "workstealing",
		Name:      "scheduler_stolen",
		Help:      "Stolen task count snapshot per scheduler.",
	}, []string{"scheduler"})
	schedulerCancelled := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "workstealing",
		Name:      "scheduler_cancelled",
		Help:      "Scheduler poisoned state (1=cancelled, 0=healthy).",
	}, []string{"scheduler"})

	poolWorkers := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "workstealing",
		Name:      "pool_workers",
		Help:      "Configured worker count per pool.",
	}, []string{"pool"})
	poolRunningWorkers := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "workstealing",
		Name:      "pool_running_workers",
		Help:      "Running worker count per pool.",
	}, []string{"pool"})
	poolSchedulers := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "workstealing",
		Name:      "pool_schedulers",
		Help:      "Attached scheduler count per pool.",
	}, []string{"pool"})
	poolRunning := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "workstealing",
		Name:      "pool_running",
		Help:      "Pool running state (1=running, 0=stopped).",
	}, []string{"pool"})

	var err error
	if schedulerThreads, err = registerCollector(reg, schedulerThreads); err != nil {
		return nil, err
	}
	if schedulerActive, err = registerCollector(reg, schedulerActive); err != nil {
		return nil, err
	}
	if schedulerQueued, err = registerCollector(reg, schedulerQueued); err != nil {
		return nil, err
	}
	if schedulerExecuted, err = registerCollector(reg, schedulerExecuted); err != nil {
		return nil, err
	}
	if schedulerStolen, err = registerCollector(reg, schedulerStolen); err != nil {
		return nil, err
	}
	if schedulerCancelled, err = registerCollector(reg, schedulerCancelled); err != nil {
		return nil, err
	}
	if poolWorkers, err = registerCollector(reg, poolWorkers); err != nil {
		return nil, err
	}
	if poolRunningWorkers, err = registerCollector(reg, poolRunningWorkers); err != nil {
		return nil, err
	}
	if poolSchedulers, err = registerCollector(reg, poolSchedulers); err != nil {
		return nil, err
	}
	if poolRunning, err = registerCollector(reg, poolRunning); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:           interval,
		schedulers:         make(map[string]SchedulerSnapshotProvider),
		pools:              make(map[string]PoolSnapshotProvider),
		schedulerThreads:   schedulerThreads,
		schedulerActive:    schedulerActive,
		schedulerQueued:    schedulerQueued,
		schedulerExecuted:  schedulerExecuted,
		schedulerStolen:    schedulerStolen,
		schedulerCancelled: schedulerCancelled,
		poolWorkers:        poolWorkers,
		poolRunningWorkers: poolRunningWorkers,
		poolSchedulers:     poolSchedulers,
		poolRunning:        poolRunning,
	}, nil
}

// AddScheduler adds or replaces a scheduler snapshot provider by name.
func (p *SnapshotPoller) AddScheduler(name string, provider SchedulerSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "scheduler")
	p.schedulersMu.Lock()
	p.schedulers[name] = provider
	p.schedulersMu.Unlock()
}

// AddPool adds or replaces a pool snapshot provider by name.
func (p *SnapshotPoller) AddPool(name string, provider PoolSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "pool")
	p.poolsMu.Lock()
	p.pools[name] = provider
	p.poolsMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.schedulersMu.RLock()
	for name, provider := range p.schedulers {
		stats := provider.Stats()
		p.schedulerThreads.WithLabelValues(name).Set(float64(stats.Threads))
		p.schedulerActive.WithLabelValues(name).Set(float64(stats.Active))
		p.schedulerQueued.WithLabelValues(name).Set(float64(stats.Queued))
		p.schedulerExecuted.WithLabelValues(name).Set(float64(stats.Executed))
		p.schedulerStolen.WithLabelValues(name).Set(float64(stats.Stolen))
		if stats.Cancelled {
			p.schedulerCancelled.WithLabelValues(name).Set(1)
		} else {
			p.schedulerCancelled.WithLabelValues(name).Set(0)
		}
	}
	p.schedulersMu.RUnlock()

	p.poolsMu.RLock()
	for name, provider := range p.pools {
		stats := provider.Stats()
		p.poolWorkers.WithLabelValues(name).Set(float64(stats.Workers))
		p.poolRunningWorkers.WithLabelValues(name).Set(float64(stats.RunningWorkers))
		p.poolSchedulers.WithLabelValues(name).Set(float64(stats.Schedulers))
		if stats.Running {
			p.poolRunning.WithLabelValues(name).Set(1)
		} else {
			p.poolRunning.WithLabelValues(name).Set(0)
		}
	}
	p.poolsMu.RUnlock()
}
