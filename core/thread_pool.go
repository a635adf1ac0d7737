package core

import (
	"runtime"
	"sync"
)

// poolMu serializes SetNumThreads across every pool in the process, so two
// concurrent resizes cannot interleave their grow/shrink phases.
var poolMu sync.Mutex

// poolThread is the handle for one spawned worker, joinable on shrink or
// teardown.
type poolThread struct {
	globalIndex int
	done        chan struct{}
}

// ThreadPool is the process-wide set of workers that rotate through the
// attached schedulers, serving the front one until its work drains.
//
// Thread index 0 is reserved for the submitting thread and is never spawned
// by the pool.
type ThreadPool struct {
	mu   sync.Mutex
	cond *sync.Cond

	// numThreads is the configured worker count; numThreadsRunning is the
	// count workers compare their index against to decide whether to exit.
	numThreads        int
	numThreadsRunning int

	schedulers []*TaskScheduler
	threads    []*poolThread

	setAffinity bool
	running     bool
	logger      Logger
}

// NewThreadPool creates a stopped pool. Call SetNumThreads or StartThreads to
// spawn workers. When setAffinity is true each worker locks its goroutine to
// an OS thread and pins that thread to the CPU matching its index.
func NewThreadPool(setAffinity bool) *ThreadPool {
	p := &ThreadPool{
		setAffinity: setAffinity,
		logger:      NewDefaultLogger(),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// SetLogger replaces the pool's lifecycle logger.
func (p *ThreadPool) SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	p.mu.Lock()
	p.logger = logger
	p.mu.Unlock()
}

// Size returns the configured worker count.
func (p *ThreadPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.numThreads
}

// StartThreads ensures worker threads are spawned; calling it again after the
// first time is a no-op.
func (p *ThreadPool) StartThreads() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	numThreads := p.numThreads
	p.mu.Unlock()
	p.SetNumThreads(numThreads, true)
}

// SetNumThreads sets the desired worker count. Zero means all logical CPUs.
// Growing spawns workers immediately when the pool is running (or when
// startThreads is set); shrinking lowers the running count, wakes everyone,
// and joins the excess workers as they exit.
func (p *ThreadPool) SetNumThreads(newNumThreads int, startThreads bool) {
	poolMu.Lock()
	defer poolMu.Unlock()

	if newNumThreads == 0 {
		newNumThreads = runtime.GOMAXPROCS(0)
	}

	p.mu.Lock()
	p.numThreads = newNumThreads
	if !startThreads && !p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	numThreadsActive := p.numThreadsRunning
	p.numThreadsRunning = newNumThreads
	p.cond.Broadcast()
	logger := p.logger
	p.mu.Unlock()

	logger.Debug("thread pool resize",
		F("from", numThreadsActive), F("to", newNumThreads))

	// Start new threads. Index 0 belongs to the submitting thread.
	for t := numThreadsActive; t < newNumThreads; t++ {
		if t == 0 {
			continue
		}
		pt := &poolThread{globalIndex: t, done: make(chan struct{})}
		p.mu.Lock()
		p.threads = append(p.threads, pt)
		p.mu.Unlock()
		go p.threadPoolFunction(pt)
	}

	// Stop some threads if we reduce the number of threads.
	for t := numThreadsActive - 1; t >= newNumThreads; t-- {
		if t == 0 {
			continue
		}
		p.mu.Lock()
		last := p.threads[len(p.threads)-1]
		p.threads = p.threads[:len(p.threads)-1]
		p.mu.Unlock()
		<-last.done
	}
}

// Shutdown stops all workers and joins them. Attached schedulers are left in
// place; it is the caller's responsibility to have drained their work.
func (p *ThreadPool) Shutdown() {
	p.mu.Lock()
	p.numThreadsRunning = 0
	p.running = false
	threads := p.threads
	p.threads = nil
	p.cond.Broadcast()
	p.mu.Unlock()

	for _, pt := range threads {
		<-pt.done
	}
}

// Add appends a scheduler to the service list and wakes idle workers.
func (p *ThreadPool) Add(scheduler *TaskScheduler) {
	if scheduler == nil {
		return
	}
	p.mu.Lock()
	p.schedulers = append(p.schedulers, scheduler)
	p.cond.Broadcast()
	p.mu.Unlock()
}

// Remove detaches a scheduler, located by identity. Removing a scheduler that
// is not attached is a no-op.
func (p *ThreadPool) Remove(scheduler *TaskScheduler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, it := range p.schedulers {
		if it == scheduler {
			p.schedulers = append(p.schedulers[:i], p.schedulers[i+1:]...)
			return
		}
	}
}

// Stats returns current observability data for this pool.
func (p *ThreadPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		Workers:        p.numThreads,
		RunningWorkers: p.numThreadsRunning,
		Schedulers:     len(p.schedulers),
		Running:        p.running,
		Affinity:       p.setAffinity,
	}
}

// threadPoolFunction is the top of one worker goroutine.
func (p *ThreadPool) threadPoolFunction(pt *poolThread) {
	defer close(pt.done)

	if p.setAffinity {
		// Pinning needs a stable OS thread underneath the goroutine. The
		// thread is never unlocked: it dies with the worker instead of
		// returning to the runtime with an altered affinity mask.
		runtime.LockOSThread()
		if err := pinThread(pt.globalIndex); err != nil {
			p.logger.Warn("failed to pin worker to CPU",
				F("thread", pt.globalIndex), F("error", err))
		}
	}

	p.threadLoop(pt.globalIndex)
}

// threadLoop serves schedulers until this worker's index falls outside the
// running count. Workers always take the front scheduler; new ones are
// appended, so the front is the oldest outstanding context.
func (p *ThreadPool) threadLoop(globalIndex int) {
	for {
		var scheduler *TaskScheduler
		threadIndex := -1

		p.mu.Lock()
		for globalIndex < p.numThreadsRunning && len(p.schedulers) == 0 {
			p.cond.Wait()
		}
		if globalIndex >= p.numThreadsRunning {
			p.mu.Unlock()
			return
		}
		scheduler = p.schedulers[0]
		threadIndex = scheduler.allocThreadIndex()
		p.mu.Unlock()

		// Serve the scheduler until its work drains. The scheduler hands the
		// sticky failure to its submitter; the pool ignores it.
		_ = scheduler.threadLoop(threadIndex)
	}
}
