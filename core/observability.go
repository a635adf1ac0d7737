package core

// SchedulerStats represents runtime observability state for a scheduling context.
type SchedulerStats struct {
	Name        string
	Threads     int
	Active      int
	Queued      int
	Executed    int64
	Stolen      int64
	Panicked    int64
	HasRootTask bool
	Cancelled   bool
}

// PoolStats represents runtime observability state for a thread pool.
type PoolStats struct {
	Workers        int
	RunningWorkers int
	Schedulers     int
	Running        bool
	Affinity       bool
}
