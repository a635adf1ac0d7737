package workstealing

// =============================================================================
// Loop helpers built on Spawn/Wait
// =============================================================================

// ParallelFor runs body(i) for every i in [begin, end), splitting the range
// recursively until pieces are at most grain wide. Pieces execute on the
// process-wide pool; the call returns once every iteration has completed, or
// with the first failure a body raised.
func ParallelFor(begin, end, grain int64, body func(i int64)) error {
	if begin >= end {
		return nil
	}
	if grain < 1 {
		grain = 1
	}
	return SpawnRootAndWait(end-begin, func(t *Thread) {
		parallelForRange(t, begin, end, grain, body)
	})
}

func parallelForRange(t *Thread, begin, end, grain int64, body func(i int64)) {
	if end-begin <= grain {
		for i := begin; i < end; i++ {
			body(i)
		}
		return
	}

	mid := begin + (end-begin)/2
	t.Spawn(end-mid, func(t *Thread) {
		parallelForRange(t, mid, end, grain, body)
	})
	parallelForRange(t, begin, mid, grain, body)
	t.Wait()
}

// ParallelReduce reduces [begin, end) in parallel: body computes the value of
// a leaf range, join merges two partial values. identity is returned for an
// empty range. join must be associative; evaluation order across pieces is
// unspecified.
func ParallelReduce[V any](begin, end, grain int64, identity V, body func(begin, end int64) V, join func(a, b V) V) (V, error) {
	if begin >= end {
		return identity, nil
	}
	if grain < 1 {
		grain = 1
	}

	var result V
	err := SpawnRootAndWait(end-begin, func(t *Thread) {
		result = parallelReduceRange(t, begin, end, grain, body, join)
	})
	return result, err
}

func parallelReduceRange[V any](t *Thread, begin, end, grain int64, body func(begin, end int64) V, join func(a, b V) V) V {
	if end-begin <= grain {
		return body(begin, end)
	}

	mid := begin + (end-begin)/2
	var right V
	t.Spawn(end-mid, func(t *Thread) {
		right = parallelReduceRange(t, mid, end, grain, body, join)
	})
	left := parallelReduceRange(t, begin, mid, grain, body, join)
	if !t.Wait() {
		// Poisoned context: the stolen half may never have produced a value,
		// and the submitter is about to receive the failure anyway.
		return left
	}
	return join(left, right)
}
