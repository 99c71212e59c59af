package workers

import (
	"context"
	"os"
	"runtime"
	"strconv"
	"sync"

	"media-decoder/internal/logging"
	"media-decoder/internal/metrics"
)

// EnvOverride names the environment variable that pins the worker count.
const EnvOverride = "DECODE_WORKERS"

// Count returns the number of workers for a task type.
// It respects container CPU limits via GOMAXPROCS.
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks
//   - 2.0 for I/O-bound tasks
//   - 1.5 for mixed tasks
//
// limit caps the result; use 0 for no limit. DECODE_WORKERS overrides the
// calculation when set to a positive integer.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(EnvOverride); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns worker count for I/O-bound tasks (2 per CPU).
func ForIO(limit int) int {
	return Count(2.0, limit)
}

// ForMixed returns worker count for mixed tasks (1.5 per CPU).
// Decoding is mixed: it reads the source then spends CPU on pixels.
func ForMixed(limit int) int {
	return Count(1.5, limit)
}

// Run calls fn for every job on n workers and blocks until all of them
// return. Jobs not yet started when ctx is cancelled are skipped.
func Run[T any](ctx context.Context, n int, jobs []T, fn func(ctx context.Context, index int, job T)) {
	if n < 1 {
		n = 1
	}
	if n > len(jobs) {
		n = len(jobs)
	}
	if n == 0 {
		return
	}

	metrics.BatchWorkers.Set(float64(n))
	defer metrics.BatchWorkers.Set(0)

	queue := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < n; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logging.Debug("Worker %d started", id)
			for i := range queue {
				fn(ctx, i, jobs[i])
			}
			logging.Debug("Worker %d finished", id)
		}(w)
	}

enqueue:
	for i := range jobs {
		select {
		case queue <- i:
		case <-ctx.Done():
			break enqueue
		}
	}
	close(queue)

	wg.Wait()
}
