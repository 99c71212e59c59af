package workers

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCount(t *testing.T) {
	t.Setenv(EnvOverride, "")

	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		want       int
	}{
		{"CPU-bound task", 1.0, 0, max(1, availableCPU)},
		{"I/O-bound task", 2.0, 0, max(1, availableCPU*2)},
		{"Mixed task", 1.5, 0, max(1, int(float64(availableCPU)*1.5))},
		{"Limit lower than calculated", 100.0, 2, 2},
		{"Zero multiplier", 0.0, 0, 1},
		{"Negative multiplier", -1.0, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Count(tt.multiplier, tt.limit); got != tt.want {
				t.Errorf("Count(%v, %d) = %d, want %d", tt.multiplier, tt.limit, got, tt.want)
			}
		})
	}
}

func TestCountWithEnvOverride(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		limit    int
		expected int
	}{
		{"Valid override", "8", 0, 8},
		{"Override capped by limit", "20", 10, 10},
		{"Override below limit", "5", 10, 5},
		{"Non-numeric override ignored", "invalid", 0, max(1, runtime.GOMAXPROCS(0))},
		{"Zero override ignored", "0", 0, max(1, runtime.GOMAXPROCS(0))},
		{"Negative override ignored", "-5", 0, max(1, runtime.GOMAXPROCS(0))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvOverride, tt.envValue)

			if got := Count(1.0, tt.limit); got != tt.expected {
				t.Errorf("Count(1.0, %d) with %s=%s = %d, want %d", tt.limit, EnvOverride, tt.envValue, got, tt.expected)
			}
		})
	}
}

func TestHelpersRespectLimit(t *testing.T) {
	t.Setenv(EnvOverride, "")

	for name, fn := range map[string]func(int) int{
		"ForCPU":   ForCPU,
		"ForIO":    ForIO,
		"ForMixed": ForMixed,
	} {
		t.Run(name, func(t *testing.T) {
			if got := fn(1); got != 1 {
				t.Errorf("%s(1) = %d, want 1", name, got)
			}
			if got := fn(0); got < 1 {
				t.Errorf("%s(0) = %d, want >= 1", name, got)
			}
		})
	}
}

func TestRun_VisitsEveryJobOnce(t *testing.T) {
	jobs := make([]int, 100)
	for i := range jobs {
		jobs[i] = i * 10
	}

	results := make([]int, len(jobs))
	var calls atomic.Int32

	Run(context.Background(), 4, jobs, func(_ context.Context, i int, job int) {
		calls.Add(1)
		results[i] = job + 1
	})

	if calls.Load() != int32(len(jobs)) {
		t.Fatalf("fn called %d times, want %d", calls.Load(), len(jobs))
	}
	for i, got := range results {
		if got != i*10+1 {
			t.Errorf("results[%d] = %d, want %d", i, got, i*10+1)
		}
	}
}

func TestRun_BoundsConcurrency(t *testing.T) {
	const n = 3
	jobs := make([]struct{}, 30)

	var mu sync.Mutex
	active, peak := 0, 0

	Run(context.Background(), n, jobs, func(_ context.Context, _ int, _ struct{}) {
		mu.Lock()
		active++
		peak = max(peak, active)
		mu.Unlock()

		time.Sleep(time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
	})

	if peak > n {
		t.Errorf("peak concurrency = %d, want <= %d", peak, n)
	}
}

func TestRun_EmptyAndDegenerate(t *testing.T) {
	called := false
	Run(context.Background(), 4, []string{}, func(_ context.Context, _ int, _ string) {
		called = true
	})
	if called {
		t.Error("fn should not be called for no jobs")
	}

	var count atomic.Int32
	Run(context.Background(), 0, []string{"a", "b"}, func(_ context.Context, _ int, _ string) {
		count.Add(1)
	})
	if count.Load() != 2 {
		t.Errorf("n=0 should still run every job, ran %d", count.Load())
	}
}

func TestRun_CancelledContextSkipsJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var count atomic.Int32
	Run(ctx, 2, make([]int, 1000), func(_ context.Context, _ int, _ int) {
		count.Add(1)
	})

	if count.Load() >= 1000 {
		t.Errorf("expected cancelled run to skip jobs, ran %d", count.Load())
	}
}

func BenchmarkCount(b *testing.B) {
	b.Setenv(EnvOverride, "")

	for i := 0; i < b.N; i++ {
		_ = Count(1.5, 10)
	}
}
