package filesystem

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"
)

type recordingObserver struct {
	mu       sync.Mutex
	ops      []string
	attempts int
	success  int
	failures int
	stale    int
}

func (o *recordingObserver) ObserveOperation(volume, operation string, _ float64, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, volume+":"+operation)
}

func (o *recordingObserver) ObserveRetryAttempt(string, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attempts++
}

func (o *recordingObserver) ObserveRetrySuccess(string, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.success++
}

func (o *recordingObserver) ObserveRetryFailure(string, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures++
}

func (o *recordingObserver) ObserveRetryDuration(string, string, float64) {}

func (o *recordingObserver) ObserveStaleError(string, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stale++
}

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}
	if config.InitialBackoff != 50*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 50ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 500*time.Millisecond {
		t.Errorf("MaxBackoff = %v, want 500ms", config.MaxBackoff)
	}
	if config.VolumeResolver != nil {
		t.Error("VolumeResolver should be nil by default")
	}
}

func TestIsNFSStaleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "ESTALE error", err: syscall.ESTALE, want: true},
		{name: "wrapped ESTALE", err: &os.PathError{Op: "open", Path: "/x", Err: syscall.ESTALE}, want: true},
		{name: "ENOENT error", err: syscall.ENOENT, want: false},
		{name: "generic error", err: os.ErrNotExist, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNFSStaleError(tt.err); got != tt.want {
				t.Errorf("isNFSStaleError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVolumeResolver_Resolve(t *testing.T) {
	vr := NewVolumeResolver(map[string]string{
		"media":    "/media",
		"database": "/database",
		"nested":   "/media/nested",
	})

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "media root", path: "/media", want: "media"},
		{name: "media file", path: "/media/clips/a.mp4", want: "media"},
		{name: "longest prefix wins", path: "/media/nested/a.jpg", want: "nested"},
		{name: "database file", path: "/database/content.db", want: "database"},
		{name: "similar prefix is not a match", path: "/mediafiles/a.jpg", want: "unknown"},
		{name: "outside all volumes", path: "/tmp/a.jpg", want: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := vr.Resolve(tt.path); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestVolumeResolver_Resolve_NilResolver(t *testing.T) {
	var vr *VolumeResolver
	if got := vr.Resolve("/media/a.jpg"); got != "unknown" {
		t.Errorf("nil resolver Resolve() = %q, want unknown", got)
	}
}

func TestOpenWithRetry_Success(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	obs := &recordingObserver{}
	SetObserver(obs)
	defer SetObserver(nil)

	config := fastRetryConfig()
	config.VolumeResolver = NewVolumeResolver(map[string]string{"media": dir})

	f, err := OpenWithRetry(context.Background(), path, config)
	if err != nil {
		t.Fatalf("OpenWithRetry() error: %v", err)
	}
	defer f.Close()

	if len(obs.ops) != 1 || obs.ops[0] != "media:open" {
		t.Errorf("observed ops = %v, want [media:open]", obs.ops)
	}
	if obs.attempts != 0 || obs.stale != 0 {
		t.Errorf("Expected no retries, got attempts=%d stale=%d", obs.attempts, obs.stale)
	}
}

func TestOpenWithRetry_NotExistFailsFast(t *testing.T) {
	obs := &recordingObserver{}
	SetObserver(obs)
	defer SetObserver(nil)

	_, err := OpenWithRetry(context.Background(), filepath.Join(t.TempDir(), "missing"), fastRetryConfig())
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Expected ErrNotExist, got %v", err)
	}
	if len(obs.ops) != 1 {
		t.Errorf("Expected a single attempt, got %d", len(obs.ops))
	}
}

func TestStatWithRetry_Success(t *testing.T) {
	dir := t.TempDir()
	info, err := StatWithRetry(context.Background(), dir, fastRetryConfig())
	if err != nil {
		t.Fatalf("StatWithRetry() error: %v", err)
	}
	if !info.IsDir() {
		t.Error("Expected directory info")
	}
}

func TestWithRetry_StaleThenSuccess(t *testing.T) {
	obs := &recordingObserver{}
	SetObserver(obs)
	defer SetObserver(nil)

	calls := 0
	got, err := withRetry(context.Background(), "open", "/media/a", fastRetryConfig(), func() (int, error) {
		calls++
		if calls < 3 {
			return 0, syscall.ESTALE
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("withRetry() error: %v", err)
	}
	if got != 42 {
		t.Errorf("withRetry() = %d, want 42", got)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if obs.stale != 2 || obs.attempts != 2 || obs.success != 1 {
		t.Errorf("observer stale=%d attempts=%d success=%d, want 2/2/1", obs.stale, obs.attempts, obs.success)
	}
}

func TestWithRetry_ExhaustsRetries(t *testing.T) {
	obs := &recordingObserver{}
	SetObserver(obs)
	defer SetObserver(nil)

	config := fastRetryConfig()
	calls := 0
	_, err := withRetry(context.Background(), "stat", "/media/a", config, func() (int, error) {
		calls++
		return 0, syscall.ESTALE
	})
	if !errors.Is(err, syscall.ESTALE) {
		t.Fatalf("Expected ESTALE, got %v", err)
	}
	if calls != config.MaxRetries+1 {
		t.Errorf("calls = %d, want %d", calls, config.MaxRetries+1)
	}
	if obs.failures != 1 {
		t.Errorf("failures = %d, want 1", obs.failures)
	}
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	config := RetryConfig{MaxRetries: 3, InitialBackoff: time.Hour, MaxBackoff: time.Hour}
	_, err := withRetry(ctx, "open", "/media/a", config, func() (int, error) {
		return 0, syscall.ESTALE
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
