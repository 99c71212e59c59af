package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestTimestamp(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00.000"},
		{time.Second, "00:00:01.000"},
		{1500 * time.Millisecond, "00:00:01.500"},
		{90 * time.Second, "00:01:30.000"},
		{2*time.Hour + 3*time.Minute + 4*time.Second, "02:03:04.000"},
		{-time.Second, "00:00:00.000"},
	}

	for _, tt := range tests {
		if got := timestamp(tt.in); got != tt.want {
			t.Errorf("timestamp(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildArgs(t *testing.T) {
	got := buildArgs("pipe:0", time.Second)
	want := []string{"-hide_banner", "-loglevel", "error", "-i", "pipe:0", "-ss", "00:00:01.000",
		"-vframes", "1", "-f", "image2pipe", "-vcodec", "png", "-"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("buildArgs() = %v, want %v", got, want)
	}

	noSeek := buildArgs("/media/a.mp4", 0)
	for _, a := range noSeek {
		if a == "-ss" {
			t.Error("Expected no -ss for zero offset")
		}
	}
}

func TestLastLine(t *testing.T) {
	if got := lastLine([]byte("first\nsecond\n")); got != "second" {
		t.Errorf("lastLine() = %q", got)
	}
	if got := lastLine(nil); got != "" {
		t.Errorf("lastLine(nil) = %q", got)
	}
}

func TestFrameGrabber_MissingBinary(t *testing.T) {
	g := New("definitely-not-ffmpeg-binary")
	if g.Available() {
		t.Fatal("Expected binary to be unavailable")
	}

	_, err := g.FrameFromFile(context.Background(), "/media/a.mp4", time.Second)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("FrameFromFile() error = %v, want ErrNotFound", err)
	}

	_, err = g.FrameFromStream(context.Background(), bytes.NewReader(nil), time.Second)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("FrameFromStream() error = %v, want ErrNotFound", err)
	}
}

func TestNew_DefaultBinary(t *testing.T) {
	if g := New(""); g.binary != DefaultBinary {
		t.Errorf("binary = %q, want %q", g.binary, DefaultBinary)
	}
}

// makeClip renders a short test pattern clip, skipping when ffmpeg is absent.
func makeClip(t *testing.T, seconds string) string {
	t.Helper()
	if _, err := exec.LookPath(DefaultBinary); err != nil {
		t.Skip("ffmpeg not installed")
	}

	path := filepath.Join(t.TempDir(), "clip.mp4")
	cmd := exec.Command(DefaultBinary, "-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", "testsrc=duration="+seconds+":size=64x48:rate=10",
		"-pix_fmt", "yuv420p", path)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("ffmpeg cannot render test clip: %v: %s", err, out)
	}
	return path
}

func TestFrameFromFile_Integration(t *testing.T) {
	path := makeClip(t, "2")

	img, err := New("").FrameFromFile(context.Background(), path, time.Second)
	if err != nil {
		t.Fatalf("FrameFromFile: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("frame size = %v, want 64x48", b)
	}
}

func TestFrameFromStream_Integration(t *testing.T) {
	path := makeClip(t, "2")

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	img, err := New("").FrameFromStream(context.Background(), f, 0)
	if err != nil {
		// mp4 with a trailing moov atom is not always readable from a pipe
		t.Skipf("ffmpeg could not read the clip from a pipe: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("frame size = %v, want 64x48", b)
	}
}
