// Package ffmpeg grabs single video frames by running the ffmpeg binary.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"time"

	"media-decoder/internal/logging"
	"media-decoder/internal/metrics"

	// Image format decoders
	_ "image/png"
)

// DefaultBinary is looked up on PATH when no binary is configured.
const DefaultBinary = "ffmpeg"

var (
	// ErrNotFound is returned when the ffmpeg binary cannot be located.
	ErrNotFound = errors.New("ffmpeg not found")
	// ErrNoOutput is returned when ffmpeg exits cleanly without a frame.
	ErrNoOutput = errors.New("ffmpeg produced no output")
)

// FrameGrabber extracts frames with ffmpeg.
type FrameGrabber struct {
	binary string
}

// New creates a grabber for binary, or DefaultBinary when empty.
func New(binary string) *FrameGrabber {
	if binary == "" {
		binary = DefaultBinary
	}
	return &FrameGrabber{binary: binary}
}

// Available reports whether the binary can be executed.
func (g *FrameGrabber) Available() bool {
	_, err := exec.LookPath(g.binary)
	return err == nil
}

// FrameFromFile returns the frame of path at offset. If seeking fails (for
// clips shorter than offset) the first frame is returned instead.
func (g *FrameGrabber) FrameFromFile(ctx context.Context, path string, offset time.Duration) (image.Image, error) {
	start := time.Now()
	defer func() { metrics.FFmpegDuration.WithLabelValues("file").Observe(time.Since(start).Seconds()) }()

	img, err := g.grab(ctx, path, nil, offset)
	if err == nil || offset <= 0 || errors.Is(err, ErrNotFound) {
		return img, err
	}

	logging.Debug("FFmpeg seek to %s failed for %s: %v, retrying from first frame", timestamp(offset), path, err)
	return g.grab(ctx, path, nil, 0)
}

// FrameFromStream pipes r into ffmpeg and returns the frame at offset. The
// first-frame retry happens only when r can be rewound.
func (g *FrameGrabber) FrameFromStream(ctx context.Context, r io.Reader, offset time.Duration) (image.Image, error) {
	start := time.Now()
	defer func() { metrics.FFmpegDuration.WithLabelValues("pipe").Observe(time.Since(start).Seconds()) }()

	img, err := g.grab(ctx, "pipe:0", r, offset)
	if err == nil || offset <= 0 || errors.Is(err, ErrNotFound) {
		return img, err
	}

	seeker, ok := r.(io.Seeker)
	if !ok {
		return nil, err
	}
	if _, seekErr := seeker.Seek(0, io.SeekStart); seekErr != nil {
		return nil, err
	}
	logging.Debug("FFmpeg seek to %s failed on stream: %v, retrying from first frame", timestamp(offset), err)
	return g.grab(ctx, "pipe:0", r, 0)
}

func (g *FrameGrabber) grab(ctx context.Context, input string, stdin io.Reader, offset time.Duration) (image.Image, error) {
	binary, err := exec.LookPath(g.binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	cmd := exec.CommandContext(ctx, binary, buildArgs(input, offset)...)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdin = stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %v, stderr: %s", err, lastLine(stderr.Bytes()))
	}

	if stdout.Len() == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoOutput, input)
	}

	logging.Debug("FFmpeg output size: %d bytes", stdout.Len())

	img, _, err := image.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ffmpeg output: %w", err)
	}
	return img, nil
}

// buildArgs returns the ffmpeg arguments for a single PNG frame on stdout.
func buildArgs(input string, offset time.Duration) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-i", input}
	if offset > 0 {
		args = append(args, "-ss", timestamp(offset))
	}
	return append(args,
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)
}

// timestamp formats d as HH:MM:SS.mmm.
func timestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d.%03d", ms/3_600_000, ms/60_000%60, ms/1000%60, ms%1000)
}

func lastLine(b []byte) string {
	b = bytes.TrimSpace(b)
	if i := bytes.LastIndexByte(b, '\n'); i >= 0 {
		b = b[i+1:]
	}
	return string(b)
}
