package motion

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"time"

	"media-decoder/internal/decode"
	"media-decoder/internal/ffmpeg"
	"media-decoder/internal/filesystem"
	"media-decoder/internal/logging"

	"github.com/disintegration/imaging"
)

// VideoThumbnailer is the default ThumbnailService: ffmpeg grabs a frame
// from the file and libvips shrinks it to the requested tier, with imaging
// as the fallback when libvips is not running.
type VideoThumbnailer struct {
	grabber *ffmpeg.FrameGrabber
	offset  time.Duration
}

// NewVideoThumbnailer creates a thumbnail service sampling at offset.
func NewVideoThumbnailer(grabber *ffmpeg.FrameGrabber, offset time.Duration) *VideoThumbnailer {
	return &VideoThumbnailer{grabber: grabber, offset: offset}
}

// Generate implements ThumbnailService.
func (v *VideoThumbnailer) Generate(ctx context.Context, path string, kind Kind) (image.Image, error) {
	logging.Debug("Extracting video frame: %s", path)

	info, err := filesystem.StatWithRetry(ctx, path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	frame, err := v.grabber.FrameFromFile(ctx, path, v.offset)
	if err != nil {
		return nil, err
	}
	return shrink(frame, kind)
}

func shrink(frame image.Image, kind Kind) (image.Image, error) {
	width, height, crop := kind.Size()

	if decode.IsVipsAvailable() {
		var buf bytes.Buffer
		if err := png.Encode(&buf, frame); err != nil {
			return nil, fmt.Errorf("failed to encode frame: %w", err)
		}
		img, err := decode.LoadBufferWithVips(buf.Bytes(), width, height, crop)
		if err == nil {
			return img, nil
		}
		logging.Debug("Vips thumbnail failed: %v, using imaging", err)
	}

	if crop {
		return imaging.Fill(frame, width, height, imaging.Center, imaging.Lanczos), nil
	}
	b := frame.Bounds()
	if b.Dx() <= width && b.Dy() <= height {
		return frame, nil
	}
	return imaging.Fit(frame, width, height, imaging.Lanczos), nil
}
