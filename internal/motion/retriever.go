package motion

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"media-decoder/internal/ffmpeg"
	"media-decoder/internal/source"

	"github.com/dhowden/tag"
)

// StreamRetriever opens handles over the byte stream of a locator. Cover
// art is read from container tags and frames are sampled by piping the
// stream through ffmpeg.
type StreamRetriever struct {
	opener  source.Opener
	grabber *ffmpeg.FrameGrabber
}

// NewStreamRetriever creates a retriever.
func NewStreamRetriever(opener source.Opener, grabber *ffmpeg.FrameGrabber) *StreamRetriever {
	return &StreamRetriever{opener: opener, grabber: grabber}
}

// Open implements Retriever.
func (r *StreamRetriever) Open(ctx context.Context, loc string) (Handle, error) {
	rc, err := r.opener.Open(ctx, loc)
	if err != nil {
		return nil, err
	}
	return &streamHandle{stream: rc, grabber: r.grabber}, nil
}

type streamHandle struct {
	stream  io.ReadSeekCloser
	grabber *ffmpeg.FrameGrabber
}

func (h *streamHandle) EmbeddedPicture() ([]byte, error) {
	if _, err := h.stream.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind stream: %w", err)
	}

	m, err := tag.ReadFrom(h.stream)
	if err != nil {
		if errors.Is(err, tag.ErrNoTagsFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("read tags: %w", err)
	}

	pic := m.Picture()
	if pic == nil {
		return nil, nil
	}
	return pic.Data, nil
}

func (h *streamHandle) FrameAt(ctx context.Context, offset time.Duration) (image.Image, error) {
	if h.grabber == nil {
		return nil, nil
	}
	if _, err := h.stream.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind stream: %w", err)
	}
	return h.grabber.FrameFromStream(ctx, h.stream, offset)
}

func (h *streamHandle) Close() error {
	return h.stream.Close()
}
