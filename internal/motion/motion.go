package motion

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"
)

// DefaultFrameOffset is where a frame is sampled when a clip has no
// embedded cover picture.
const DefaultFrameOffset = time.Second

// Kind is the quality tier requested from a ThumbnailService.
type Kind int

const (
	// KindMini fits the thumbnail inside 512x512.
	KindMini Kind = iota
	// KindMicro centre-crops the thumbnail to 96x96.
	KindMicro
)

// Size returns the bounding box of the tier and whether it is cropped.
func (k Kind) Size() (width, height int, crop bool) {
	if k == KindMicro {
		return 96, 96, true
	}
	return 512, 512, false
}

func (k Kind) String() string {
	if k == KindMicro {
		return "micro"
	}
	return "mini"
}

// ParseKind parses "mini" or "micro".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mini":
		return KindMini, nil
	case "micro":
		return KindMicro, nil
	default:
		return KindMini, fmt.Errorf("unknown thumbnail kind %q", s)
	}
}

// Tier identifies which fallback produced a thumbnail.
type Tier int

const (
	TierEmbedded Tier = iota + 1
	TierFrame
	TierService
)

func (t Tier) String() string {
	switch t {
	case TierEmbedded:
		return "embedded"
	case TierFrame:
		return "frame"
	case TierService:
		return "service"
	default:
		return "none"
	}
}

// Handle is a metadata-retrieval handle bound to one resource.
type Handle interface {
	// EmbeddedPicture returns the encoded cover picture, or nil if there is none.
	EmbeddedPicture() ([]byte, error)
	// FrameAt returns the frame at offset, or nil if none could be sampled.
	FrameAt(ctx context.Context, offset time.Duration) (image.Image, error)
	Close() error
}

// Retriever opens handles for motion-media locators.
type Retriever interface {
	Open(ctx context.Context, loc string) (Handle, error)
}

// ThumbnailService renders a thumbnail for a local video file.
type ThumbnailService interface {
	Generate(ctx context.Context, path string, kind Kind) (image.Image, error)
}

// PathResolver maps a locator to the local file backing it.
type PathResolver interface {
	ResolvePath(ctx context.Context, loc string) (string, error)
}

// Thumbnail is an extracted raster and the tier that produced it.
type Thumbnail struct {
	Image image.Image
	Tier  Tier
}
