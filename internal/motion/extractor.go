package motion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"time"

	"media-decoder/internal/decode"
	"media-decoder/internal/logging"
	"media-decoder/internal/metrics"
	"media-decoder/internal/source"

	"github.com/disintegration/imaging"
)

// Extractor produces a thumbnail for motion-media with three ordered
// fallbacks: the embedded cover picture, a sampled frame, and the external
// thumbnail service on the backing file.
type Extractor struct {
	retriever   Retriever
	service     ThumbnailService
	paths       PathResolver
	frameOffset time.Duration
	kind        Kind
}

// ExtractorOption customizes an Extractor.
type ExtractorOption func(*Extractor)

// WithFrameOffset sets the timestamp sampled by the frame tier.
func WithFrameOffset(d time.Duration) ExtractorOption {
	return func(e *Extractor) {
		if d >= 0 {
			e.frameOffset = d
		}
	}
}

// WithKind sets the quality tier requested from the thumbnail service.
func WithKind(k Kind) ExtractorOption {
	return func(e *Extractor) { e.kind = k }
}

// NewExtractor creates an extractor. paths resolves locators to their
// backing file for the service tier and may be nil.
func NewExtractor(retriever Retriever, service ThumbnailService, paths PathResolver, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		retriever:   retriever,
		service:     service,
		paths:       paths,
		frameOffset: DefaultFrameOffset,
		kind:        KindMini,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the first thumbnail any tier produces. When every tier
// comes back empty it returns a *decode.Error wrapping decode.ErrCannotDecode,
// and also os.ErrPermission when the backing file lies outside the media roots.
func (e *Extractor) Extract(ctx context.Context, loc, imageKey string) (*Thumbnail, error) {
	if img, tier := e.fromHandle(ctx, loc); img != nil {
		return &Thumbnail{Image: img, Tier: tier}, nil
	}

	img, denied := e.fromService(ctx, loc)
	if img != nil {
		return &Thumbnail{Image: img, Tier: TierService}, nil
	}

	cause := decode.ErrCannotDecode
	if denied != nil {
		cause = fmt.Errorf("%w: %w", decode.ErrCannotDecode, denied)
	}
	req := decode.Request{Locator: loc, ImageKey: imageKey}
	return nil, decode.NewError(decode.KindExtractionExhausted, req, cause)
}

// fromHandle runs the embedded and frame tiers. The handle is closed before
// it returns.
func (e *Extractor) fromHandle(ctx context.Context, loc string) (image.Image, Tier) {
	if e.retriever == nil {
		return nil, 0
	}

	h, err := e.retriever.Open(ctx, loc)
	if err != nil {
		logging.Debug("Motion: cannot open retrieval handle for %s: %v", loc, err)
		return nil, 0
	}
	defer func() {
		if err := h.Close(); err != nil {
			logging.Warn("Motion: failed to close retrieval handle for %s: %v", loc, err)
		}
	}()

	if img := runTier(TierEmbedded, loc, func() (image.Image, error) {
		pic, err := h.EmbeddedPicture()
		if err != nil || len(pic) == 0 {
			return nil, err
		}
		return imaging.Decode(bytes.NewReader(pic))
	}); img != nil {
		return img, TierEmbedded
	}

	if img := runTier(TierFrame, loc, func() (image.Image, error) {
		return h.FrameAt(ctx, e.frameOffset)
	}); img != nil {
		return img, TierFrame
	}

	return nil, 0
}

// fromService runs the service tier. A non-nil error means the backing
// file was refused by the media roots.
func (e *Extractor) fromService(ctx context.Context, loc string) (image.Image, error) {
	if e.paths == nil {
		return nil, nil
	}

	path, err := e.paths.ResolvePath(ctx, loc)
	if errors.Is(err, os.ErrPermission) {
		logging.Warn("Motion: refusing %s: %v", loc, err)
		return nil, err
	}
	if e.service == nil {
		return nil, nil
	}
	if err != nil {
		if !errors.Is(err, source.ErrNoDataPath) && !errors.Is(err, source.ErrUnsupportedScheme) {
			logging.Debug("Motion: cannot resolve file path of %s: %v", loc, err)
		}
		metrics.MotionTierAttempts.WithLabelValues(TierService.String(), "miss").Inc()
		return nil, nil
	}

	return runTier(TierService, loc, func() (image.Image, error) {
		return e.service.Generate(ctx, path, e.kind)
	}), nil
}

// runTier times one tier and records whether it produced a raster.
func runTier(tier Tier, loc string, fn func() (image.Image, error)) image.Image {
	start := time.Now()
	img, err := fn()
	metrics.MotionTierDuration.WithLabelValues(tier.String()).Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		logging.Debug("Motion: %s tier failed for %s: %v", tier, loc, err)
		metrics.MotionTierAttempts.WithLabelValues(tier.String(), "error").Inc()
		return nil
	case img == nil:
		metrics.MotionTierAttempts.WithLabelValues(tier.String(), "miss").Inc()
		return nil
	default:
		metrics.MotionTierAttempts.WithLabelValues(tier.String(), "hit").Inc()
		return img
	}
}
