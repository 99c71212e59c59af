// Package pipeline turns a resource locator into an upright raster.
//
// A request is classified as motion-media or still image. Motion-media goes
// through the thumbnail extractor and may receive an overlay; still images
// are probed for bounds, resolved for orientation, decoded at the target size
// and rotated upright. Every request ends in exactly one of StateDone or
// StateFailed, and a failed request never returns a raster.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"io"
	"time"

	"media-decoder/internal/decode"
	"media-decoder/internal/geometry"
	"media-decoder/internal/logging"
	"media-decoder/internal/metrics"
	"media-decoder/internal/motion"
	"media-decoder/internal/source"

	"go.uber.org/zap"
)

// Classifier decides whether a locator is motion-media.
type Classifier interface {
	IsMotion(ctx context.Context, loc string) bool
}

// Extractor produces motion-media thumbnails.
type Extractor interface {
	Extract(ctx context.Context, loc, imageKey string) (*motion.Thumbnail, error)
}

// OrientationResolver resolves the stored orientation of still images.
type OrientationResolver interface {
	Resolve(ctx context.Context, loc string, considerMetadata bool) decode.Orientation
}

// OverlayMode selects how the overlay is composited on motion thumbnails.
type OverlayMode int

const (
	// OverlayCentered draws the overlay at a fifth of the long side, centred.
	OverlayCentered OverlayMode = iota
	// OverlayTopLeftStacked draws two half-height copies at the top-left.
	OverlayTopLeftStacked
)

// Result is a successful decode.
type Result struct {
	Image image.Image
	Info  decode.ImageInfo
	// Motion is true when the motion-media path produced the raster.
	Motion bool
	// Tier is the extraction tier for motion-media results.
	Tier motion.Tier
	// States lists every state the request passed through, ending in StateDone.
	States []State
}

// Pipeline runs decode requests. It is safe for concurrent use; the lookup
// caches behind its collaborators are the only shared mutable state.
type Pipeline struct {
	classifier  Classifier
	extractor   Extractor
	resolver    OrientationResolver
	opener      source.Opener
	decoder     decode.BaseDecoder
	overlay     image.Image
	overlayMode OverlayMode
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithOverlay sets the raster drawn onto motion-media thumbnails. A nil
// overlay disables compositing.
func WithOverlay(overlay image.Image, mode OverlayMode) Option {
	return func(p *Pipeline) {
		p.overlay = overlay
		p.overlayMode = mode
	}
}

// New creates a pipeline from its collaborators.
func New(classifier Classifier, extractor Extractor, resolver OrientationResolver,
	opener source.Opener, decoder decode.BaseDecoder, opts ...Option) *Pipeline {
	p := &Pipeline{
		classifier: classifier,
		extractor:  extractor,
		resolver:   resolver,
		opener:     opener,
		decoder:    decoder,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// run tracks a single request through the state machine.
type run struct {
	req    decode.Request
	path   string
	states []State
	start  time.Time
}

func (r *run) enter(s State) {
	r.states = append(r.states, s)
	if logging.IsDebugEnabled() {
		logging.DebugFields("decode state",
			zap.String("image_key", r.req.ImageKey),
			zap.String("locator", r.req.Locator),
			zap.Stringer("state", s),
		)
	}
}

// Decode runs req to completion. On failure the returned error is a
// *decode.Error and the result is nil.
func (p *Pipeline) Decode(ctx context.Context, req decode.Request) (*Result, error) {
	r := &run{req: req, path: "unknown", states: []State{StateStart}, start: time.Now()}

	r.enter(StateClassify)
	isMotion := p.classifier.IsMotion(ctx, req.Locator)

	var (
		res *Result
		err error
	)
	if isMotion {
		r.path = "motion"
		r.enter(StateMotionPath)
		res, err = p.decodeMotion(ctx, r)
	} else {
		r.path = "image"
		r.enter(StateImagePath)
		res, err = p.decodeImage(ctx, r)
	}

	if err != nil {
		return nil, p.fail(r, err)
	}

	r.enter(StateDone)
	res.States = r.states
	metrics.DecodeRequestsTotal.WithLabelValues(r.path, "done").Inc()
	metrics.DecodeDuration.WithLabelValues(r.path).Observe(time.Since(r.start).Seconds())
	return res, nil
}

func (p *Pipeline) decodeMotion(ctx context.Context, r *run) (*Result, error) {
	req := r.req
	if p.extractor == nil {
		return nil, decode.NewError(decode.KindExtractionExhausted, req, decode.ErrCannotDecode)
	}

	thumb, err := p.extractor.Extract(ctx, req.Locator, req.ImageKey)
	if err != nil {
		return nil, err
	}

	// thumbnails are not orientation-corrected beyond what extraction did
	info := decode.ImageInfo{
		Size: decode.ImageSize{Width: req.Target.Width, Height: req.Target.Height},
	}

	r.enter(StateOrient)
	img := fitTarget(thumb.Image, req.Target)
	img = geometry.ApplyOrientation(img, info.Orientation.Rotation, info.Orientation.MirrorHorizontal)

	if p.overlay != nil {
		r.enter(StateOverlay)
		dst := geometry.Mutable(img)
		switch p.overlayMode {
		case OverlayTopLeftStacked:
			geometry.OverlayTopLeftStacked(dst, p.overlay)
		default:
			geometry.OverlayCentered(dst, p.overlay)
		}
		metrics.OverlaysDrawnTotal.Inc()
		img = dst
	}

	return &Result{Image: img, Info: info, Motion: true, Tier: thumb.Tier}, nil
}

func (p *Pipeline) decodeImage(ctx context.Context, r *run) (*Result, error) {
	req := r.req
	if p.opener == nil || p.decoder == nil {
		return nil, decode.NewError(decode.KindDecodeFailed, req, fmt.Errorf("no base decoder configured"))
	}

	rc, err := p.opener.Open(ctx, req.Locator)
	if err != nil {
		return nil, decode.NewError(decode.KindDecodeFailed, req, err)
	}
	defer rc.Close()

	bounds, err := p.decoder.DecodeBounds(rc)
	if err != nil {
		return nil, decode.NewError(decode.KindDecodeBoundsFailed, req, fmt.Errorf("%w: %w", decode.ErrDecodeBounds, err))
	}

	o := p.orientation(ctx, req)
	info := decode.ImageInfo{
		Size:        decode.ImageSize{Width: bounds.X, Height: bounds.Y, Rotation: o.Rotation},
		Orientation: o,
	}

	if _, err := rc.Seek(0, io.SeekStart); err != nil {
		return nil, decode.NewError(decode.KindDecodeFailed, req, fmt.Errorf("rewind stream: %w", err))
	}
	img, err := p.decoder.Decode(ctx, rc, decode.Spec{Target: req.Target, Rotation: o.Rotation, Bounds: bounds})
	if err != nil {
		return nil, decode.NewError(decode.KindDecodeFailed, req, err)
	}

	r.enter(StateOrient)
	img = geometry.ApplyOrientation(img, o.Rotation, o.MirrorHorizontal)

	return &Result{Image: img, Info: info}, nil
}

func (p *Pipeline) orientation(ctx context.Context, req decode.Request) decode.Orientation {
	if p.resolver == nil {
		return decode.Orientation{}
	}
	return p.resolver.Resolve(ctx, req.Locator, req.ConsiderOrientation)
}

// fail records the terminal failure and returns it as a *decode.Error.
func (p *Pipeline) fail(r *run, err error) error {
	r.enter(StateFailed)

	kind, ok := decode.KindOf(err)
	if !ok {
		kind = decode.KindDecodeFailed
		err = decode.NewError(kind, r.req, err)
	}

	metrics.DecodeErrorsTotal.WithLabelValues(kind.String()).Inc()
	metrics.DecodeRequestsTotal.WithLabelValues(r.path, "failed").Inc()
	metrics.DecodeDuration.WithLabelValues(r.path).Observe(time.Since(r.start).Seconds())

	logging.ErrorFields("cannot decode image",
		zap.String("image_key", r.req.ImageKey),
		zap.String("locator", r.req.Locator),
		zap.String("kind", kind.String()),
		zap.Error(err),
	)
	return err
}

// fitTarget shrinks img to fit a positive target, leaving smaller rasters
// untouched.
func fitTarget(img image.Image, target decode.TargetSize) image.Image {
	if target.IsZero() {
		return img
	}
	b := img.Bounds()
	if (target.Width > 0 && b.Dx() > target.Width) || (target.Height > 0 && b.Dy() > target.Height) {
		return geometry.ScaleToFit(img, target.Width, target.Height)
	}
	return img
}
