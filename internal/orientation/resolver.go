// Package orientation resolves how a stored still image must be rotated and
// mirrored to appear upright.
//
// File-backed images are read for their EXIF orientation tag; content
// records carry an orientation column in degrees. Only the resolved rotation
// is memoized, so a cache hit always reports MirrorHorizontal as false.
package orientation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"media-decoder/internal/content"
	"media-decoder/internal/decode"
	"media-decoder/internal/filesystem"
	"media-decoder/internal/infocache"
	"media-decoder/internal/locator"
	"media-decoder/internal/logging"
	"media-decoder/internal/metrics"

	"github.com/rwcarlsen/goexif/exif"
	"go.uber.org/zap"
)

// errNoOrientation marks metadata that is readable but carries no value.
var errNoOrientation = errors.New("no orientation recorded")

// Resolver implements the metadata step of the image path.
type Resolver struct {
	cache *infocache.OrientationCache
	store content.Store
	retry filesystem.RetryConfig
}

// NewResolver creates a resolver. store may be nil, in which case content
// locators resolve to the default orientation.
func NewResolver(cache *infocache.OrientationCache, store content.Store) *Resolver {
	return &Resolver{cache: cache, store: store, retry: filesystem.DefaultRetryConfig()}
}

// Resolve returns the orientation of loc. With considerMetadata false it
// returns the default without touching the cache. Read failures are
// absorbed and yield the default orientation.
func (r *Resolver) Resolve(ctx context.Context, loc string, considerMetadata bool) decode.Orientation {
	if !considerMetadata {
		return decode.Orientation{}
	}

	if rotation, ok := r.cache.Get(loc); ok {
		return decode.Orientation{Rotation: rotation}
	}

	kind := locator.Of(loc).Kind()
	var (
		o   decode.Orientation
		err error
	)
	switch kind {
	case locator.KindFile:
		o, err = r.fromExif(ctx, loc)
	case locator.KindContent:
		o, err = r.fromContent(ctx, loc)
	}

	source := sourceLabel(kind)
	switch {
	case err == nil && kind != locator.KindOther:
		metrics.OrientationLookups.WithLabelValues(source, "ok").Inc()
	case err != nil && !errors.Is(err, errNoOrientation):
		metrics.DecodeErrorsTotal.WithLabelValues(decode.KindMetadataQueryFailed.String()).Inc()
		logging.DebugFields("orientation metadata unavailable, using default",
			zap.String("locator", loc),
			zap.String("kind", decode.KindMetadataQueryFailed.String()),
			zap.Error(err),
		)
		fallthrough
	default:
		o = decode.Orientation{}
		metrics.OrientationLookups.WithLabelValues(source, "default").Inc()
	}

	r.cache.Put(loc, o.Rotation)
	return o
}

func (r *Resolver) fromContent(ctx context.Context, loc string) (decode.Orientation, error) {
	if r.store == nil {
		return decode.Orientation{}, errNoOrientation
	}
	v, ok, err := content.Orientation(ctx, r.store, loc)
	if err != nil {
		return decode.Orientation{}, fmt.Errorf("query orientation of %s: %w", loc, err)
	}
	if !ok {
		return decode.Orientation{}, errNoOrientation
	}
	return decode.Orientation{Rotation: decode.NormalizeRotation(v)}, nil
}

func (r *Resolver) fromExif(ctx context.Context, loc string) (decode.Orientation, error) {
	path, ok := locator.FilePath(loc)
	if !ok {
		return decode.Orientation{}, errNoOrientation
	}

	f, err := filesystem.OpenWithRetry(ctx, path, r.retry)
	if err != nil {
		return decode.Orientation{}, err
	}
	defer f.Close()

	// a non-critical error still leaves IFD0, and with it the orientation, usable
	x, err := exif.Decode(f)
	if x == nil || (err != nil && exif.IsCriticalError(err)) {
		if isNoExif(err) {
			return decode.Orientation{}, errNoOrientation
		}
		return decode.Orientation{}, fmt.Errorf("read exif of %s: %w", path, err)
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return decode.Orientation{}, errNoOrientation
	}
	v, err := tag.Int(0)
	if err != nil {
		return decode.Orientation{}, fmt.Errorf("exif orientation of %s: %w", path, err)
	}
	return FromExif(v), nil
}

// isNoExif reports whether err from exif.Decode means the file carries no
// EXIF segment at all, as with PNG, GIF or a JPEG without APP1.
func isNoExif(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	return strings.Contains(err.Error(), "exif intro marker")
}

// FromExif maps an EXIF orientation tag value (1..8) to a clockwise
// rotation followed by an optional horizontal mirror. Unknown values map to
// the default.
func FromExif(v int) decode.Orientation {
	switch v {
	case 2:
		return decode.Orientation{Rotation: 0, MirrorHorizontal: true}
	case 3:
		return decode.Orientation{Rotation: 180}
	case 4:
		return decode.Orientation{Rotation: 180, MirrorHorizontal: true}
	case 5:
		return decode.Orientation{Rotation: 90, MirrorHorizontal: true}
	case 6:
		return decode.Orientation{Rotation: 90}
	case 7:
		return decode.Orientation{Rotation: 270, MirrorHorizontal: true}
	case 8:
		return decode.Orientation{Rotation: 270}
	default:
		return decode.Orientation{}
	}
}

func sourceLabel(k locator.Kind) string {
	switch k {
	case locator.KindFile:
		return "exif"
	case locator.KindContent:
		return "content"
	default:
		return "other"
	}
}
