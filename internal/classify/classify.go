// Package classify decides whether a locator names motion-media or a still
// image, memoizing the answer in a ClassificationCache.
package classify

import (
	"context"
	"fmt"
	"strings"

	"media-decoder/internal/content"
	"media-decoder/internal/decode"
	"media-decoder/internal/infocache"
	"media-decoder/internal/locator"
	"media-decoder/internal/logging"
	"media-decoder/internal/mediatypes"
	"media-decoder/internal/metrics"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// Prober returns the MIME type of a resource. An empty type with a nil error
// means the type is unknown.
type Prober interface {
	ProbeMIME(ctx context.Context, loc string) (string, error)
}

// MIMEProber reads content:// types from the content store and sniffs
// file:// resources, falling back to the file extension.
type MIMEProber struct {
	store content.Store
}

// NewMIMEProber creates the default prober. store may be nil.
func NewMIMEProber(store content.Store) *MIMEProber {
	return &MIMEProber{store: store}
}

// ProbeMIME implements Prober.
func (p *MIMEProber) ProbeMIME(ctx context.Context, loc string) (string, error) {
	switch locator.Of(loc).Kind() {
	case locator.KindContent:
		if p.store == nil {
			return "", nil
		}
		mime, _, err := content.MimeType(ctx, p.store, loc)
		return mime, err
	case locator.KindFile:
		path, ok := locator.FilePath(loc)
		if !ok {
			return "", nil
		}
		return sniffFile(path), nil
	default:
		return "", nil
	}
}

// sniffFile trusts the magic bytes when they identify media and the
// extension otherwise.
func sniffFile(path string) string {
	mtype, err := mimetype.DetectFile(path)
	if err == nil {
		detected := mtype.String()
		if strings.HasPrefix(detected, "image/") || mediatypes.IsMotionMIME(detected) {
			return detected
		}
	} else {
		logging.Debug("mimetype detection failed for %s: %v", path, err)
	}

	if mime := mediatypes.MimeTypeForPath(path); mime != mediatypes.OctetStream {
		return mime
	}
	return ""
}

// Classifier answers "is motion-media" per locator.
type Classifier struct {
	cache  *infocache.ClassificationCache
	prober Prober
}

// New creates a classifier over cache and prober.
func New(cache *infocache.ClassificationCache, prober Prober) *Classifier {
	return &Classifier{cache: cache, prober: prober}
}

// IsMotion returns the cached classification of loc, probing and caching it
// on a miss. A failed probe classifies the resource as a still image and
// that answer is cached too. Concurrent misses may probe more than once.
func (c *Classifier) IsMotion(ctx context.Context, loc string) bool {
	if v, ok := c.cache.Get(loc); ok {
		return v
	}

	motion := false
	mime, err := c.prober.ProbeMIME(ctx, loc)
	if err != nil {
		metrics.DecodeErrorsTotal.WithLabelValues(decode.KindClassificationProbeFailed.String()).Inc()
		logging.DebugFields("type probe failed, treating as still image",
			zap.String("locator", loc),
			zap.String("kind", decode.KindClassificationProbeFailed.String()),
			zap.Error(fmt.Errorf("probe %s: %w", loc, err)),
		)
	} else {
		motion = mediatypes.IsMotionMIME(mime)
	}

	c.cache.Put(loc, motion)
	return motion
}
