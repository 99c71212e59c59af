// Package app assembles the decode pipeline and its collaborators from a
// startup.Config. The HTTP server and the batch CLI share it.
package app

import (
	"context"
	"fmt"
	"image"
	"maps"
	"path/filepath"
	"time"

	"media-decoder/internal/classify"
	"media-decoder/internal/content"
	"media-decoder/internal/decode"
	"media-decoder/internal/ffmpeg"
	"media-decoder/internal/filesystem"
	"media-decoder/internal/infocache"
	"media-decoder/internal/logging"
	"media-decoder/internal/metrics"
	"media-decoder/internal/motion"
	"media-decoder/internal/orientation"
	"media-decoder/internal/pipeline"
	"media-decoder/internal/source"
	"media-decoder/internal/startup"

	"github.com/disintegration/imaging"
)

// collectInterval is how often cache and store sizes are sampled.
const collectInterval = 15 * time.Second

// App owns the long-lived collaborators of a decode process.
type App struct {
	Store               *content.SQLiteStore
	Pipeline            *pipeline.Pipeline
	ClassificationCache *infocache.ClassificationCache
	OrientationCache    *infocache.OrientationCache

	overlayLoaded bool
	vipsStarted   bool
	collector     *metrics.Collector
}

// Build opens the content store and wires the pipeline. The caller must
// Close the returned App.
func Build(ctx context.Context, config *startup.Config) (*App, error) {
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(volumes(config)))
	metrics.InitializeMetrics()

	storeStart := time.Now()
	store, err := content.Open(ctx, config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open content store: %w", err)
	}
	records, err := store.Count(ctx)
	if err != nil {
		logging.Warn("Failed to count content records: %v", err)
	}
	startup.LogContentStoreInit(time.Since(storeStart), records)

	a := &App{
		Store:               store,
		ClassificationCache: infocache.NewClassificationCache(config.CacheCapacity),
		OrientationCache:    infocache.NewOrientationCache(config.CacheCapacity),
	}

	useVips := false
	if config.VipsEnabled {
		if err := decode.InitVips(); err != nil {
			logging.Warn("libvips unavailable, using pure Go decoders: %v", err)
		} else {
			a.vipsStarted = true
			useVips = true
		}
	}

	var opts []pipeline.Option
	if config.OverlayPath != "" {
		overlay, err := LoadOverlay(config.OverlayPath)
		if err != nil {
			logging.Warn("Failed to load overlay %s: %v", config.OverlayPath, err)
		} else {
			mode := pipeline.OverlayCentered
			if config.OverlayStacked {
				mode = pipeline.OverlayTopLeftStacked
			}
			opts = append(opts, pipeline.WithOverlay(overlay, mode))
			a.overlayLoaded = true
		}
	}

	a.Pipeline = newPipeline(config, store, a.ClassificationCache, a.OrientationCache, useVips, opts...)
	startup.LogPipelineInit(config, useVips, a.overlayLoaded)

	a.collector = metrics.NewCollector(
		map[string]metrics.SizeProvider{
			a.ClassificationCache.Name(): a.ClassificationCache,
			a.OrientationCache.Name():    a.OrientationCache,
		},
		func() (int, error) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return store.Count(ctx)
		},
		collectInterval,
	)
	a.collector.Start()

	return a, nil
}

func newPipeline(config *startup.Config, store content.Store, classCache *infocache.ClassificationCache,
	orientCache *infocache.OrientationCache, useVips bool, opts ...pipeline.Option) *pipeline.Pipeline {
	opener := source.NewLocalOpener(store, source.NewRoots(config.MediaRoots...))

	var (
		grabber *ffmpeg.FrameGrabber
		service motion.ThumbnailService
	)
	if g := ffmpeg.New(config.FFmpegPath); g.Available() {
		grabber = g
		service = motion.NewVideoThumbnailer(g, config.FrameOffset)
	}

	extractor := motion.NewExtractor(
		motion.NewStreamRetriever(opener, grabber),
		service,
		opener,
		motion.WithFrameOffset(config.FrameOffset),
		motion.WithKind(config.ThumbnailKind),
	)

	return pipeline.New(
		classify.New(classCache, classify.NewMIMEProber(store)),
		extractor,
		orientation.NewResolver(orientCache, store),
		opener,
		decode.NewImageDecoder(useVips),
		opts...,
	)
}

// volumes returns the configured metric volumes plus the database directory.
func volumes(config *startup.Config) map[string]string {
	v := maps.Clone(config.Volumes)
	if v == nil {
		v = make(map[string]string)
	}
	if _, ok := v["database"]; !ok {
		v["database"] = filepath.Dir(config.DatabasePath)
	}
	return v
}

// LoadOverlay reads the overlay raster from disk.
func LoadOverlay(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open overlay: %w", err)
	}
	return img, nil
}

// OverlayLoaded reports whether motion thumbnails get an overlay.
func (a *App) OverlayLoaded() bool {
	return a.overlayLoaded
}

// Close stops background sampling and releases the store and libvips.
func (a *App) Close() error {
	if a.collector != nil {
		a.collector.Stop()
	}
	if a.vipsStarted {
		decode.ShutdownVips()
	}
	return a.Store.Close()
}
