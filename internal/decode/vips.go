package decode

import (
	"bytes"
	"fmt"
	"image"
	"sync"

	"media-decoder/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

// InitVips initializes the libvips library
// This should be called once at startup
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	// Configure vips logging BEFORE Startup() so LOG_LEVEL is respected
	vipsLogLevel := vips.LogLevelWarning
	switch logging.GetLevel() {
	case logging.LevelDebug:
		vipsLogLevel = vips.LogLevelInfo
	case logging.LevelWarn:
		vipsLogLevel = vips.LogLevelError
	case logging.LevelError:
		vipsLogLevel = vips.LogLevelCritical
	}

	vips.LoggingSettings(func(domain string, level vips.LogLevel, msg string) {
		switch level {
		case vips.LogLevelError, vips.LogLevelCritical:
			logging.Error("[%s] %s", domain, msg)
		case vips.LogLevelWarning:
			logging.Warn("[%s] %s", domain, msg)
		default:
			logging.Debug("[%s] %s", domain, msg)
		}
	}, vipsLogLevel)

	// Decode work is already parallel across requests
	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
		ReportLeaks:      false,
		CacheTrace:       false,
		CollectStats:     false,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
	return nil
}

// ShutdownVips cleans up libvips resources
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable returns whether libvips is initialized and available
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

// LoadBufferWithVips decodes an encoded image with libvips. When width and
// height are positive the image is shrunk during decode to fit inside them,
// or, with crop set, to fill them with a centre crop. The stored orientation
// is left untouched.
func LoadBufferWithVips(buf []byte, width, height int, crop bool) (image.Image, error) {
	if !IsVipsAvailable() {
		return nil, fmt.Errorf("libvips not available")
	}

	importParams := vips.NewImportParams()
	importParams.AutoRotate.Set(false)

	ref, err := vips.LoadImageFromBuffer(buf, importParams)
	if err != nil {
		return nil, fmt.Errorf("vips failed to load image: %w", err)
	}
	defer ref.Close()

	if width > 0 && height > 0 {
		interesting := vips.InterestingNone
		if crop {
			interesting = vips.InterestingCentre
		}
		logging.Debug("Vips shrinking %dx%d to %dx%d (crop=%v)", ref.Width(), ref.Height(), width, height, crop)
		if err := ref.Thumbnail(width, height, interesting); err != nil {
			return nil, fmt.Errorf("vips resize failed: %w", err)
		}
	}

	ep := vips.NewPngExportParams()
	imgBytes, _, err := ref.ExportPng(ep)
	if err != nil {
		return nil, fmt.Errorf("vips export failed: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode vips output: %w", err)
	}
	return img, nil
}

// BoundsWithVips reads the pixel size of an encoded image with libvips.
// Pixels are not decoded; libvips loads lazily.
func BoundsWithVips(buf []byte) (image.Point, error) {
	if !IsVipsAvailable() {
		return image.Point{}, fmt.Errorf("libvips not available")
	}

	ref, err := vips.LoadImageFromBuffer(buf, vips.NewImportParams())
	if err != nil {
		return image.Point{}, fmt.Errorf("vips failed to read header: %w", err)
	}
	defer ref.Close()

	return image.Pt(ref.Width(), ref.Height()), nil
}
