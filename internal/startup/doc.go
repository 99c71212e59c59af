// Package startup handles configuration loading and startup/shutdown logging
// for the decode service.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig]:
//
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable the metrics server (default: true)
//   - DATABASE_PATH: sqlite file backing the content store (default: /database/content.db)
//   - CACHE_CAPACITY: Entries per lookup cache (default: 16384)
//   - OVERLAY_PATH: Image drawn over motion thumbnails (default: none)
//   - OVERLAY_STACKED: Draw two stacked top-left copies instead of one centred (default: false)
//   - FFMPEG_PATH: ffmpeg binary used for frame sampling (default: ffmpeg)
//   - FRAME_OFFSET: Where frames are sampled, as a Go duration (default: 1s)
//   - THUMBNAIL_KIND: mini or micro (default: mini)
//   - VIPS_ENABLED: Use libvips where available (default: true)
//   - DECODE_WORKERS: Worker count for batch decodes (default: auto)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: false)
//   - MEDIA_VOLUMES: label=/path pairs, comma separated, used to label filesystem metrics
//   - MEDIA_ROOTS: Comma separated directories decoded files must live under (default: /media)
//   - LOG_LEVEL / LOG_FORMAT: See package logging
//
// The directory holding DATABASE_PATH is created if missing and must be
// writable. A missing OVERLAY_PATH disables overlays rather than failing.
//
// # Lifecycle Logging
//
//	config, err := startup.LoadConfig()
//	if err != nil {
//	    startup.LogFatal("Configuration error: %v", err)
//	}
//	startup.LogContentStoreInit(time.Since(start), count)
//	startup.LogPipelineInit(config, decode.IsVipsAvailable(), overlay != nil)
//	startup.LogHTTPRoutes(router)
//	startup.LogServerStarted(startup.ServerConfig{...})
package startup
