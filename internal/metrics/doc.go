// Package metrics provides Prometheus instrumentation for the media decoder.
//
// All metrics are prefixed with "media_decoder_". They cover:
//   - HTTP requests served by the decode service
//   - Decode pipeline outcomes, durations and fault kinds
//   - Motion thumbnail extraction per fallback tier
//   - Lookup cache hits, misses, evictions and sizes
//   - Content-attribute store queries
//   - Filesystem operations and stale-handle retries
//
// The filesystem package reports through the Observer returned by
// NewFilesystemObserver to avoid an import cycle.
package metrics
