// Command thumbdecode decodes many locators into JPEG thumbnails using the
// same pipeline as the HTTP service.
//
// Usage:
//
//	thumbdecode [flags] <locator|path>...
//
// Plain filesystem paths are turned into file:// locators. content://
// locators are resolved through the content store at DATABASE_PATH.
//
// Flags:
//
//	-out DIR         Output directory (default: current directory)
//	-w, -h N         Target bounding box; 0 leaves an axis unconstrained
//	-no-orientation  Skip orientation metadata lookups
//	-quality N       JPEG quality 1-100 (default: 85)
//	-workers N       Concurrent decodes (default: DECODE_WORKERS or 1.5 per CPU)
//
// Each output is named after the source with a short image key appended. The
// key is also printed so it can be matched against decode logs. The exit
// status is 1 if any locator failed.
package main
