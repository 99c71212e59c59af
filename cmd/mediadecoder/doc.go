// Command mediadecoder serves decoded, orientation-corrected JPEG thumbnails
// over HTTP.
//
// Routes:
//
//	GET  /api/decode?uri=&w=&h=&orientation=1&key=  Decode a locator to JPEG
//	POST /api/content                               Register a content record
//	GET  /healthz, /livez                           Health and liveness
//
// Prometheus metrics are served on METRICS_PORT when METRICS_ENABLED is set.
// file:// locators and content record data paths must lie under MEDIA_ROOTS;
// anything else is answered with 403.
//
// Configuration is read from the environment by startup.LoadConfig. The
// server shuts down cleanly on SIGINT or SIGTERM.
package main
