// Package logging provides a leveled logging interface for the media
// decoder, backed by zap.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable and the
// output encoding via LOG_FORMAT ("console" or "json").
package logging
