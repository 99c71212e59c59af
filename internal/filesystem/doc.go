/*
Package filesystem wraps the file operations the decoder performs on media
volumes with retry logic for NFS stale file handle errors.

	f, err := filesystem.OpenWithRetry(ctx, path, filesystem.DefaultRetryConfig())

Only ESTALE triggers a retry; every other error fails immediately. Backoff is
exponential (50ms, 100ms, 200ms by default) capped at MaxBackoff, and a done
context aborts the wait.

Metrics are reported through the Observer installed with SetObserver; with no
observer installed recording is skipped.
*/
package filesystem
