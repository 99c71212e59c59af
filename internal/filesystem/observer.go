package filesystem

// Observer records filesystem operation metrics. The metrics package provides
// the implementation so this package does not import it.
type Observer interface {
	// ObserveOperation records duration and error status of one attempt.
	// volume is the resolved mount label ("media", "database"), operation is
	// "open" or "stat".
	ObserveOperation(volume, operation string, durationSeconds float64, err error)

	ObserveRetryAttempt(retryOp, volume string)
	ObserveRetrySuccess(retryOp, volume string)
	ObserveRetryFailure(retryOp, volume string)
	ObserveRetryDuration(retryOp, volume string, durationSeconds float64)
	ObserveStaleError(retryOp, volume string)
}

var defaultObserver Observer

// SetObserver sets the package-level metrics observer. Nil disables recording.
func SetObserver(o Observer) {
	defaultObserver = o
}

func observe() Observer {
	return defaultObserver
}
