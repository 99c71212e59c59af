package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, path := range []string{"motion", "image", "unknown"} {
		DecodeRequestsTotal.WithLabelValues(path, "done")
		DecodeRequestsTotal.WithLabelValues(path, "failed")
		DecodeDuration.WithLabelValues(path)
	}

	for _, kind := range []string{"classification_probe_failed", "metadata_query_failed",
		"extraction_exhausted", "decode_bounds_failed", "decode_failed"} {
		DecodeErrorsTotal.WithLabelValues(kind)
	}

	for _, tier := range []string{"embedded", "frame", "service"} {
		for _, result := range []string{"hit", "miss", "error"} {
			MotionTierAttempts.WithLabelValues(tier, result)
		}
		MotionTierDuration.WithLabelValues(tier)
	}

	for _, source := range []string{"pipe", "file"} {
		FFmpegDuration.WithLabelValues(source)
	}

	for _, cache := range []string{"classification", "orientation"} {
		LookupCacheHits.WithLabelValues(cache)
		LookupCacheMisses.WithLabelValues(cache)
		LookupCacheEvictions.WithLabelValues(cache)
		LookupCacheEntries.WithLabelValues(cache)
	}

	for _, source := range []string{"exif", "content", "other"} {
		OrientationLookups.WithLabelValues(source, "ok")
		OrientationLookups.WithLabelValues(source, "default")
	}

	for _, op := range []string{"initialize_schema", "query", "upsert_record", "count_records"} {
		ContentQueryTotal.WithLabelValues(op, "success")
		ContentQueryTotal.WithLabelValues(op, "error")
		ContentQueryDuration.WithLabelValues(op)
	}

	volumes := []string{"media", "database", "unknown"}
	for _, vol := range volumes {
		for _, op := range []string{"open", "stat"} {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}
}
