package metrics

import (
	"time"

	"media-decoder/internal/logging"
)

// SizeProvider reports the current entry count of something worth sampling,
// such as a lookup cache or the content store.
type SizeProvider interface {
	Len() int
}

// Collector periodically samples sizes into gauges
type Collector struct {
	caches   map[string]SizeProvider
	records  func() (int, error)
	interval time.Duration
	stopChan chan struct{}
}

// NewCollector creates a new metrics collector. caches maps the cache label
// ("classification", "orientation") to its provider; records may be nil.
func NewCollector(caches map[string]SizeProvider, records func() (int, error), interval time.Duration) *Collector {
	return &Collector{
		caches:   caches,
		records:  records,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	for name, provider := range c.caches {
		if provider == nil {
			continue
		}
		LookupCacheEntries.WithLabelValues(name).Set(float64(provider.Len()))
	}

	if c.records == nil {
		return
	}
	count, err := c.records()
	if err != nil {
		logging.Warn("Metrics: failed to count content records: %v", err)
		return
	}
	ContentRecordsTotal.Set(float64(count))
	logging.Debug("Metrics collected: content_records=%d", count)
}
