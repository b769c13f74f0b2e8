package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ContentMetrics records lifecycle operation and query cache activity.
type ContentMetrics struct {
	duration    *prometheus.HistogramVec
	success     *prometheus.CounterVec
	failure     *prometheus.CounterVec
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
}

// NewContentMetrics registers the content metrics on the provided registerer.
func NewContentMetrics(reg prometheus.Registerer) *ContentMetrics {
	if reg == nil {
		return &ContentMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "content_op_duration_seconds",
		Help:    "Duration of content lifecycle operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "content_op_success",
		Help: "Successful content lifecycle operations.",
	}, []string{"op"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "content_op_failure",
		Help: "Failed content lifecycle operations.",
	}, []string{"op"})
	cacheHits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "content_cache_hits",
		Help: "Query cache hits.",
	}, []string{"namespace"})
	cacheMisses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "content_cache_misses",
		Help: "Query cache misses.",
	}, []string{"namespace"})
	reg.MustRegister(duration, success, failure, cacheHits, cacheMisses)
	return &ContentMetrics{
		duration:    duration,
		success:     success,
		failure:     failure,
		cacheHits:   cacheHits,
		cacheMisses: cacheMisses,
	}
}

// ObserveDuration records the duration for the named operation.
func (c *ContentMetrics) ObserveDuration(op string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named operation.
func (c *ContentMetrics) IncSuccess(op string) {
	if c == nil || c.success == nil {
		return
	}
	c.success.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncFailure increments the failure counter for the named operation.
func (c *ContentMetrics) IncFailure(op string) {
	if c == nil || c.failure == nil {
		return
	}
	c.failure.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncCacheHit increments the hit counter for a cache namespace.
func (c *ContentMetrics) IncCacheHit(namespace string) {
	if c == nil || c.cacheHits == nil {
		return
	}
	c.cacheHits.WithLabelValues(normalizeLabel(namespace)).Inc()
}

// IncCacheMiss increments the miss counter for a cache namespace.
func (c *ContentMetrics) IncCacheMiss(namespace string) {
	if c == nil || c.cacheMisses == nil {
		return
	}
	c.cacheMisses.WithLabelValues(normalizeLabel(namespace)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
