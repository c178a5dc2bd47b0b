// Package metrics exposes Prometheus counters for the cache, token verification and HTTP responses.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the interface used by the cache, service and middleware layers.
type Recorder interface {
	RecordCacheHit(key string)
	RecordCacheMiss(key string)
	RecordCacheError(key string, op string)
	RecordAuthFailure(reason string)
	RecordHTTPStatus(statusCode int)
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	cacheHits    *prometheus.CounterVec
	cacheMisses  *prometheus.CounterVec
	cacheErrors  *prometheus.CounterVec
	authFailures *prometheus.CounterVec
	httpStatus   *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_cache_hits_total",
			Help: "Cache lookups served from the cache store.",
		}, []string{"key"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_cache_misses_total",
			Help: "Cache lookups that had to compute the value.",
		}, []string{"key"}),
		cacheErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_cache_errors_total",
			Help: "Cache store failures by operation.",
		}, []string{"key", "op"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_auth_failures_total",
			Help: "Rejected bearer tokens by reason.",
		}, []string{"reason"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_http_responses_total",
			Help: "HTTP responses by status code.",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.cacheHits,
		c.cacheMisses,
		c.cacheErrors,
		c.authFailures,
		c.httpStatus,
	)

	return c
}

func (c *Collector) RecordCacheHit(key string) {
	c.cacheHits.WithLabelValues(key).Inc()
}

func (c *Collector) RecordCacheMiss(key string) {
	c.cacheMisses.WithLabelValues(key).Inc()
}

func (c *Collector) RecordCacheError(key string, op string) {
	c.cacheErrors.WithLabelValues(key, op).Inc()
}

// RecordAuthFailure counts a rejected token. The reason never reaches the client.
func (c *Collector) RecordAuthFailure(reason string) {
	c.authFailures.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordCacheHit(string)           {}
func (Nop) RecordCacheMiss(string)          {}
func (Nop) RecordCacheError(string, string) {}
func (Nop) RecordAuthFailure(string)        {}
func (Nop) RecordHTTPStatus(int)            {}
