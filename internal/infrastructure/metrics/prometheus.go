package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sustainedaway"

// Recorder exposes pipeline and HTTP metrics on its own registry
type Recorder struct {
	registry    *prom.Registry
	analyses    *prom.CounterVec
	generations *prom.HistogramVec
	cache       *prom.CounterVec
	requests    *prom.CounterVec
	latency     *prom.HistogramVec
}

// NewRecorder creates a recorder with process and Go runtime collectors registered
func NewRecorder() *Recorder {
	registry := prom.NewRegistry()
	r := &Recorder{
		registry: registry,
		analyses: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analyses completed, by input kind and outcome.",
		}, []string{"kind", "outcome"}),
		generations: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Latency of generative AI requests.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		}, []string{"provider", "status"}),
		cache: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Analysis cache lookups, by input kind and result.",
		}, []string{"kind", "result"}),
		requests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by route, method and status code.",
		}, []string{"route", "method", "code"}),
		latency: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prom.DefBuckets,
		}, []string{"route", "method"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.analyses,
		r.generations,
		r.cache,
		r.requests,
		r.latency,
	)
	return r
}

// RecordAnalysis counts a finished analysis
func (r *Recorder) RecordAnalysis(kind, outcome string) {
	r.analyses.WithLabelValues(kind, outcome).Inc()
}

// RecordGeneration observes one generator call
func (r *Recorder) RecordGeneration(provider string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.generations.WithLabelValues(provider, status).Observe(duration.Seconds())
}

// RecordCache counts a cache lookup
func (r *Recorder) RecordCache(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cache.WithLabelValues(kind, result).Inc()
}

// GinMiddleware records request counts and latency per matched route
func (r *Recorder) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		r.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		r.latency.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prom.Registry {
	return r.registry
}
