// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the Prometheus instrumentation for HTTP traffic. Every
// series is labelled with the registered route template, never the raw URL,
// so user ids in paths cannot blow up cardinality. Requests that matched no
// route share the "unmatched" label.
//
// Collectors:
//
//	authapi_http_requests_total{method,path,status}
//	authapi_http_request_duration_seconds{method,path}
//	authapi_http_requests_inflight
//	authapi_http_response_size_bytes{method,path}
//	authapi_http_denials_total{path,status}   401, 403 and 429 only
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "authapi"

// unmatchedPath labels requests that matched no registered route.
const unmatchedPath = "unmatched"

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// Status is left out to keep the histogram small.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			// bcrypt dominates login and sign-up; the upper buckets cover high costs.
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_inflight",
			Help:      "HTTP requests currently being served.",
		},
	)

	// Auth payloads are small JSON documents.
	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response body size in bytes.",
			Buckets:   prometheus.ExponentialBuckets(64, 2, 12), // 64B..128KiB
		},
		[]string{"method", "path"},
	)

	httpDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_denials_total",
			Help:      "Requests refused as unauthenticated, forbidden, or rate limited.",
		},
		[]string{"path", "status"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize, httpDenials)
}

// Metrics returns a Gin middleware that records the collectors above for
// every request. Mount it outside Errors so the recorded status is the one
// the client received.
//
//	r.Use(middleware.Metrics())
//	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		observeRequest(c.Request.Method, routeLabel(c), c.Writer.Status(), c.Writer.Size(), time.Since(start))
	}
}

// routeLabel returns the route template that served c.
func routeLabel(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return unmatchedPath
}

// observeRequest records one finished request. size is -1 when no body was
// written (e.g. 304) and is then left out of the size histogram.
func observeRequest(method, path string, status, size int, dur time.Duration) {
	code := strconv.Itoa(status)
	httpReqs.WithLabelValues(method, path, code).Inc()
	httpLat.WithLabelValues(method, path).Observe(dur.Seconds())
	if size >= 0 {
		httpRespSize.WithLabelValues(method, path).Observe(float64(size))
	}
	if isDenial(status) {
		httpDenials.WithLabelValues(path, code).Inc()
	}
}

func isDenial(status int) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return true
	}
	return false
}
