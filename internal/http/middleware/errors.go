// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file is the single place where failures become HTTP responses.
// Errors() runs the rest of the chain, then classifies the error attached by
// a handler or middleware (via c.Error) with failure.Classify and writes the
// resulting status and body. Recovery() routes panics through the same path.
//
// Only the development unclassified branch logs; every other branch is a pure
// mapping. Each classified failure increments
// authapi_failures_total{kind,status}.
package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tbourn/go-auth-backend/internal/failure"
)

// apiFailures counts classified failures by kind and response status.
var apiFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "failures_total",
		Help:      "Failures turned into HTTP responses, by kind and status.",
	},
	[]string{"kind", "status"},
)

func init() {
	prometheus.MustRegister(apiFailures)
}

// Errors returns a middleware that converts the last error attached to the
// Gin context into the response. Nothing is written when the chain already
// produced a response or attached no error.
func Errors(mode failure.Mode) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		respond(c, c.Errors.Last().Err, mode)
	}
}

// respond classifies err and writes the response.
func respond(c *gin.Context, err error, mode failure.Mode) {
	res := failure.Classify(err, mode)
	apiFailures.WithLabelValues(res.Failure.Kind.String(), strconv.Itoa(res.Status)).Inc()

	if res.Failure.Kind == failure.KindUnclassified && mode == failure.ModeDevelopment {
		LoggerFrom(c).Error().
			Str("error", res.Failure.Message).
			Str("stack", res.Failure.Stack).
			Msg("unhandled error")
	}

	c.AbortWithStatusJSON(res.Status, res.Body)
}
