package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPRecorder receives one observation per inbound request
type HTTPRecorder interface {
	RecordHTTPRequest(ctx context.Context, method, route string, status int, d time.Duration)
}

// HTTPMetrics returns a Gin middleware that records request duration by
// method, route pattern and status. A nil recorder disables it.
func HTTPMetrics(recorder HTTPRecorder) gin.HandlerFunc {
	if recorder == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		recorder.RecordHTTPRequest(c.Request.Context(), c.Request.Method, getRoutePattern(c), c.Writer.Status(), time.Since(start))
	}
}

// getRoutePattern returns the route pattern (e.g., "/api/v1/checkout/:id/lock")
// instead of the actual path to avoid high cardinality issues.
func getRoutePattern(c *gin.Context) string {
	route := c.FullPath()
	if route == "" {
		return "unknown"
	}
	return route
}
