package middleware

import (
	"easyforms/forms-api/internal/metrics"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// NewMetricsMiddleware records request counts and latencies per route
// template, so /forms/:id is a single series no matter the ID.
func NewMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
