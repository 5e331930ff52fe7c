package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aulalink/gradebook-api/internal/service"
)

// Metrics observes every request with its route template as the path
// label. Requests that match no route share a single label so probing
// random URLs cannot grow the metric's cardinality.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
