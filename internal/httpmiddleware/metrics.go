package httpmiddleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"asistencia/internal/metrics"
)

// RequestMetrics records latency per route template and status code.
func RequestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.ObserveRequest(path, c.Request.Method, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
