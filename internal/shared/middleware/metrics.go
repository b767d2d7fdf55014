package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vidgo/server/internal/utils/metrics"
)

// Metrics records request counts, latencies and the in-flight gauge for
// every route. Passing nil disables recording.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()

		// The route pattern keeps label cardinality bounded; unmatched
		// routes fall back to the raw path.
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		c.Next()

		m.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
