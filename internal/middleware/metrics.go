package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sunday-attendance/internal/service"
)

const unmatchedRoute = "unmatched"

// Metrics records request count and latency per method, route template and status.
// Requests that match no route share one label; routes listed in skip are not recorded.
func Metrics(metricsSvc *service.MetricsService, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, route := range skip {
		skipped[route] = struct{}{}
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if _, ok := skipped[route]; metricsSvc == nil || ok {
			c.Next()
			return
		}
		if route == "" {
			route = unmatchedRoute
		}
		start := time.Now()
		c.Next()
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
