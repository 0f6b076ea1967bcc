package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/salary-api/internal/service"
)

// unmatchedRoute labels requests that hit no route, so scanners cannot grow the path label set.
const unmatchedRoute = "unmatched"

// Metrics records method, route pattern, status and latency of every request except skipPaths.
func Metrics(metricsSvc *service.MetricsService, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, path := range skipPaths {
		skip[path] = struct{}{}
	}
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if _, ok := skip[route]; ok {
			return
		}
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
