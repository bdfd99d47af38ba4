package middleware

import (
	"strconv"
	"time"

	"todo_api/internal/observability"

	"github.com/gin-gonic/gin"
)

// unmatchedRoute labels requests that hit no route, so arbitrary paths do not
// become label values.
const unmatchedRoute = "unmatched"

// PrometheusMiddleware records request count, latency and in-flight requests
// by route template. Paths listed in skip (e.g. the scrape endpoint) are not
// observed.
func PrometheusMiddleware(metrics *observability.Metrics, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skipped[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		start := time.Now()
		c.Next()
		elapsed := time.Since(start).Seconds()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(elapsed)
	}
}
