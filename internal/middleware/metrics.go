package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// UnmatchedRoute labels requests that hit no registered route, so scanning
// arbitrary URLs cannot grow the label set.
const UnmatchedRoute = "unmatched"

// RequestObserver receives one observation per served request.
type RequestObserver interface {
	ObserveHTTPRequest(method, path string, status int, duration time.Duration)
}

// Metrics reports every request to observer, labelled by route template
// (e.g. /api/v1/timetables/solve/:jobId) rather than the concrete URL.
func Metrics(observer RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if observer == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = UnmatchedRoute
		}
		observer.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
