package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/size-analysis/pkg/metrics"
)

// observe records the request metric and a debug log line per request.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.ObserveHTTP(route, strconv.Itoa(status))
		s.logger.Debug("%s %s %d %v", c.Request.Method, route, status, time.Since(start))
	}
}
