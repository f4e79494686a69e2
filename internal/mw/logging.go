package mw

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ops-console-backend/internal/metrics"
)

// RequestLogger logs every request and records its latency per route.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPDuration.
			WithLabelValues(route, c.Request.Method, strconv.Itoa(status)).
			Observe(float64(elapsed.Nanoseconds()) / float64(time.Millisecond))

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.String("remote_addr", c.ClientIP()),
			zap.Duration("elapsed", elapsed),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case status >= 500:
			log.Error("handled HTTP request", fields...)
		case status >= 400:
			log.Warn("handled HTTP request", fields...)
		default:
			log.Info("handled HTTP request", fields...)
		}
	}
}
