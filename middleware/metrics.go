package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/k-tong-dev/v0-elearning-sub007/awsx"

	"github.com/gin-gonic/gin"
)

// MetricsMiddleware creates a Gin middleware that tracks HTTP metrics
func MetricsMiddleware(metricsClient *awsx.MetricsClient, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsClient == nil || !metricsClient.IsEnabled() {
			c.Next()
			return
		}

		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		dimensions := map[string]string{
			"Service": serviceName,
			"Method":  method,
			"Path":    path,
			"Status":  statusCodeToRange(statusCode),
		}

		// Record metrics asynchronously to avoid blocking
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			_ = metricsClient.RecordCount(ctx, awsx.MetricHTTPRequests, dimensions)
			_ = metricsClient.RecordLatency(ctx, awsx.MetricHTTPLatency, duration, dimensions)

			if statusCode >= 400 {
				_ = metricsClient.RecordCount(ctx, awsx.MetricHTTPErrors, dimensions)
			}
		}()
	}
}

func statusCodeToRange(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}
