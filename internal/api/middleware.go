package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Adda-Baaj/arthik-khobor/internal/logger"
)

// RequestLogger logs one entry per request through the harvester logger.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.NopLogger{}
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]any{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			log.ErrorObj("http request", "http_request", fields)
		case status >= 400:
			log.WarnObj("http request", "http_request", fields)
		default:
			log.InfoObj("http request", "http_request", fields)
		}
	}
}
