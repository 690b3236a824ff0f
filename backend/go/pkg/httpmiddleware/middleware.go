// Package httpmiddleware holds gin middlewares shared by the HTTP services.
package httpmiddleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"Outreach/backend/go/internal/models"
	"Outreach/backend/go/pkg/circuitbreaker"
	"Outreach/backend/go/pkg/logger"
	"Outreach/backend/go/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
)

// KeyFunc extracts the rate-limit key from a request.
type KeyFunc func(c *gin.Context) string

// ClientIP keys requests by the client address gin resolves.
func ClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// RateLimit rejects requests with 429 once the limiter for their key is
// exhausted.
func RateLimit(limiter ratelimiter.KeyedLimiter, key KeyFunc) gin.HandlerFunc {
	if key == nil {
		key = ClientIP
	}
	return func(c *gin.Context) {
		if !limiter.AllowKey(key(c)) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too Many Requests"})
			return
		}
		c.Next()
	}
}

// CircuitBreak runs the rest of the chain inside breaker. Responses with a
// status >= 500 count as failures; an open circuit answers 503.
func CircuitBreak(breaker circuitbreaker.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, err := breaker.Execute(func() (interface{}, error) {
			c.Next()
			if status := c.Writer.Status(); status >= http.StatusInternalServerError {
				return nil, fmt.Errorf("server error: status code %d", status)
			}
			return nil, nil
		})

		if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Service Unavailable: Circuit Breaker is open"})
		}
		// 其他错误时，处理函数已经写好了响应。
	}
}

// RequestLogger 为每个请求输出一条结构化日志。
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithRequest(models.RequestInfo{
			Method:     c.Request.Method,
			Path:       c.FullPath(),
			RemoteAddr: c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
		}).WithPayload(map[string]interface{}{
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		})

		status := c.Writer.Status()
		switch {
		case status >= http.StatusInternalServerError:
			msg := "request failed"
			if len(c.Errors) > 0 {
				msg = c.Errors.String()
			}
			entry.WithError(models.ErrorInfo{Message: msg, StatusCode: status}).Error("HTTP request")
		case status >= http.StatusBadRequest:
			entry.Warn("HTTP request")
		default:
			entry.Info("HTTP request")
		}
	}
}
