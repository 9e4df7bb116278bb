// Package handlers contains middleware for the payment service.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/qaura/qaura-payments/internal/platform/logger"
)

const requestIDKey = "request_id"

// CORSMiddleware handles Cross-Origin Resource Sharing.
func CORSMiddleware(allowedOrigin string) gin.HandlerFunc {
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", allowedOrigin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestIDMiddleware adds a unique request ID to each request and to its logging context.
func RequestIDMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(requestIDKey, requestID)
		c.Header("X-Request-ID", requestID)
		c.Request = c.Request.WithContext(log.WithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

// LoggingMiddleware writes request.start and request.complete entries.
func LoggingMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := log.WithFields(c.Request.Context(), map[string]any{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		})
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		log.Debug(ctx, "request.start")

		c.Next()

		ctx = log.WithFields(ctx, map[string]any{
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		log.Info(ctx, "request.complete")
	}
}
