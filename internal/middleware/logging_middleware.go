// internal/middleware/logging_middleware.go
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"escpos-bridge/internal/utils"
)

// LoggingMiddleware logs every request once it completes, tagged with the
// request id and, on printer routes, the printer id
func LoggingMiddleware(logger *utils.ServiceLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		duration := time.Since(startTime)

		logger.LogAPIRequest(
			c.Request.Method,
			c.Request.URL.Path,
			c.Request.UserAgent(),
			c.ClientIP(),
			c.Writer.Status(),
			duration,
			requestFields(c)...,
		)
	}
}

// requestFields identifies the request in log lines
func requestFields(c *gin.Context) []zap.Field {
	fields := []zap.Field{zap.String("request_id", c.GetString(utils.RequestIDKey))}
	if route := c.FullPath(); route != "" {
		fields = append(fields, zap.String("route", route))
	}
	if printerID := c.Param("printer_id"); printerID != "" {
		fields = append(fields, zap.String("printer_id", printerID))
	}
	if size := c.Writer.Size(); size > 0 {
		fields = append(fields, zap.Int("response_bytes", size))
	}
	if len(c.Errors) > 0 {
		fields = append(fields, zap.String("errors", c.Errors.String()))
	}
	return fields
}
