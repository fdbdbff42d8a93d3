package logger

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ginRequestIDKey is where the request ID middleware leaves the ID
const ginRequestIDKey = "request_id"

// RequestLogger writes one access log line per request after the handler
// chain has run, so reviewer identity resolved downstream is included.
// Requests to quietPaths (health probes) are logged at debug.
func RequestLogger(base *zap.Logger, quietPaths ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx := WithRequestID(c.Request.Context(), c.GetString(ginRequestIDKey))
		c.Request = c.Request.WithContext(WithContext(ctx, base))

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if q := c.Request.URL.RawQuery; q != "" {
			fields = append(fields, zap.String("query", q))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		if ce := L(c.Request.Context()).Check(accessLevel(status, slices.Contains(quietPaths, c.Request.URL.Path)), "HTTP Request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

func accessLevel(status int, quiet bool) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	case quiet:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// Recovery turns a handler panic into a 500 envelope and logs the stack
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				ctx := c.Request.Context()
				if GetRequestID(ctx) == "" {
					ctx = WithRequestID(ctx, c.GetString(ginRequestIDKey))
				}
				Enrich(ctx, base).Error("Panic recovered",
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Any("error", rec),
					zap.Stack("stacktrace"),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error":   gin.H{"code": "ERR_INTERNAL", "message": "An internal error occurred"},
				})
			}
		}()
		c.Next()
	}
}

// FromGin returns the request logger with correlation fields
func FromGin(c *gin.Context) *zap.Logger {
	return L(c.Request.Context())
}
