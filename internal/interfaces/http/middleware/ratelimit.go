package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/schoolops/enrollment/internal/infrastructure/ratelimit"
	"github.com/schoolops/enrollment/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// RateLimit throttles requests per client IP. A limiter failure lets the request through.
func RateLimit(limiter ratelimit.Limiter, log *zap.Logger) gin.HandlerFunc {
	return RateLimitByKey(limiter, func(c *gin.Context) string { return c.ClientIP() }, log)
}

// RateLimitByKey returns a rate limiting middleware with custom key extractor
func RateLimitByKey(limiter ratelimit.Limiter, keyFunc func(*gin.Context) string, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		decision, err := limiter.Allow(c.Request.Context(), keyFunc(c))
		if err != nil {
			log.Warn("Rate limiter unavailable, allowing request", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(decision.RetryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRateLimited,
				"Too many requests. Please try again later.",
				"",
				c.GetString(RequestIDKey),
			))
			return
		}
		c.Next()
	}
}
