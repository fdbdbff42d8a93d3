package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityConfig controls the response hardening headers
type SecurityConfig struct {
	// HSTSMaxAge enables Strict-Transport-Security when positive
	HSTSMaxAge time.Duration
	// CSP is sent as Content-Security-Policy when set
	CSP string
}

// DefaultSecurityConfig suits a JSON API that is never framed or rendered.
// HSTS stays off until the service runs behind HTTPS.
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{CSP: "default-src 'none'; frame-ancestors 'none'"}
}

// Secure applies the default security headers
func Secure() gin.HandlerFunc {
	return SecureWithConfig(DefaultSecurityConfig())
}

// SecureWithConfig sets the hardening headers before the handler runs.
// Responses carry applicant data, so nothing may be cached.
func SecureWithConfig(cfg SecurityConfig) gin.HandlerFunc {
	headers := http.Header{
		"X-Frame-Options":        {"DENY"},
		"X-Content-Type-Options": {"nosniff"},
		"Referrer-Policy":        {"no-referrer"},
		"Cache-Control":          {"no-store"},
	}
	if cfg.CSP != "" {
		headers.Set("Content-Security-Policy", cfg.CSP)
	}
	if cfg.HSTSMaxAge > 0 {
		headers.Set("Strict-Transport-Security",
			fmt.Sprintf("max-age=%d; includeSubDomains", int64(cfg.HSTSMaxAge.Seconds())))
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		for k, v := range headers {
			h[k] = v
		}
		c.Next()
	}
}
