package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/schoolops/enrollment/internal/interfaces/http/dto"
)

// BodyLimit caps request bodies at maxBytes. A declared Content-Length over the
// cap is refused up front; chunked bodies are cut off on read and surface as
// *http.MaxBytesError to the binding handler. Zero or less disables the cap.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.Body == http.NoBody {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRequestTooLarge,
				"Request body exceeds maximum allowed size",
				"",
				c.GetString(RequestIDKey),
			))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
