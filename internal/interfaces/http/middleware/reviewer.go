package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/schoolops/enrollment/internal/domain/enrollment"
	"github.com/schoolops/enrollment/internal/infrastructure/auth"
	"github.com/schoolops/enrollment/internal/infrastructure/logger"
	"github.com/schoolops/enrollment/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Reviewer identity context keys and headers
const (
	ReviewerIDKey     = "reviewer_id"
	ReviewerClaimsKey = "reviewer_claims"
	ReviewerIDHeader  = "X-Reviewer-ID"
	AuthHeaderKey     = "Authorization"
	BearerPrefix      = "Bearer "

	maxReviewerIDLength = 100
)

// TokenVerifier validates a bearer token and returns its claims
type TokenVerifier interface {
	Verify(tokenString string) (*auth.ReviewerClaims, error)
}

// ReviewerAuthConfig holds configuration for the reviewer identity middleware
type ReviewerAuthConfig struct {
	// Verifier checks bearer tokens. Required when Required is set.
	Verifier TokenVerifier
	// Required rejects requests without a valid bearer token. When false the
	// X-Reviewer-ID header names the reviewer.
	Required bool
	Logger   *zap.Logger
}

// ReviewerAuth resolves the acting reviewer. A bearer token always wins and an
// invalid one is rejected. Without a token the request is rejected when
// Required, otherwise the X-Reviewer-ID header is trusted.
func ReviewerAuth(cfg ReviewerAuthConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader(AuthHeaderKey))

		var reviewerID string
		switch {
		case authHeader != "":
			claims, err := verifyBearer(cfg.Verifier, authHeader)
			if err != nil {
				log.Warn("Reviewer authentication failed",
					zap.Error(err),
					zap.String("path", c.Request.URL.Path),
				)
				abortUnauthorized(c, err)
				return
			}
			c.Set(ReviewerClaimsKey, claims)
			reviewerID = claims.UserID
		case cfg.Required:
			abortUnauthorized(c, nil)
			return
		default:
			reviewerID = strings.TrimSpace(c.GetHeader(ReviewerIDHeader))
			if len(reviewerID) > maxReviewerIDLength {
				c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
					enrollment.CodeValidation,
					"Reviewer ID is too long",
					"reviewer_id",
					c.GetString(RequestIDKey),
				))
				return
			}
		}

		if reviewerID != "" {
			c.Set(ReviewerIDKey, reviewerID)
			c.Request = c.Request.WithContext(logger.WithReviewerID(c.Request.Context(), reviewerID))
		}
		c.Next()
	}
}

func verifyBearer(verifier TokenVerifier, authHeader string) (*auth.ReviewerClaims, error) {
	if !strings.HasPrefix(authHeader, BearerPrefix) {
		return nil, auth.ErrInvalidToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, BearerPrefix))
	if token == "" || verifier == nil {
		return nil, auth.ErrInvalidToken
	}
	return verifier.Verify(token)
}

func abortUnauthorized(c *gin.Context, err error) {
	code := dto.ErrCodeUnauthorized
	message := "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code = dto.ErrCodeTokenExpired
		message = "Token has expired"
	case err != nil:
		code = dto.ErrCodeTokenInvalid
		message = "Invalid token"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
		code, message, "", c.GetString(RequestIDKey),
	))
}

// GetReviewerID returns the reviewer resolved for this request, or ""
func GetReviewerID(c *gin.Context) string {
	return c.GetString(ReviewerIDKey)
}

// GetReviewerClaims returns the verified token claims, or nil when the
// reviewer came from the header
func GetReviewerClaims(c *gin.Context) *auth.ReviewerClaims {
	if claims, exists := c.Get(ReviewerClaimsKey); exists {
		if rc, ok := claims.(*auth.ReviewerClaims); ok {
			return rc
		}
	}
	return nil
}
