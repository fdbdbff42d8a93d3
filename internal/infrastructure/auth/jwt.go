// Package auth verifies the bearer tokens that identify reviewers.
// Tokens are issued by the school's identity service; this package only reads them.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/schoolops/enrollment/internal/infrastructure/config"
)

// TokenTypeAccess is the only token type accepted on reviewer requests
const TokenTypeAccess = "access"

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrInvalidTokenType = errors.New("invalid token type")
	ErrMissingUserID    = errors.New("missing user_id in claims")
)

// ReviewerClaims are the claims read from a reviewer's access token
type ReviewerClaims struct {
	jwt.RegisteredClaims
	UserID    string   `json:"user_id"`
	Username  string   `json:"username,omitempty"`
	Roles     []string `json:"roles,omitempty"`
	TokenType string   `json:"token_type"`
}

// HasRole reports whether the token carries role, case-insensitively
func (c *ReviewerClaims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// TokenVerifier validates HMAC signed reviewer tokens
type TokenVerifier struct {
	secret     []byte
	issuer     string
	expiration time.Duration
	leeway     time.Duration
}

// NewTokenVerifier creates a verifier from the JWT configuration
func NewTokenVerifier(cfg config.JWTConfig) *TokenVerifier {
	expiration := cfg.AccessTokenExpiration
	if expiration <= 0 {
		expiration = 15 * time.Minute
	}
	return &TokenVerifier{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		expiration: expiration,
		leeway:     30 * time.Second,
	}
}

// Verify parses tokenString and returns its claims. The issuer is checked
// when one is configured.
func (v *TokenVerifier) Verify(tokenString string) (*ReviewerClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &ReviewerClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		default:
			return nil, ErrInvalidToken
		}
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != "" && claims.TokenType != TokenTypeAccess {
		return nil, ErrInvalidTokenType
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return nil, ErrMissingUserID
	}
	return claims, nil
}

// Issue signs an access token for userID. The service itself never calls it;
// it serves local tooling and tests that need a reviewer token.
func (v *TokenVerifier) Issue(userID, username string, roles ...string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(v.expiration)
	claims := &ReviewerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    v.issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID:    userID,
		Username:  username,
		Roles:     roles,
		TokenType: TokenTypeAccess,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}
