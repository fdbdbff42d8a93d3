package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/schoolops/enrollment/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars"

func newTestVerifier() *TokenVerifier {
	return NewTokenVerifier(config.JWTConfig{
		Secret:                testSecret,
		Issuer:                "school-identity",
		AccessTokenExpiration: 15 * time.Minute,
	})
}

func signClaims(t *testing.T, method jwt.SigningMethod, secret string, claims *ReviewerClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims() *ReviewerClaims {
	now := time.Now()
	return &ReviewerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "school-identity",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID:    "registrar-7",
		Roles:     []string{"Registrar"},
		TokenType: TokenTypeAccess,
	}
}

func TestNewTokenVerifier_DefaultExpiration(t *testing.T) {
	v := NewTokenVerifier(config.JWTConfig{Secret: testSecret})
	assert.Equal(t, 15*time.Minute, v.expiration)
}

func TestTokenVerifier_IssueAndVerify(t *testing.T) {
	v := newTestVerifier()

	token, expiresAt, err := v.Issue("registrar-7", "rgarcia", "registrar")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "registrar-7", claims.UserID)
	assert.Equal(t, "rgarcia", claims.Username)
	assert.Equal(t, "registrar-7", claims.Subject)
	assert.True(t, claims.HasRole("REGISTRAR"))
	assert.False(t, claims.HasRole("principal"))
}

func TestTokenVerifier_Verify(t *testing.T) {
	v := newTestVerifier()

	tests := []struct {
		name    string
		token   func(t *testing.T) string
		wantErr error
	}{
		{
			name:    "garbage",
			token:   func(*testing.T) string { return "not-a-token" },
			wantErr: ErrInvalidToken,
		},
		{
			name: "wrong secret",
			token: func(t *testing.T) string {
				return signClaims(t, jwt.SigningMethodHS256, "another-secret-key-at-least-32-chars", validClaims())
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "unsigned",
			token: func(t *testing.T) string {
				s, err := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims()).SignedString(jwt.UnsafeAllowNoneSignatureType)
				require.NoError(t, err)
				return s
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "expired",
			token: func(t *testing.T) string {
				c := validClaims()
				c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
				return signClaims(t, jwt.SigningMethodHS256, testSecret, c)
			},
			wantErr: ErrExpiredToken,
		},
		{
			name: "not yet valid",
			token: func(t *testing.T) string {
				c := validClaims()
				c.NotBefore = jwt.NewNumericDate(time.Now().Add(time.Hour))
				return signClaims(t, jwt.SigningMethodHS256, testSecret, c)
			},
			wantErr: ErrTokenNotYetValid,
		},
		{
			name: "missing expiry",
			token: func(t *testing.T) string {
				c := validClaims()
				c.ExpiresAt = nil
				return signClaims(t, jwt.SigningMethodHS256, testSecret, c)
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "wrong issuer",
			token: func(t *testing.T) string {
				c := validClaims()
				c.Issuer = "someone-else"
				return signClaims(t, jwt.SigningMethodHS256, testSecret, c)
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "refresh token",
			token: func(t *testing.T) string {
				c := validClaims()
				c.TokenType = "refresh"
				return signClaims(t, jwt.SigningMethodHS256, testSecret, c)
			},
			wantErr: ErrInvalidTokenType,
		},
		{
			name: "missing user id",
			token: func(t *testing.T) string {
				c := validClaims()
				c.UserID = " "
				return signClaims(t, jwt.SigningMethodHS256, testSecret, c)
			},
			wantErr: ErrMissingUserID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token(t))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("HS512 is accepted", func(t *testing.T) {
		claims, err := v.Verify(signClaims(t, jwt.SigningMethodHS512, testSecret, validClaims()))
		require.NoError(t, err)
		assert.Equal(t, "registrar-7", claims.UserID)
	})
}

func TestTokenVerifier_NoIssuerConfigured(t *testing.T) {
	v := NewTokenVerifier(config.JWTConfig{Secret: testSecret})
	c := validClaims()
	c.Issuer = "anyone"

	claims, err := v.Verify(signClaims(t, jwt.SigningMethodHS256, testSecret, c))
	require.NoError(t, err)
	assert.Equal(t, "registrar-7", claims.UserID)
}
