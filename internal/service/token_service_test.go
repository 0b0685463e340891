package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-ecoforum/internal/model"
	"go-ecoforum/internal/testutil"
)

func TestTokenService_ValidateToken(t *testing.T) {
	svc := NewTokenService(testutil.TestJWTSecret)

	t.Run("valid access token", func(t *testing.T) {
		claims, err := svc.ValidateToken(testutil.SignToken(t, 42, model.RoleModerator), "access")
		require.NoError(t, err)
		assert.Equal(t, int64(42), claims.UserID)
		assert.Equal(t, model.RoleModerator, claims.Role)
		assert.Equal(t, "user42", claims.Username)
		assert.NotEmpty(t, claims.TokenID)
	})

	sign := func(t *testing.T, secret string, claims jwt.MapClaims) string {
		t.Helper()
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return token
	}
	exp := time.Now().Add(time.Minute).Unix()

	rejected := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", sign(t, "other", jwt.MapClaims{"sub": "1", "typ": "access", "exp": exp})},
		{"expired", sign(t, testutil.TestJWTSecret, jwt.MapClaims{"sub": "1", "typ": "access", "exp": time.Now().Add(-time.Minute).Unix()})},
		{"no expiry", sign(t, testutil.TestJWTSecret, jwt.MapClaims{"sub": "1", "typ": "access"})},
		{"refresh token", sign(t, testutil.TestJWTSecret, jwt.MapClaims{"sub": "1", "typ": "refresh", "exp": exp})},
		{"non-numeric subject", sign(t, testutil.TestJWTSecret, jwt.MapClaims{"sub": "alice", "typ": "access", "exp": exp})},
	}

	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(tt.token, "access")
			require.Error(t, err)
		})
	}

	t.Run("role defaults to member", func(t *testing.T) {
		claims, err := svc.ValidateToken(sign(t, testutil.TestJWTSecret, jwt.MapClaims{"sub": "5", "typ": "access", "exp": exp}), "access")
		require.NoError(t, err)
		assert.Equal(t, model.RoleMember, claims.Role)
	})
}
