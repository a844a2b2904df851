// Package authtest signs tokens the way the external auth service does, for tests.
package authtest

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"restaurant-floor/internal/auth"
)

const (
	Secret = "test-secret"
	Issuer = "floor-auth"
)

// Provider returns a provider that accepts tokens from Token
func Provider() *auth.JWTProvider {
	return auth.NewJWTProvider(Secret, Issuer)
}

// Token signs a token for username with role, valid for an hour
func Token(t testing.TB, username string, role auth.Role) string {
	t.Helper()
	return Sign(t, Secret, auth.Claims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
}

// Sign signs arbitrary claims with secret
func Sign(t testing.TB, secret string, claims auth.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}
