package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"restaurant-floor/internal/auth"
	"restaurant-floor/internal/auth/authtest"
	"restaurant-floor/internal/logger"
)

func TestJWTProvider_Authenticate(t *testing.T) {
	provider := authtest.Provider()

	tests := []struct {
		name     string
		token    string
		wantErr  bool
		wantRole auth.Role
	}{
		{
			name:     "valid admin",
			token:    authtest.Token(t, "alice", auth.RoleAdmin),
			wantRole: auth.RoleAdmin,
		},
		{
			name:     "valid operator",
			token:    authtest.Token(t, "bob", auth.RoleOperator),
			wantRole: auth.RoleOperator,
		},
		{
			name: "wrong secret",
			token: authtest.Sign(t, "other-secret", auth.Claims{
				Username:         "alice",
				Role:             auth.RoleAdmin,
				RegisteredClaims: jwt.RegisteredClaims{Issuer: authtest.Issuer},
			}),
			wantErr: true,
		},
		{
			name: "expired",
			token: authtest.Sign(t, authtest.Secret, auth.Claims{
				Username: "alice",
				Role:     auth.RoleAdmin,
				RegisteredClaims: jwt.RegisteredClaims{
					Issuer:    authtest.Issuer,
					ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
				},
			}),
			wantErr: true,
		},
		{
			name: "wrong issuer",
			token: authtest.Sign(t, authtest.Secret, auth.Claims{
				Username:         "alice",
				Role:             auth.RoleAdmin,
				RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else"},
			}),
			wantErr: true,
		},
		{
			name: "missing username",
			token: authtest.Sign(t, authtest.Secret, auth.Claims{
				Role:             auth.RoleAdmin,
				RegisteredClaims: jwt.RegisteredClaims{Issuer: authtest.Issuer},
			}),
			wantErr: true,
		},
		{name: "garbage", token: "not-a-jwt", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := provider.Authenticate(context.Background(), tt.token)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Authenticate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, auth.ErrInvalidToken) {
					t.Errorf("error %v does not wrap ErrInvalidToken", err)
				}
				return
			}
			if id.Role != tt.wantRole {
				t.Errorf("role = %q, want %q", id.Role, tt.wantRole)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	log := logger.Discard()
	adminOnly := auth.Authenticate(authtest.Provider(), log)(
		auth.RequireRole(auth.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, _ := auth.FromContext(r.Context())
			w.Header().Set("X-User", id.Username)
			w.WriteHeader(http.StatusNoContent)
		})),
	)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "no header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "operator forbidden", header: "Bearer " + authtest.Token(t, "bob", auth.RoleOperator), wantStatus: http.StatusForbidden},
		{name: "admin allowed", header: "Bearer " + authtest.Token(t, "alice", auth.RoleAdmin), wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			adminOnly.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusNoContent && rec.Header().Get("X-User") != "alice" {
				t.Errorf("identity not propagated, X-User = %q", rec.Header().Get("X-User"))
			}
		})
	}
}

func TestRequireRole_WithoutIdentity(t *testing.T) {
	h := auth.RequireRole(auth.RoleAdmin, auth.RoleOperator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
