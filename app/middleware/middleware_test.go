package appMiddleware_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appMiddleware "github.com/FACorreiaa/go-user-auth-api/app/middleware"
	"github.com/FACorreiaa/go-user-auth-api/config"
	"github.com/FACorreiaa/go-user-auth-api/internal/api/auth"
	"github.com/FACorreiaa/go-user-auth-api/internal/types"
)

func testIssuer() *auth.TokenIssuer {
	return auth.NewTokenIssuer(config.JWTConfig{
		SecretKey:        "middleware-test-secret",
		RefreshSecretKey: "middleware-test-refresh",
		AccessTokenTTL:   time.Hour,
		RefreshTokenTTL:  24 * time.Hour,
		Issuer:           "user-auth-api-test",
		Audience:         "user-auth-api-clients",
	})
}

func testAccount() *types.Account {
	return &types.Account{
		ID:       "8b9f1a36-4f53-4b0e-9d0f-0a1c2d3e4f5a",
		Username: "testuser",
		Email:    "test@example.com",
		Role:     "user",
		IsActive: true,
	}
}

func protected(t *testing.T, issuer *auth.TokenIssuer, revoker *auth.TokenRevoker) (http.Handler, *bool) {
	t.Helper()
	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		userID, ok := appMiddleware.UserIDFromContext(r.Context())
		assert.True(t, ok)
		assert.Equal(t, "8b9f1a36-4f53-4b0e-9d0f-0a1c2d3e4f5a", userID)
		claims, ok := appMiddleware.ClaimsFromContext(r.Context())
		assert.True(t, ok)
		assert.Equal(t, "testuser", claims.Username)
		w.WriteHeader(http.StatusOK)
	})
	return appMiddleware.Authenticate(slog.Default(), issuer, revoker)(next), &reached
}

func TestAuthenticate(t *testing.T) {
	issuer := testIssuer()
	revoker := auth.NewTokenRevoker()

	t.Run("MissingHeader", func(t *testing.T) {
		handler, reached := protected(t, issuer, revoker)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.False(t, *reached)
	})

	t.Run("MalformedHeader", func(t *testing.T) {
		handler, reached := protected(t, issuer, revoker)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Token abcdef")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.False(t, *reached)
	})

	t.Run("ValidToken", func(t *testing.T) {
		handler, reached := protected(t, issuer, revoker)
		signed, _, err := issuer.IssueAccessToken(testAccount())
		assert.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, *reached)
	})

	t.Run("RefreshTokenRejected", func(t *testing.T) {
		handler, reached := protected(t, issuer, revoker)
		refresh, _, err := issuer.IssueRefreshToken(testAccount(), false)
		assert.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+refresh)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.False(t, *reached)
	})

	t.Run("RevokedToken", func(t *testing.T) {
		handler, reached := protected(t, issuer, revoker)
		signed, _, err := issuer.IssueAccessToken(testAccount())
		assert.NoError(t, err)
		claims, err := issuer.ParseAccessToken(signed)
		assert.NoError(t, err)
		revoker.Revoke(claims.ID, time.Now().Add(time.Hour))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.False(t, *reached)
	})
}

func TestRequireRole(t *testing.T) {
	issuer := testIssuer()
	revoker := auth.NewTokenRevoker()

	adminOnly := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := appMiddleware.Authenticate(slog.Default(), issuer, revoker)(
		appMiddleware.RequireRole("admin")(adminOnly))

	t.Run("NonAdminForbidden", func(t *testing.T) {
		signed, _, err := issuer.IssueAccessToken(testAccount())
		assert.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("AdminAllowed", func(t *testing.T) {
		admin := testAccount()
		admin.Role = "admin"
		signed, _, err := issuer.IssueAccessToken(admin)
		assert.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})
}
