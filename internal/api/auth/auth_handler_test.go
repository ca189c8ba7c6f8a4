package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	appMiddleware "github.com/FACorreiaa/go-user-auth-api/app/middleware"
	"github.com/FACorreiaa/go-user-auth-api/internal/types"
)

// MockAuthService is a mock implementation of the AuthService interface
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, identifier, password string, rememberMe bool) (*LoginResponse, error) {
	args := m.Called(ctx, identifier, password, rememberMe)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*LoginResponse), args.Error(1)
}

func (m *MockAuthService) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RegisterResponse), args.Error(1)
}

func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken string) (*RefreshTokenResponse, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RefreshTokenResponse), args.Error(1)
}

func (m *MockAuthService) RequestPasswordReset(ctx context.Context, email string) (*PasswordResetResponse, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PasswordResetResponse), args.Error(1)
}

func (m *MockAuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	args := m.Called(ctx, token, newPassword)
	return args.Error(0)
}

func (m *MockAuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	args := m.Called(ctx, userID, currentPassword, newPassword)
	return args.Error(0)
}

func (m *MockAuthService) VerifyEmail(ctx context.Context, token string) (*AccountSummary, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*AccountSummary), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, claims *types.Claims) error {
	args := m.Called(ctx, claims)
	return args.Error(0)
}

func (m *MockAuthService) GetAccountByID(ctx context.Context, userID string) (*types.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Account), args.Error(1)
}

func postJSON(handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestLoginHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewHandlerImpl(mockService, slog.Default())

		mockService.On("Login", mock.Anything, "testuser", "password123", false).
			Return(&LoginResponse{
				AccessToken:  "signed-access",
				RefreshToken: "signed-refresh",
				TokenType:    "Bearer",
				ExpiresIn:    3600,
				Message:      "Login successful",
			}, nil).Once()

		rr := postJSON(handler.Login, "/api/v1/auth/login",
			`{"identifier":"testuser","password":"password123"}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, "signed-access", body["access_token"])
		assert.Equal(t, "Bearer", body["token_type"])
		mockService.AssertExpectations(t)
	})

	t.Run("InvalidCredentials", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewHandlerImpl(mockService, slog.Default())

		mockService.On("Login", mock.Anything, "testuser", "wrong", false).
			Return(nil, types.NewInvalidCredentialsError()).Once()

		rr := postJSON(handler.Login, "/api/v1/auth/login",
			`{"identifier":"testuser","password":"wrong"}`)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, types.CodeInvalidCredentials, body["code"])
		assert.Equal(t, false, body["success"])
	})

	t.Run("LockedAccountMaps423", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewHandlerImpl(mockService, slog.Default())

		mockService.On("Login", mock.Anything, "testuser", "password123", false).
			Return(nil, types.NewAccountLockedError()).Once()

		rr := postJSON(handler.Login, "/api/v1/auth/login",
			`{"identifier":"testuser","password":"password123"}`)

		assert.Equal(t, http.StatusLocked, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, types.CodeAccountLocked, body["code"])
	})

	t.Run("MalformedBody", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewHandlerImpl(mockService, slog.Default())

		rr := postJSON(handler.Login, "/api/v1/auth/login", `{not-json`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "Login")
	})
}

func TestRegisterHandler(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewHandlerImpl(mockService, slog.Default())

		mockService.On("Register", mock.Anything, RegisterRequest{
			Username: "testuser",
			Email:    "test@example.com",
			Password: "password123",
		}).Return(&RegisterResponse{
			VerificationToken: "verification-token",
			Message:           "Registration successful. Please verify your email address.",
		}, nil).Once()

		rr := postJSON(handler.Register, "/api/v1/auth/register",
			`{"username":"testuser","email":"test@example.com","password":"password123"}`)

		assert.Equal(t, http.StatusCreated, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("ValidationErrorCarriesFieldErrors", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewHandlerImpl(mockService, slog.Default())

		mockService.On("Register", mock.Anything, mock.AnythingOfType("RegisterRequest")).
			Return(nil, types.NewValidationError("Validation failed", map[string]string{
				"username": "must be between 3 and 80 characters",
			})).Once()

		rr := postJSON(handler.Register, "/api/v1/auth/register",
			`{"username":"ab","email":"test@example.com","password":"password123"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, types.CodeValidation, body["code"])
		fieldErrors := body["field_errors"].(map[string]interface{})
		assert.Contains(t, fieldErrors, "username")
	})

	t.Run("DuplicateMaps409", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewHandlerImpl(mockService, slog.Default())

		mockService.On("Register", mock.Anything, mock.AnythingOfType("RegisterRequest")).
			Return(nil, types.NewDuplicateResourceError("User", "email")).Once()

		rr := postJSON(handler.Register, "/api/v1/auth/register",
			`{"username":"testuser","email":"test@example.com","password":"password123"}`)

		assert.Equal(t, http.StatusConflict, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, types.CodeDuplicateResource, body["code"])
	})
}

func TestChangePasswordHandler(t *testing.T) {
	t.Run("RequiresAuthentication", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewHandlerImpl(mockService, slog.Default())

		rr := postJSON(handler.ChangePassword, "/api/v1/auth/change-password",
			`{"current_password":"old-password","new_password":"new-password"}`)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		mockService.AssertNotCalled(t, "ChangePassword")
	})

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewHandlerImpl(mockService, slog.Default())

		mockService.On("ChangePassword", mock.Anything, "user-1", "old-password", "new-password").
			Return(nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/change-password",
			strings.NewReader(`{"current_password":"old-password","new_password":"new-password"}`))
		req = req.WithContext(context.WithValue(req.Context(), appMiddleware.UserIDKey, "user-1"))
		rr := httptest.NewRecorder()

		handler.ChangePassword(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		mockService.AssertExpectations(t)
	})
}

func TestRequestPasswordResetHandler(t *testing.T) {
	mockService := new(MockAuthService)
	handler := NewHandlerImpl(mockService, slog.Default())

	mockService.On("RequestPasswordReset", mock.Anything, "test@example.com").
		Return(&PasswordResetResponse{Message: resetRequestMessage}, nil).Once()

	rr := postJSON(handler.RequestPasswordReset, "/api/v1/auth/password-reset/request",
		`{"email":"test@example.com"}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, resetRequestMessage, body["message"])
	mockService.AssertExpectations(t)
}

func TestVerifyEmailHandler(t *testing.T) {
	mockService := new(MockAuthService)
	handler := NewHandlerImpl(mockService, slog.Default())

	mockService.On("VerifyEmail", mock.Anything, "the-token").
		Return(&AccountSummary{Username: "testuser", IsVerified: true}, nil).Once()

	rr := postJSON(handler.VerifyEmail, "/api/v1/auth/verify-email", `{"token":"the-token"}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, true, body["is_verified"])
	mockService.AssertExpectations(t)
}
