package auth

import (
	"time"

	"github.com/FACorreiaa/go-user-auth-api/internal/types"
)

// resetRequestMessage is deliberately identical whether or not the email
// exists, to avoid account enumeration.
const resetRequestMessage = "If the email address exists, a password reset link has been sent."

// LoginRequest represents the expected JSON body for user login.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required" example:"johndoe"` // Username or email address.
	Password   string `json:"password" binding:"required" example:"password123"`
	RememberMe bool   `json:"remember_me,omitempty"` // Request an extended refresh-token lifetime.
}

// LoginResponse represents the successful JSON response after login.
type LoginResponse struct {
	User         *AccountSummary `json:"user"`
	AccessToken  string          `json:"access_token" example:"eyJhbGciOiJI..."`
	RefreshToken string          `json:"refresh_token" example:"eyJhbGciOiJI..."`
	TokenType    string          `json:"token_type" example:"Bearer"`
	ExpiresIn    int64           `json:"expires_in" example:"3600"` // Access-token lifetime in seconds.
	Message      string          `json:"message" example:"Login successful"`
}

// RegisterRequest represents the expected JSON body for user registration.
type RegisterRequest struct {
	Username string `json:"username" binding:"required" example:"testuser"`               // Desired username. Must be unique.
	Email    string `json:"email" binding:"required,email" example:"newuser@example.com"` // User's email address. Must be unique.
	Password string `json:"password" binding:"required,min=8" example:"Str0ngP@ss!"`      // User's desired password (min length 8).
	Role     string `json:"role,omitempty" example:"user"`                                // Optional role assignment (defaults server-side if empty).
}

// RegisterResponse represents the successful JSON response after registration.
// The verification token is returned in-band because this deployment has no
// outbound email channel; a mail-capable deployment would suppress it.
type RegisterResponse struct {
	User              *AccountSummary `json:"user"`
	VerificationToken string          `json:"verification_token"`
	Message           string          `json:"message" example:"Registration successful. Please verify your email address."`
}

// RefreshTokenRequest represents the expected JSON body for refreshing tokens.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshTokenResponse carries the new access token only; the refresh token
// is not rotated.
type RefreshTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type" example:"Bearer"`
	ExpiresIn   int64  `json:"expires_in" example:"3600"`
	Message     string `json:"message" example:"Token refreshed successfully"`
}

// PasswordResetRequest asks for a reset token to be generated for an email.
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// PasswordResetResponse is the uniform response to a reset request. The
// token fields are populated only when an active account was found, and only
// because there is no outbound email channel to deliver them.
type PasswordResetResponse struct {
	Message    string `json:"message"`
	ResetToken string `json:"reset_token,omitempty"`
	ExpiresIn  int64  `json:"expires_in,omitempty"` // Reset-token lifetime in seconds.
}

// ResetPasswordRequest consumes a reset token.
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// ChangePasswordRequest represents the expected JSON body for changing the
// authenticated user's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

// VerifyEmailRequest consumes an email verification token.
type VerifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

// Response represents a generic API response for success or error messages.
type Response struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message,omitempty" example:"Operation successful"`
	Error   string `json:"error,omitempty"`
}

// AccountSummary is the outward representation of an account. Credential
// and lockout fields are never included.
type AccountSummary struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	IsVerified  bool       `json:"is_verified"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func NewAccountSummary(acc *types.Account) *AccountSummary {
	return &AccountSummary{
		ID:          acc.ID,
		Username:    acc.Username,
		Email:       acc.Email,
		Role:        acc.Role,
		IsActive:    acc.IsActive,
		IsVerified:  acc.IsVerified,
		LastLoginAt: acc.LastLoginAt,
		CreatedAt:   acc.CreatedAt,
	}
}
