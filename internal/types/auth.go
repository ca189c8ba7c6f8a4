package types

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Account represents the persisted credential record for a user.
type Account struct {
	ID       string `json:"id" example:"d290f1ee-6c54-4b01-90e6-d701748f0851"` // Unique identifier (UUID).
	Username string `json:"username" example:"johndoe"`                        // Unique username, stored lowercase.
	Email    string `json:"email" example:"john.doe@example.com"`              // Unique email address, stored lowercase.
	Role     string `json:"role" example:"user"`                               // User role (e.g., 'user', 'admin').

	// PasswordHash is the bcrypt hash of the password. Never exposed.
	PasswordHash string `json:"-"`

	IsActive   bool `json:"is_active"`   // Inactive accounts are rejected at authentication.
	IsVerified bool `json:"is_verified"` // Set true only via email verification.

	FailedLoginAttempts int        `json:"-"` // Consecutive failed password checks since the last success.
	LockedUntil         *time.Time `json:"-"` // When set and in the future, the account is locked.

	// EmailVerificationToken is present only while verification is pending.
	EmailVerificationToken *string `json:"-"`

	// PasswordResetToken and PasswordResetExpiresAt are set and cleared
	// together, never one without the other.
	PasswordResetToken     *string    `json:"-"`
	PasswordResetExpiresAt *time.Time `json:"-"`

	LastLoginAt       *time.Time `json:"last_login_at,omitempty"`
	PasswordChangedAt *time.Time `json:"password_changed_at,omitempty"`
	EmailVerifiedAt   *time.Time `json:"email_verified_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizeIdentifier trims and lowercases a username or email once, at
// write time, so all later equality comparisons are implicitly
// case-insensitive.
func NormalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Claims is the fixed claim schema embedded in signed access and refresh
// tokens. It is the single serialization point between an Account and its
// token representation.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Scope    string `json:"scope"` // "access" or "refresh"
	jwt.RegisteredClaims
}
