package user

import (
	"time"
)

// UserProfile is the outward-facing view of an account. Credential material
// never appears here.
type UserProfile struct {
	ID                  string     `json:"id"`
	Username            string     `json:"username"`
	Email               string     `json:"email"`
	Role                string     `json:"role"`
	IsActive            bool       `json:"is_active"`
	IsVerified          bool       `json:"is_verified"`
	FailedLoginAttempts int        `json:"failed_login_attempts"`
	LockedUntil         *time.Time `json:"locked_until,omitempty"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`
	EmailVerifiedAt     *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// UpdateProfileParams carries the mutable profile fields. Nil means "leave
// unchanged".
type UpdateProfileParams struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
}

type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
