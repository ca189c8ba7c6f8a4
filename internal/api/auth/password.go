package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/go-user-auth-api/config"
	"github.com/FACorreiaa/go-user-auth-api/internal/types"
)

// PasswordHasher wraps bcrypt hashing and verification. It holds no mutable
// state and is safe for concurrent use.
type PasswordHasher struct {
	cost      int
	minLength int
}

func NewPasswordHasher(cfg config.AuthConfig) *PasswordHasher {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	minLength := cfg.MinPasswordChars
	if minLength <= 0 {
		minLength = 8
	}
	return &PasswordHasher{cost: cost, minLength: minLength}
}

// Hash returns the salted bcrypt hash of plaintext. Two calls with the same
// input produce different hashes. Plaintext shorter than the policy minimum
// is rejected with a validation error.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	if len(plaintext) < h.minLength {
		return "", types.NewValidationError(
			fmt.Sprintf("Password must be at least %d characters long", h.minLength),
			map[string]string{"password": fmt.Sprintf("must be at least %d characters", h.minLength)},
		)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches the stored hash. An empty hash
// (account without a password) never matches.
func (h *PasswordHasher) Verify(plaintext, hash string) bool {
	if plaintext == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// dummyVerify burns a bcrypt comparison against a fixed hash. Paths that
// miss an account call this so their timing matches the found-account path.
func (h *PasswordHasher) dummyVerify(plaintext string) {
	// bcrypt hash of an unguessable throwaway value
	const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(plaintext))
}
