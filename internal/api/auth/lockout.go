package auth

import (
	"time"

	"github.com/FACorreiaa/go-user-auth-api/config"
	"github.com/FACorreiaa/go-user-auth-api/internal/types"
)

// LockState is the result of inspecting an account's lock fields.
type LockState int

const (
	// LockStateUnlocked means the account has no active lock.
	LockStateUnlocked LockState = iota
	// LockStateLocked means the lock window is still open.
	LockStateLocked
	// LockStateExpired means a stale lock was found and cleared in memory;
	// the caller must persist the cleared state.
	LockStateExpired
)

// LockoutPolicy implements the progressive account lockout transitions.
// Expiry is lazy: there is no background sweep, every inspection compares
// against the supplied wall-clock time. Inspect must run before any
// counter-based decision so stale locks are cleared first.
type LockoutPolicy struct {
	MaxFailedAttempts int
	LockDuration      time.Duration
}

func NewLockoutPolicy(cfg config.AuthConfig) LockoutPolicy {
	return LockoutPolicy{
		MaxFailedAttempts: cfg.MaxFailedLogins,
		LockDuration:      cfg.LockoutDuration,
	}
}

// Inspect reports the account's current lock state at the given instant.
// A lock whose window has passed is cleared on the account in place,
// together with the failed-attempt counter.
func (p LockoutPolicy) Inspect(acc *types.Account, now time.Time) LockState {
	if acc.LockedUntil == nil {
		return LockStateUnlocked
	}
	if now.Before(*acc.LockedUntil) {
		return LockStateLocked
	}
	acc.LockedUntil = nil
	acc.FailedLoginAttempts = 0
	return LockStateExpired
}

// RegisterFailure applies one failed password check. It returns true when
// the counter crossed the threshold and the account is now locked until
// now + LockDuration.
func (p LockoutPolicy) RegisterFailure(acc *types.Account, now time.Time) bool {
	acc.FailedLoginAttempts++
	if acc.FailedLoginAttempts >= p.MaxFailedAttempts {
		until := now.Add(p.LockDuration)
		acc.LockedUntil = &until
		return true
	}
	return false
}

// RegisterSuccess applies a successful password check: the counter and lock
// are cleared from any prior state and the login instant is recorded.
func (p LockoutPolicy) RegisterSuccess(acc *types.Account, now time.Time) {
	acc.FailedLoginAttempts = 0
	acc.LockedUntil = nil
	loginAt := now
	acc.LastLoginAt = &loginAt
}

// ForceUnlock clears the lock unconditionally (administrative unlock).
func (p LockoutPolicy) ForceUnlock(acc *types.Account) {
	acc.FailedLoginAttempts = 0
	acc.LockedUntil = nil
}
