package auth

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/FACorreiaa/go-user-auth-api/app/observability/metrics"
	"github.com/FACorreiaa/go-user-auth-api/config"
	"github.com/FACorreiaa/go-user-auth-api/internal/types"
)

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService defines the interface for authentication operations. Every
// method returns either a success payload or an error from the closed
// taxonomy in internal/types.
type AuthService interface {
	// Login authenticates by username or email and issues access and
	// refresh tokens.
	Login(ctx context.Context, identifier, password string, rememberMe bool) (*LoginResponse, error)

	// Register creates a new, active but unverified account and issues an
	// email verification token.
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)

	// RefreshToken exchanges a valid refresh token for a new access token.
	RefreshToken(ctx context.Context, refreshToken string) (*RefreshTokenResponse, error)

	// RequestPasswordReset generates a reset token for the email, with a
	// response indistinguishable from the unknown-email case.
	RequestPasswordReset(ctx context.Context, email string) (*PasswordResetResponse, error)

	// ResetPassword consumes a reset token and sets a new password.
	ResetPassword(ctx context.Context, token, newPassword string) error

	// ChangePassword sets a new password after verifying the current one.
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error

	// VerifyEmail consumes a verification token and marks the account
	// verified. Verifying an already-verified account succeeds.
	VerifyEmail(ctx context.Context, token string) (*AccountSummary, error)

	// Logout revokes the presented access token for the rest of its
	// lifetime on this node. Previously issued tokens on other nodes stay
	// valid until natural expiry.
	Logout(ctx context.Context, claims *types.Claims) error

	GetAccountByID(ctx context.Context, userID string) (*types.Account, error)
}

// AuthServiceImpl implements AuthService on top of the credential store.
type AuthServiceImpl struct {
	logger  *slog.Logger
	repo    AuthRepo
	cfg     *config.Config
	hasher  *PasswordHasher
	tokens  *TokenIssuer
	lockout LockoutPolicy
	revoker *TokenRevoker
	metrics *metrics.AppMetrics

	// now is injectable so lockout and token expiry are testable against a
	// fake clock.
	now func() time.Time
}

func NewAuthService(repo AuthRepo, cfg *config.Config, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger:  logger,
		repo:    repo,
		cfg:     cfg,
		hasher:  NewPasswordHasher(cfg.Auth),
		tokens:  NewTokenIssuer(cfg.JWT),
		lockout: NewLockoutPolicy(cfg.Auth),
		revoker: NewTokenRevoker(),
		now:     time.Now,
	}
}

// WithMetrics attaches the application's metric instruments. All metric
// calls are nil-safe, so tests can skip this.
func (s *AuthServiceImpl) WithMetrics(m *metrics.AppMetrics) *AuthServiceImpl {
	s.metrics = m
	return s
}

// Revoker exposes the token denylist for the Authenticate middleware.
func (s *AuthServiceImpl) Revoker() *TokenRevoker { return s.revoker }

// Tokens exposes the token issuer for the Authenticate middleware.
func (s *AuthServiceImpl) Tokens() *TokenIssuer { return s.tokens }

func (s *AuthServiceImpl) Login(ctx context.Context, identifier, password string, rememberMe bool) (*LoginResponse, error) {
	l := s.logger.With(slog.String("method", "Login"))
	s.metrics.CountLoginAttempt(ctx)

	identifier = types.NormalizeIdentifier(identifier)
	if identifier == "" || password == "" {
		return nil, types.NewValidationError("Identifier and password are required", nil)
	}

	acc, err := s.findByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			l.WarnContext(ctx, "Login attempt for non-existent account")
			// Burn a hash comparison so the miss is not cheaper than a hit.
			s.hasher.dummyVerify(password)
			s.metrics.CountLoginFailure(ctx)
			return nil, types.NewInvalidCredentialsError()
		}
		return nil, types.NewInternalError(err)
	}

	if !acc.IsActive {
		l.WarnContext(ctx, "Login attempt for deactivated account", slog.String("user_id", acc.ID))
		return nil, types.NewBusinessRuleError("Account is deactivated. Please contact support.")
	}

	// Lock inspection always runs before any counter decision so a stale
	// lock is cleared first (lazy expiry).
	switch s.lockout.Inspect(acc, s.now()) {
	case LockStateLocked:
		l.WarnContext(ctx, "Login attempt for locked account", slog.String("user_id", acc.ID))
		return nil, types.NewAccountLockedError()
	case LockStateExpired:
		if err := s.repo.ClearExpiredLock(ctx, acc.ID, s.now()); err != nil {
			return nil, types.NewInternalError(err)
		}
	}

	if !s.hasher.Verify(password, acc.PasswordHash) {
		// The counter increment must be durable before the error returns.
		attempts, lockedUntil, ferr := s.repo.RecordLoginFailure(
			ctx, acc.ID, s.lockout.MaxFailedAttempts, s.now().Add(s.lockout.LockDuration))
		if ferr != nil {
			return nil, types.NewInternalError(ferr)
		}
		s.metrics.CountLoginFailure(ctx)
		if lockedUntil != nil && attempts >= s.lockout.MaxFailedAttempts {
			l.WarnContext(ctx, "Account locked after repeated failed logins",
				slog.String("user_id", acc.ID), slog.Int("attempts", attempts))
			s.metrics.CountAccountLockout(ctx)
			return nil, types.NewAccountLockedError()
		}
		l.WarnContext(ctx, "Invalid password",
			slog.String("user_id", acc.ID), slog.Int("attempts", attempts))
		return nil, types.NewInvalidCredentialsError()
	}

	loginAt := s.now()
	if err := s.repo.RecordLoginSuccess(ctx, acc.ID, loginAt); err != nil {
		return nil, types.NewInternalError(err)
	}
	s.lockout.RegisterSuccess(acc, loginAt)

	accessToken, expiresIn, err := s.tokens.IssueAccessToken(acc)
	if err != nil {
		return nil, types.NewInternalError(err)
	}
	refreshToken, _, err := s.tokens.IssueRefreshToken(acc, rememberMe)
	if err != nil {
		return nil, types.NewInternalError(err)
	}
	s.metrics.CountTokenIssued(ctx, 2)

	l.InfoContext(ctx, "Successful login", slog.String("user_id", acc.ID))
	return &LoginResponse{
		User:         NewAccountSummary(acc),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
		Message:      "Login successful",
	}, nil
}

func (s *AuthServiceImpl) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	l := s.logger.With(slog.String("method", "Register"))

	username := types.NormalizeIdentifier(req.Username)
	email := types.NormalizeIdentifier(req.Email)
	if err := validateRegistration(username, email, req.Password); err != nil {
		return nil, err
	}

	if exists, err := s.repo.UsernameExists(ctx, username); err != nil {
		return nil, types.NewInternalError(err)
	} else if exists {
		l.WarnContext(ctx, "Registration with existing username")
		return nil, types.NewDuplicateResourceError("User", "username")
	}
	if exists, err := s.repo.EmailExists(ctx, email); err != nil {
		return nil, types.NewInternalError(err)
	} else if exists {
		l.WarnContext(ctx, "Registration with existing email")
		return nil, types.NewDuplicateResourceError("User", "email")
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = "user"
	}

	acc, err := s.repo.CreateAccount(ctx, &types.Account{
		Username:     username,
		Email:        email,
		Role:         role,
		PasswordHash: passwordHash,
		IsActive:     true,
		IsVerified:   false,
	})
	if err != nil {
		if errors.Is(err, types.ErrConflict) {
			// Lost a race with a concurrent registration.
			return nil, types.NewDuplicateResourceError("User", "username or email")
		}
		return nil, types.NewInternalError(err)
	}

	verificationToken, err := NewOpaqueToken()
	if err != nil {
		return nil, types.NewInternalError(err)
	}
	if err := s.repo.SetVerificationToken(ctx, acc.ID, verificationToken); err != nil {
		return nil, types.NewInternalError(err)
	}
	token := verificationToken
	acc.EmailVerificationToken = &token

	l.InfoContext(ctx, "Account registered", slog.String("user_id", acc.ID))
	return &RegisterResponse{
		User:              NewAccountSummary(acc),
		VerificationToken: verificationToken,
		Message:           "Registration successful. Please verify your email address.",
	}, nil
}

func (s *AuthServiceImpl) RefreshToken(ctx context.Context, refreshToken string) (*RefreshTokenResponse, error) {
	l := s.logger.With(slog.String("method", "RefreshToken"))

	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		l.WarnContext(ctx, "Refresh token validation failed", slog.Any("error", err))
		return nil, types.NewInvalidCredentialsError()
	}

	// Possession of the token is proven; re-verify the account state before
	// minting anything. Existence leakage is not a concern here.
	acc, err := s.repo.GetAccountByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, types.NewUserNotFoundError()
		}
		return nil, types.NewInternalError(err)
	}

	if !acc.IsActive {
		l.WarnContext(ctx, "Token refresh denied for inactive account", slog.String("user_id", acc.ID))
		return nil, types.NewBusinessRuleError("Account is deactivated")
	}
	switch s.lockout.Inspect(acc, s.now()) {
	case LockStateLocked:
		l.WarnContext(ctx, "Token refresh denied for locked account", slog.String("user_id", acc.ID))
		return nil, types.NewAccountLockedError()
	case LockStateExpired:
		if err := s.repo.ClearExpiredLock(ctx, acc.ID, s.now()); err != nil {
			return nil, types.NewInternalError(err)
		}
	}

	accessToken, expiresIn, err := s.tokens.IssueAccessToken(acc)
	if err != nil {
		return nil, types.NewInternalError(err)
	}
	s.metrics.CountTokenIssued(ctx, 1)

	return &RefreshTokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn,
		Message:     "Token refreshed successfully",
	}, nil
}

func (s *AuthServiceImpl) RequestPasswordReset(ctx context.Context, email string) (*PasswordResetResponse, error) {
	l := s.logger.With(slog.String("method", "RequestPasswordReset"))

	email = types.NormalizeIdentifier(email)
	if email == "" {
		return nil, types.NewValidationError("Email address is required", map[string]string{"email": "required"})
	}

	acc, err := s.repo.GetAccountByEmail(ctx, email)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return nil, types.NewInternalError(err)
	}

	if err != nil || !acc.IsActive {
		// Perform equivalent work on the miss path so the response timing
		// does not reveal whether the email exists.
		s.hasher.dummyVerify(email)
		if _, terr := NewOpaqueToken(); terr != nil {
			return nil, types.NewInternalError(terr)
		}
		l.WarnContext(ctx, "Password reset requested for unknown or inactive email")
		return &PasswordResetResponse{Message: resetRequestMessage}, nil
	}

	resetToken, err := NewOpaqueToken()
	if err != nil {
		return nil, types.NewInternalError(err)
	}
	expiresAt := s.now().Add(s.cfg.Auth.ResetTokenTTL)
	if err := s.repo.SetResetToken(ctx, acc.ID, resetToken, expiresAt); err != nil {
		return nil, types.NewInternalError(err)
	}

	l.InfoContext(ctx, "Password reset token generated", slog.String("user_id", acc.ID))
	return &PasswordResetResponse{
		Message:    resetRequestMessage,
		ResetToken: resetToken,
		ExpiresIn:  int64(s.cfg.Auth.ResetTokenTTL.Seconds()),
	}, nil
}

func (s *AuthServiceImpl) ResetPassword(ctx context.Context, token, newPassword string) error {
	l := s.logger.With(slog.String("method", "ResetPassword"))

	if token == "" || newPassword == "" {
		return types.NewValidationError("Reset token and new password are required", nil)
	}

	acc, err := s.repo.GetAccountByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			l.WarnContext(ctx, "Password reset with unknown token")
			return types.NewValidationError("Invalid or expired reset token", nil)
		}
		return types.NewInternalError(err)
	}

	if !OpaqueTokenMatches(acc.PasswordResetToken, token) {
		return types.NewValidationError("Invalid or expired reset token", nil)
	}
	if acc.PasswordResetExpiresAt == nil || s.now().After(*acc.PasswordResetExpiresAt) {
		// Expired tokens are cleared on detection, keeping the token and
		// expiry fields set or absent together.
		if cerr := s.repo.ClearResetToken(ctx, acc.ID); cerr != nil {
			l.ErrorContext(ctx, "Failed to clear expired reset token", slog.Any("error", cerr))
		}
		l.WarnContext(ctx, "Password reset with expired token", slog.String("user_id", acc.ID))
		return types.NewValidationError("Invalid or expired reset token", nil)
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.ResetPassword(ctx, acc.ID, passwordHash, s.now()); err != nil {
		return types.NewInternalError(err)
	}

	l.InfoContext(ctx, "Password reset", slog.String("user_id", acc.ID))
	return nil
}

func (s *AuthServiceImpl) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	l := s.logger.With(slog.String("method", "ChangePassword"))

	if currentPassword == "" || newPassword == "" {
		return types.NewValidationError("Current password and new password are required", nil)
	}

	acc, err := s.repo.GetAccountByID(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return types.NewUserNotFoundError()
		}
		return types.NewInternalError(err)
	}

	if !s.hasher.Verify(currentPassword, acc.PasswordHash) {
		l.WarnContext(ctx, "Password change with wrong current password", slog.String("user_id", acc.ID))
		return types.NewValidationError("Current password is incorrect", nil)
	}
	if s.hasher.Verify(newPassword, acc.PasswordHash) {
		return types.NewValidationError("New password must be different from current password", nil)
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.SetPassword(ctx, acc.ID, passwordHash, s.now()); err != nil {
		return types.NewInternalError(err)
	}

	l.InfoContext(ctx, "Password changed", slog.String("user_id", acc.ID))
	return nil
}

func (s *AuthServiceImpl) VerifyEmail(ctx context.Context, token string) (*AccountSummary, error) {
	l := s.logger.With(slog.String("method", "VerifyEmail"))

	if token == "" {
		return nil, types.NewValidationError("Verification token is required", nil)
	}

	acc, err := s.repo.GetAccountByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			l.WarnContext(ctx, "Email verification with unknown token")
			return nil, types.NewValidationError("Invalid verification token", nil)
		}
		return nil, types.NewInternalError(err)
	}

	if acc.IsVerified {
		// Already verified; success without touching the stored token.
		l.InfoContext(ctx, "Email already verified", slog.String("user_id", acc.ID))
		return NewAccountSummary(acc), nil
	}

	verifiedAt := s.now()
	if err := s.repo.MarkEmailVerified(ctx, acc.ID, token, verifiedAt); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			// The token changed underneath us; treat as invalid.
			return nil, types.NewValidationError("Invalid verification token", nil)
		}
		return nil, types.NewInternalError(err)
	}
	acc.IsVerified = true
	acc.EmailVerifiedAt = &verifiedAt
	acc.EmailVerificationToken = nil

	l.InfoContext(ctx, "Email verified", slog.String("user_id", acc.ID))
	return NewAccountSummary(acc), nil
}

func (s *AuthServiceImpl) Logout(ctx context.Context, claims *types.Claims) error {
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	s.revoker.Revoke(claims.ID, claims.ExpiresAt.Time)
	s.logger.InfoContext(ctx, "Access token revoked on logout", slog.String("user_id", claims.UserID))
	return nil
}

func (s *AuthServiceImpl) GetAccountByID(ctx context.Context, userID string) (*types.Account, error) {
	acc, err := s.repo.GetAccountByID(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, types.NewUserNotFoundError()
		}
		return nil, types.NewInternalError(err)
	}
	return acc, nil
}

// findByIdentifier locates an account by username or email. Identifiers
// containing '@' are tried as email first; either way the other lookup is
// the fallback.
func (s *AuthServiceImpl) findByIdentifier(ctx context.Context, identifier string) (*types.Account, error) {
	first, second := s.repo.GetAccountByUsername, s.repo.GetAccountByEmail
	if strings.Contains(identifier, "@") {
		first, second = second, first
	}
	acc, err := first(ctx, identifier)
	if errors.Is(err, types.ErrNotFound) {
		return second(ctx, identifier)
	}
	return acc, err
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func validateRegistration(username, email, password string) error {
	fieldErrors := map[string]string{}
	if username == "" {
		fieldErrors["username"] = "required"
	} else if len(username) < 3 || len(username) > 80 {
		fieldErrors["username"] = "must be between 3 and 80 characters"
	}
	if email == "" {
		fieldErrors["email"] = "required"
	} else if !emailPattern.MatchString(email) {
		fieldErrors["email"] = "must be a valid email address"
	}
	if password == "" {
		fieldErrors["password"] = "required"
	} else if len(password) < 8 {
		fieldErrors["password"] = "must be at least 8 characters"
	}
	if len(fieldErrors) > 0 {
		return types.NewValidationError("Validation failed", fieldErrors)
	}
	return nil
}
