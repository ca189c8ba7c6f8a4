package user

import (
	"context"
	"errors"
	"log/slog"

	"github.com/FACorreiaa/go-user-auth-api/internal/types"
)

var _ UserService = (*UserServiceImpl)(nil)

// UserService defines the business operations on account profiles.
type UserService interface {
	GetUserProfile(ctx context.Context, userID string) (*UserProfile, error)
	UpdateUserProfile(ctx context.Context, userID string, params UpdateProfileParams) (*UserProfile, error)
	DeactivateAccount(ctx context.Context, userID string) error
	ReactivateAccount(ctx context.Context, userID string) error
	UnlockAccount(ctx context.Context, userID string) error
}

type UserServiceImpl struct {
	logger *slog.Logger
	repo   UserRepo
}

func NewUserService(repo UserRepo, logger *slog.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

func (s *UserServiceImpl) GetUserProfile(ctx context.Context, userID string) (*UserProfile, error) {
	profile, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, types.NewUserNotFoundError()
		}
		return nil, types.NewInternalError(err)
	}
	return profile, nil
}

func (s *UserServiceImpl) UpdateUserProfile(ctx context.Context, userID string, params UpdateProfileParams) (*UserProfile, error) {
	l := s.logger.With(slog.String("method", "UpdateUserProfile"), slog.String("userID", userID))

	fieldErrors := map[string]string{}
	if params.Username != nil {
		normalized := types.NormalizeIdentifier(*params.Username)
		if len(normalized) < 3 || len(normalized) > 80 {
			fieldErrors["username"] = "must be between 3 and 80 characters"
		}
		params.Username = &normalized
	}
	if params.Email != nil {
		normalized := types.NormalizeIdentifier(*params.Email)
		if normalized == "" {
			fieldErrors["email"] = "must not be empty"
		}
		params.Email = &normalized
	}
	if len(fieldErrors) > 0 {
		return nil, types.NewValidationError("Validation failed", fieldErrors)
	}

	if err := s.repo.UpdateProfile(ctx, userID, params); err != nil {
		switch {
		case errors.Is(err, types.ErrConflict):
			l.WarnContext(ctx, "Profile update conflicts with existing account")
			return nil, types.NewDuplicateResourceError("User", "username or email")
		case errors.Is(err, types.ErrNotFound):
			return nil, types.NewUserNotFoundError()
		default:
			return nil, types.NewInternalError(err)
		}
	}

	return s.GetUserProfile(ctx, userID)
}

func (s *UserServiceImpl) DeactivateAccount(ctx context.Context, userID string) error {
	l := s.logger.With(slog.String("method", "DeactivateAccount"), slog.String("userID", userID))
	if err := s.repo.DeactivateUser(ctx, userID); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return types.NewUserNotFoundError()
		}
		return types.NewInternalError(err)
	}
	l.InfoContext(ctx, "Account deactivated")
	return nil
}

func (s *UserServiceImpl) ReactivateAccount(ctx context.Context, userID string) error {
	l := s.logger.With(slog.String("method", "ReactivateAccount"), slog.String("userID", userID))
	if err := s.repo.ReactivateUser(ctx, userID); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return types.NewUserNotFoundError()
		}
		return types.NewInternalError(err)
	}
	l.InfoContext(ctx, "Account reactivated")
	return nil
}

func (s *UserServiceImpl) UnlockAccount(ctx context.Context, userID string) error {
	l := s.logger.With(slog.String("method", "UnlockAccount"), slog.String("userID", userID))
	if err := s.repo.UnlockUser(ctx, userID); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return types.NewUserNotFoundError()
		}
		return types.NewInternalError(err)
	}
	l.InfoContext(ctx, "Account lockout cleared by administrator")
	return nil
}
