package user

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	appMiddleware "github.com/FACorreiaa/go-user-auth-api/app/middleware"
	"github.com/FACorreiaa/go-user-auth-api/internal/api"
	"github.com/FACorreiaa/go-user-auth-api/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	GetUserProfile(w http.ResponseWriter, r *http.Request)
	UpdateUserProfile(w http.ResponseWriter, r *http.Request)
	DeactivateAccount(w http.ResponseWriter, r *http.Request)
	ReactivateAccount(w http.ResponseWriter, r *http.Request)
	UnlockAccount(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	userService UserService
	logger      *slog.Logger
}

// NewHandlerImpl creates a new user HandlerImpl instance.
func NewHandlerImpl(userService UserService, logger *slog.Logger) *HandlerImpl {
	if logger == nil {
		panic("PANIC: Attempting to create HandlerImpl with nil logger!")
	}
	return &HandlerImpl{
		userService: userService,
		logger:      logger,
	}
}

// GetUserProfile godoc
// @Summary      Get User Profile
// @Description  Retrieves the authenticated user's profile information.
// @Tags         User
// @Produce      json
// @Success      200 {object} UserProfile "User Profile"
// @Failure      401 {object} StatusResponse "Unauthorized"
// @Failure      404 {object} StatusResponse "User Not Found"
// @Security     BearerAuth
// @Router       /user/profile [get]
func (h *HandlerImpl) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "GetUserProfile"))

	userID, ok := appMiddleware.UserIDFromContext(ctx)
	if !ok || userID == "" {
		l.ErrorContext(ctx, "User ID not found in context")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	profile, err := h.userService.GetUserProfile(ctx, userID)
	if err != nil {
		api.RespondError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, profile)
}

// UpdateUserProfile godoc
// @Summary      Update User Profile
// @Description  Updates the authenticated user's username or email.
// @Tags         User
// @Accept       json
// @Produce      json
// @Param        body body UpdateProfileParams true "Fields to update"
// @Success      200 {object} UserProfile "Updated Profile"
// @Failure      400 {object} StatusResponse "Validation Error"
// @Failure      409 {object} StatusResponse "Duplicate Resource"
// @Security     BearerAuth
// @Router       /user/profile [put]
func (h *HandlerImpl) UpdateUserProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "UpdateUserProfile"))

	userID, ok := appMiddleware.UserIDFromContext(ctx)
	if !ok || userID == "" {
		l.ErrorContext(ctx, "User ID not found in context")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var params UpdateProfileParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode profile update", slog.Any("error", err))
		api.RespondError(w, r, types.NewValidationError("Invalid request body", nil))
		return
	}

	profile, err := h.userService.UpdateUserProfile(ctx, userID, params)
	if err != nil {
		api.RespondError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, profile)
}

// DeactivateAccount godoc
// @Summary      Deactivate Account
// @Description  Soft-deletes the authenticated user's account.
// @Tags         User
// @Produce      json
// @Success      200 {object} StatusResponse "Account Deactivated"
// @Failure      401 {object} StatusResponse "Unauthorized"
// @Security     BearerAuth
// @Router       /user/deactivate [post]
func (h *HandlerImpl) DeactivateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "DeactivateAccount"))

	userID, ok := appMiddleware.UserIDFromContext(ctx)
	if !ok || userID == "" {
		l.ErrorContext(ctx, "User ID not found in context")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := h.userService.DeactivateAccount(ctx, userID); err != nil {
		api.RespondError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, StatusResponse{
		Success: true,
		Message: "Account deactivated",
	})
}

// ReactivateAccount godoc
// @Summary      Reactivate Account
// @Description  Restores a deactivated account. Administrators only.
// @Tags         Admin
// @Produce      json
// @Param        userID path string true "User ID"
// @Success      200 {object} StatusResponse "Account Reactivated"
// @Failure      403 {object} StatusResponse "Forbidden"
// @Security     BearerAuth
// @Router       /admin/users/{userID}/reactivate [post]
func (h *HandlerImpl) ReactivateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "ReactivateAccount"))

	targetID := chi.URLParam(r, "userID")
	if _, err := uuid.Parse(targetID); err != nil {
		l.WarnContext(ctx, "Invalid user ID format", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	if err := h.userService.ReactivateAccount(ctx, targetID); err != nil {
		api.RespondError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, StatusResponse{
		Success: true,
		Message: "Account reactivated",
	})
}

// UnlockAccount godoc
// @Summary      Unlock Account
// @Description  Clears the lockout state and failure counter for a locked account. Administrators only.
// @Tags         Admin
// @Produce      json
// @Param        userID path string true "User ID"
// @Success      200 {object} StatusResponse "Account Unlocked"
// @Failure      403 {object} StatusResponse "Forbidden"
// @Security     BearerAuth
// @Router       /admin/users/{userID}/unlock [post]
func (h *HandlerImpl) UnlockAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "UnlockAccount"))

	targetID := chi.URLParam(r, "userID")
	if _, err := uuid.Parse(targetID); err != nil {
		l.WarnContext(ctx, "Invalid user ID format", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	if err := h.userService.UnlockAccount(ctx, targetID); err != nil {
		api.RespondError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, StatusResponse{
		Success: true,
		Message: "Account unlocked",
	})
}
