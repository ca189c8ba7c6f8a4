package auth

import (
	"log/slog"
	"net/http"

	appMiddleware "github.com/FACorreiaa/go-user-auth-api/app/middleware"
	"github.com/FACorreiaa/go-user-auth-api/internal/api"
	"github.com/FACorreiaa/go-user-auth-api/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	Login(w http.ResponseWriter, r *http.Request)
	Register(w http.ResponseWriter, r *http.Request)
	RefreshToken(w http.ResponseWriter, r *http.Request)
	RequestPasswordReset(w http.ResponseWriter, r *http.Request)
	ResetPassword(w http.ResponseWriter, r *http.Request)
	ChangePassword(w http.ResponseWriter, r *http.Request)
	VerifyEmail(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	authService AuthService
	logger      *slog.Logger
}

// NewHandlerImpl creates a new auth HandlerImpl instance.
func NewHandlerImpl(authService AuthService, logger *slog.Logger) *HandlerImpl {
	if logger == nil {
		panic("PANIC: Attempting to create HandlerImpl with nil logger!")
	}
	return &HandlerImpl{
		authService: authService,
		logger:      logger,
	}
}

// Login godoc
// @Summary      Login
// @Description  Authenticates by username or email and returns access and refresh tokens.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body LoginRequest true "Login credentials"
// @Success      200 {object} LoginResponse "Login successful"
// @Failure      400 {object} Response "Validation Error"
// @Failure      401 {object} Response "Invalid Credentials"
// @Failure      423 {object} Response "Account Locked"
// @Router       /auth/login [post]
func (h *HandlerImpl) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "Login"))

	var req LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode login request", slog.Any("error", err))
		api.RespondError(w, r, types.NewValidationError("Invalid request body", nil))
		return
	}

	resp, err := h.authService.Login(ctx, req.Identifier, req.Password, req.RememberMe)
	if err != nil {
		api.RespondError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// Register godoc
// @Summary      Register
// @Description  Creates a new account and returns an email verification token.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body RegisterRequest true "Registration details"
// @Success      201 {object} RegisterResponse "Account created"
// @Failure      400 {object} Response "Validation Error"
// @Failure      409 {object} Response "Duplicate Resource"
// @Router       /auth/register [post]
func (h *HandlerImpl) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "Register"))

	var req RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode register request", slog.Any("error", err))
		api.RespondError(w, r, types.NewValidationError("Invalid request body", nil))
		return
	}

	resp, err := h.authService.Register(ctx, req)
	if err != nil {
		api.RespondError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, resp)
}

// RefreshToken godoc
// @Summary      Refresh Access Token
// @Description  Exchanges a valid refresh token for a new access token.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body RefreshTokenRequest true "Refresh token"
// @Success      200 {object} RefreshTokenResponse "Token refreshed"
// @Failure      401 {object} Response "Invalid Credentials"
// @Failure      423 {object} Response "Account Locked"
// @Router       /auth/refresh [post]
func (h *HandlerImpl) RefreshToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "RefreshToken"))

	var req RefreshTokenRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode refresh request", slog.Any("error", err))
		api.RespondError(w, r, types.NewValidationError("Invalid request body", nil))
		return
	}
	if req.RefreshToken == "" {
		api.RespondError(w, r, types.NewValidationError("Refresh token is required", nil))
		return
	}

	resp, err := h.authService.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		api.RespondError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// RequestPasswordReset godoc
// @Summary      Request Password Reset
// @Description  Generates a password reset token. The response does not reveal whether the email exists.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body PasswordResetRequest true "Account email"
// @Success      200 {object} PasswordResetResponse "Reset requested"
// @Failure      400 {object} Response "Validation Error"
// @Router       /auth/password-reset/request [post]
func (h *HandlerImpl) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "RequestPasswordReset"))

	var req PasswordResetRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode password reset request", slog.Any("error", err))
		api.RespondError(w, r, types.NewValidationError("Invalid request body", nil))
		return
	}

	resp, err := h.authService.RequestPasswordReset(ctx, req.Email)
	if err != nil {
		api.RespondError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// ResetPassword godoc
// @Summary      Reset Password
// @Description  Consumes a reset token and sets a new password.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body ResetPasswordRequest true "Reset token and new password"
// @Success      200 {object} Response "Password reset"
// @Failure      400 {object} Response "Validation Error"
// @Router       /auth/password-reset/confirm [post]
func (h *HandlerImpl) ResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "ResetPassword"))

	var req ResetPasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode reset password request", slog.Any("error", err))
		api.RespondError(w, r, types.NewValidationError("Invalid request body", nil))
		return
	}

	if err := h.authService.ResetPassword(ctx, req.Token, req.NewPassword); err != nil {
		api.RespondError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, Response{
		Success: true,
		Message: "Password has been reset successfully",
	})
}

// ChangePassword godoc
// @Summary      Change Password
// @Description  Sets a new password for the authenticated user after verifying the current one.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body ChangePasswordRequest true "Current and new password"
// @Success      200 {object} Response "Password changed"
// @Failure      400 {object} Response "Validation Error"
// @Failure      401 {object} Response "Unauthorized"
// @Security     BearerAuth
// @Router       /auth/change-password [post]
func (h *HandlerImpl) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "ChangePassword"))

	userID, ok := appMiddleware.UserIDFromContext(ctx)
	if !ok || userID == "" {
		l.ErrorContext(ctx, "User ID not found in context")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req ChangePasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode change password request", slog.Any("error", err))
		api.RespondError(w, r, types.NewValidationError("Invalid request body", nil))
		return
	}

	if err := h.authService.ChangePassword(ctx, userID, req.CurrentPassword, req.NewPassword); err != nil {
		api.RespondError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, Response{
		Success: true,
		Message: "Password changed successfully",
	})
}

// VerifyEmail godoc
// @Summary      Verify Email
// @Description  Consumes an email verification token and marks the account verified.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body VerifyEmailRequest true "Verification token"
// @Success      200 {object} AccountSummary "Email verified"
// @Failure      400 {object} Response "Validation Error"
// @Router       /auth/verify-email [post]
func (h *HandlerImpl) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "VerifyEmail"))

	var req VerifyEmailRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode verify email request", slog.Any("error", err))
		api.RespondError(w, r, types.NewValidationError("Invalid request body", nil))
		return
	}

	summary, err := h.authService.VerifyEmail(ctx, req.Token)
	if err != nil {
		api.RespondError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, summary)
}

// Logout godoc
// @Summary      Logout
// @Description  Revokes the presented access token for the remainder of its lifetime.
// @Tags         Auth
// @Produce      json
// @Success      200 {object} Response "Logged out"
// @Failure      401 {object} Response "Unauthorized"
// @Security     BearerAuth
// @Router       /auth/logout [post]
func (h *HandlerImpl) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "Logout"))

	claims, ok := appMiddleware.ClaimsFromContext(ctx)
	if !ok {
		l.ErrorContext(ctx, "Claims not found in context")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := h.authService.Logout(ctx, claims); err != nil {
		api.RespondError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, Response{
		Success: true,
		Message: "Logged out successfully",
	})
}
