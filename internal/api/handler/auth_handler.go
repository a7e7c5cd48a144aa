package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/s3ui/bucketgate/internal/api/metrics"
	"github.com/s3ui/bucketgate/internal/core/domain"
	"github.com/s3ui/bucketgate/internal/core/ports"
)

const (
	msgNoUser          = "No user found"
	msgInactiveUser    = "Inactive User"
	msgSamePassword    = "Current and New Passwords cannot be same!"
	msgWrongPassword   = "Incorrect Password!"
	msgPasswordChanged = "Password Changed successfully! Please login again with new credentials"
	msgInvalidPayload  = "invalid payload"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,password"`
}

type authResponse struct {
	Tokens domain.TokenPair `json:"tokens"`
	User   domain.Profile   `json:"user"`
}

// Login authenticates a user and returns an access/refresh token pair.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      401   {object}  messageResponse
// @Failure      403   {object}  messageResponse
// @Router       /api/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusForbidden, msgInvalidPayload)
	}

	res, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			metrics.AuthAttemptsTotal.WithLabelValues("login", "user_not_found").Inc()
		case errors.Is(err, domain.ErrInactiveUser):
			metrics.AuthAttemptsTotal.WithLabelValues("login", "inactive_user").Inc()
		case errors.Is(err, domain.ErrInvalidCredentials):
			metrics.AuthAttemptsTotal.WithLabelValues("login", "invalid_credentials").Inc()
		default:
			metrics.AuthAttemptsTotal.WithLabelValues("login", "error").Inc()
			return err
		}
		return message(c, http.StatusUnauthorized, msgNoUser)
	}

	metrics.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()
	return c.JSON(http.StatusOK, authResponse{Tokens: res.Tokens, User: res.Profile})
}

// Refresh issues a new access token for the bearer of a refresh token.
//
// @Summary      Refresh access token
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  authResponse
// @Failure      401  {object}  messageResponse
// @Router       /api/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	token, err := ctxToken(c)
	if err != nil {
		return err
	}

	res, err := h.authService.Refresh(c.Request().Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInactiveUser), errors.Is(err, domain.ErrUserNotFound):
			metrics.AuthAttemptsTotal.WithLabelValues("refresh", "inactive_user").Inc()
			return message(c, http.StatusUnauthorized, msgInactiveUser)
		case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrTokenRevoked):
			metrics.AuthAttemptsTotal.WithLabelValues("refresh", "invalid_token").Inc()
			return message(c, http.StatusUnauthorized, "invalid or expired token")
		}
		metrics.AuthAttemptsTotal.WithLabelValues("refresh", "error").Inc()
		return err
	}

	metrics.AuthAttemptsTotal.WithLabelValues("refresh", "success").Inc()
	return c.JSON(http.StatusOK, authResponse{Tokens: res.Tokens, User: res.Profile})
}

// ChangePassword rotates the caller's password.
//
// @Summary      Change password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      changePasswordRequest  true  "Current and new password"
// @Success      200   {object}  messageResponse
// @Failure      401   {object}  messageResponse
// @Failure      403   {object}  messageResponse
// @Failure      404   {object}  messageResponse
// @Router       /api/change-password [post]
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	identity, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusForbidden, msgInvalidPayload)
	}
	// Equal passwords are reported as such even when they would also fail
	// the strength rule.
	if req.CurrentPassword != "" && req.CurrentPassword == req.NewPassword {
		metrics.AuthAttemptsTotal.WithLabelValues("change_password", "same_password").Inc()
		return message(c, http.StatusForbidden, msgSamePassword)
	}
	if err := c.Validate(&req); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("change_password", "invalid_request").Inc()
		return message(c, http.StatusForbidden, err.Error())
	}

	err = h.authService.ChangePassword(c.Request().Context(), ports.ChangePasswordInput{
		UserID:          identity.UserID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrInactiveUser):
			metrics.AuthAttemptsTotal.WithLabelValues("change_password", "user_not_found").Inc()
			return message(c, http.StatusNotFound, msgNoUser)
		case errors.Is(err, domain.ErrSamePassword):
			metrics.AuthAttemptsTotal.WithLabelValues("change_password", "same_password").Inc()
			return message(c, http.StatusForbidden, msgSamePassword)
		case errors.Is(err, domain.ErrIncorrectPassword):
			metrics.AuthAttemptsTotal.WithLabelValues("change_password", "incorrect_password").Inc()
			return message(c, http.StatusForbidden, msgWrongPassword)
		case errors.Is(err, domain.ErrValidation):
			metrics.AuthAttemptsTotal.WithLabelValues("change_password", "invalid_request").Inc()
			return message(c, http.StatusForbidden, err.Error())
		}
		metrics.AuthAttemptsTotal.WithLabelValues("change_password", "error").Inc()
		return err
	}

	metrics.AuthAttemptsTotal.WithLabelValues("change_password", "success").Inc()
	return message(c, http.StatusOK, msgPasswordChanged)
}
