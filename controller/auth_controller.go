package controller

import (
	"errors"
	"net/http"

	"customer-auth/pkg/logger"
	"customer-auth/service"

	"github.com/labstack/echo/v4"
)

// AuthController handles session termination
type AuthController struct {
	authService service.AuthService
	logger      *logger.Logger
}

// NewAuthController creates a new auth controller
func NewAuthController(authService service.AuthService, logger *logger.Logger) *AuthController {
	return &AuthController{
		authService: authService,
		logger:      logger,
	}
}

// Logout godoc
// @Summary Logout
// @Description Delete the session of the presented token
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} entity.ErrorResponse
// @Failure 500 {object} entity.ErrorResponse
// @Router /auth/logout [post]
func (c *AuthController) Logout(ctx echo.Context) error {
	err := c.authService.Logout(ctx.Request().Context(), ctx.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		return c.tokenError(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// LogoutAll godoc
// @Summary Logout from all devices
// @Description Delete every session of the customer owning the presented token
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} entity.ErrorResponse
// @Failure 500 {object} entity.ErrorResponse
// @Router /auth/logout-all [post]
func (c *AuthController) LogoutAll(ctx echo.Context) error {
	_, err := c.authService.LogoutAll(ctx.Request().Context(), ctx.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		return c.tokenError(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (c *AuthController) tokenError(ctx echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrTokenRequired):
		return errorJSON(ctx, http.StatusUnauthorized, CodeTokenRequired, "Missing or malformed bearer token")
	case errors.Is(err, service.ErrTokenInvalid):
		return errorJSON(ctx, http.StatusUnauthorized, CodeTokenInvalid, "Invalid or expired token")
	default:
		return err
	}
}
