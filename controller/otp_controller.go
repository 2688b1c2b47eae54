package controller

import (
	"errors"
	"net/http"

	"customer-auth/entity"
	"customer-auth/pkg/logger"
	"customer-auth/service"
	"customer-auth/validator"

	"github.com/labstack/echo/v4"
)

// OTPController handles OTP-related HTTP requests
type OTPController struct {
	otpService service.OTPService
	validator  *validator.Validator
	logger     *logger.Logger
}

// NewOTPController creates a new OTP controller instance
func NewOTPController(otpService service.OTPService, validator *validator.Validator, logger *logger.Logger) *OTPController {
	return &OTPController{
		otpService: otpService,
		validator:  validator,
		logger:     logger,
	}
}

// SendOTP handles OTP generation and sending
// @Summary Send OTP
// @Description Generate a one-time code for a whitelisted phone number and deliver it
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body entity.SendOTPRequest true "Send OTP Request"
// @Success 200 {object} entity.SendOTPResponse
// @Failure 400 {object} entity.ErrorResponse
// @Failure 403 {object} entity.ErrorResponse
// @Failure 429 {object} entity.ErrorResponse
// @Failure 500 {object} entity.ErrorResponse
// @Router /auth/otp/send [post]
func (c *OTPController) SendOTP(ctx echo.Context) error {
	var req entity.SendOTPRequest

	if err := ctx.Bind(&req); err != nil {
		c.logger.Warnw("Failed to bind request", "error", err)
		return errorJSON(ctx, http.StatusBadRequest, CodePhoneRequired, "Invalid request body")
	}

	if err := c.validator.ValidateStruct(&req); err != nil {
		return errorJSON(ctx, http.StatusBadRequest, CodePhoneRequired, err.Error())
	}

	err := c.otpService.SendOTP(ctx.Request().Context(), req.Phone)
	switch {
	case err == nil:
		return ctx.JSON(http.StatusOK, entity.SendOTPResponse{OK: true})
	case errors.Is(err, service.ErrPhoneRequired):
		return errorJSON(ctx, http.StatusBadRequest, CodePhoneRequired, "Phone is required")
	case errors.Is(err, service.ErrPhoneNotWhitelisted):
		return errorJSON(ctx, http.StatusForbidden, CodePhoneNotWhitelisted, "Phone number is not allowed to sign in")
	case errors.Is(err, service.ErrRateLimited):
		return errorJSON(ctx, http.StatusTooManyRequests, CodeRateLimited, "Too many OTP requests. Please try again later.")
	default:
		return err
	}
}

// VerifyOTP handles OTP verification and authentication
// @Summary Verify OTP
// @Description Consume the code of a phone number and return a session token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body entity.VerifyOTPRequest true "Verify OTP Request"
// @Success 200 {object} entity.AuthResponse
// @Failure 400 {object} entity.ErrorResponse
// @Failure 401 {object} entity.ErrorResponse
// @Failure 500 {object} entity.ErrorResponse
// @Router /auth/otp/verify [post]
func (c *OTPController) VerifyOTP(ctx echo.Context) error {
	var req entity.VerifyOTPRequest

	if err := ctx.Bind(&req); err != nil {
		c.logger.Warnw("Failed to bind request", "error", err)
		return errorJSON(ctx, http.StatusBadRequest, CodePhoneAndOTPRequired, "Invalid request body")
	}

	if err := c.validator.ValidateStruct(&req); err != nil {
		return errorJSON(ctx, http.StatusBadRequest, CodePhoneAndOTPRequired, err.Error())
	}

	result, err := c.otpService.VerifyOTP(ctx.Request().Context(), req.Phone, req.OTP)
	if err != nil {
		if errors.Is(err, service.ErrPhoneAndOTPRequired) {
			return errorJSON(ctx, http.StatusBadRequest, CodePhoneAndOTPRequired, "Phone and OTP are required")
		}
		c.logger.Errorw("Login failed", "error", err)
		return errorJSON(ctx, http.StatusInternalServerError, CodeLoginFailed, "Login failed")
	}

	switch result.Status {
	case service.VerifyOK:
		return ctx.JSON(http.StatusOK, entity.AuthResponse{
			Token:    result.Token,
			Customer: result.Customer.ToResponse(),
		})
	case service.VerifyExpired:
		return errorJSON(ctx, http.StatusUnauthorized, CodeOTPExpired, "OTP has expired. Please request a new one.")
	case service.VerifyInvalid:
		return errorJSON(ctx, http.StatusUnauthorized, CodeOTPInvalid, "Invalid OTP")
	case service.VerifyTokenFailed:
		return errorJSON(ctx, http.StatusInternalServerError, CodeTokenCreateFailed, "Failed to create token")
	default:
		return errorJSON(ctx, http.StatusInternalServerError, CodeLoginFailed, "Login failed")
	}
}
