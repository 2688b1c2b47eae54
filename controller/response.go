package controller

import (
	"customer-auth/entity"

	"github.com/labstack/echo/v4"
)

// Error codes returned in entity.ErrorResponse
const (
	CodePhoneRequired       = "PHONE_REQUIRED"
	CodePhoneNotWhitelisted = "PHONE_NOT_WHITELISTED"
	CodeRateLimited         = "RATE_LIMITED"
	CodePhoneAndOTPRequired = "PHONE_AND_OTP_REQUIRED"
	CodeOTPExpired          = "OTP_EXPIRED"
	CodeOTPInvalid          = "OTP_INVALID"
	CodeTokenCreateFailed   = "TOKEN_CREATE_FAILED"
	CodeLoginFailed         = "LOGIN_FAILED"
	CodeTokenRequired       = "TOKEN_REQUIRED"
	CodeTokenInvalid        = "TOKEN_INVALID"
	CodeCustomerNotFound    = "CUSTOMER_NOT_FOUND"
	CodeTooManyRequests     = "TOO_MANY_REQUESTS"
	CodeInternalError       = "INTERNAL_ERROR"
)

// CustomerIDKey is the echo context key holding the authenticated customer id
const CustomerIDKey = "customer_id"

func errorJSON(ctx echo.Context, status int, code, details string) error {
	return ctx.JSON(status, entity.ErrorResponse{
		Error:   code,
		Details: details,
	})
}
