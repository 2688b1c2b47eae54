package handler

import (
	"errors"
	"net/http"
	"time"

	"customer-auth/controller"
	"customer-auth/entity"
	"customer-auth/pkg/logger"
	"customer-auth/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// CustomerAuthMiddleware admits requests whose bearer token has a live
// session and stores the customer id under controller.CustomerIDKey
func CustomerAuthMiddleware(authService service.AuthService, logger *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := authService.Authenticate(c.Request().Context(), c.Request().Header.Get(echo.HeaderAuthorization))
			switch {
			case errors.Is(err, service.ErrTokenRequired):
				return errorResponse(c, http.StatusUnauthorized, controller.CodeTokenRequired, "Missing or malformed bearer token")
			case errors.Is(err, service.ErrTokenInvalid):
				return errorResponse(c, http.StatusUnauthorized, controller.CodeTokenInvalid, "Invalid or expired token")
			case err != nil:
				return err
			}

			customerID, err := claims.CustomerID()
			if err != nil {
				logger.Warnw("Token subject is not a customer id", "subject", claims.Subject, "path", c.Path())
				return errorResponse(c, http.StatusUnauthorized, controller.CodeTokenInvalid, "Invalid token claims")
			}

			c.Set(controller.CustomerIDKey, customerID)
			return next(c)
		}
	}
}

// CORSMiddleware creates a CORS middleware
func CORSMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set(echo.HeaderAccessControlAllowOrigin, "*")
			h.Set(echo.HeaderAccessControlAllowMethods, "GET, POST, OPTIONS")
			h.Set(echo.HeaderAccessControlAllowHeaders, "Content-Type, Authorization, X-Requested-With")

			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusNoContent)
			}

			return next(c)
		}
	}
}

// RequestLoggerMiddleware logs one line per request. The authorization
// header is never logged.
func RequestLoggerMiddleware(logger *logger.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", v.Method,
				"path", v.URIPath,
				"status", v.Status,
				"latency_ms", float64(v.Latency) / float64(time.Millisecond),
				"remote_addr", v.RemoteIP,
				"user_agent", v.UserAgent,
			}
			if v.Error != nil {
				logger.Warnw("HTTP request failed", append(fields, "error", v.Error)...)
				return nil
			}
			logger.Infow("HTTP request", fields...)
			return nil
		},
	})
}

func errorResponse(c echo.Context, status int, code, details string) error {
	return c.JSON(status, entity.ErrorResponse{Error: code, Details: details})
}
