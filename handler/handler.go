package handler

import (
	"net/http"
	"time"

	"customer-auth/config"
	"customer-auth/controller"
	_ "customer-auth/docs" // swagger spec registration
	"customer-auth/pkg/logger"
	"customer-auth/service"
	"customer-auth/validator"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"
)

// Controllers groups the HTTP controllers mounted by RegisterRoutes
type Controllers struct {
	OTP      *controller.OTPController
	Auth     *controller.AuthController
	Customer *controller.CustomerController
	Health   *controller.HealthController
}

// NewEcho creates the echo instance with the service's error handler and validator
func NewEcho(logger *logger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = HTTPErrorHandler(logger)
	e.Validator = validator.New()
	return e
}

// RegisterRoutes registers all HTTP routes and middleware
func RegisterRoutes(
	e *echo.Echo,
	controllers Controllers,
	authService service.AuthService,
	cfg *config.Config,
	logger *logger.Logger,
) {
	e.Use(middleware.Recover())
	e.Use(CORSMiddleware())
	e.Use(RequestLoggerMiddleware(logger))

	// System endpoints
	e.GET("/health", controllers.Health.HealthCheck)
	e.GET("/", controllers.Health.ServiceInfo)

	if cfg.Swagger.Enabled {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	v1 := e.Group("/api/v1")

	// Auth routes carry a per-IP limit on top of the per-phone OTP limit
	authGroup := v1.Group("/auth", RateLimitMiddleware(cfg.HTTPServer.RateLimitPerSecond))
	authGroup.POST("/otp/send", controllers.OTP.SendOTP)
	authGroup.POST("/otp/verify", controllers.OTP.VerifyOTP)
	authGroup.POST("/logout", controllers.Auth.Logout)
	authGroup.POST("/logout-all", controllers.Auth.LogoutAll)

	customerGroup := v1.Group("/customers", CustomerAuthMiddleware(authService, logger))
	customerGroup.GET("/me", controllers.Customer.Me)
}

// RateLimitMiddleware limits requests per client IP. A non-positive rate
// disables the limit.
func RateLimitMiddleware(perSecond float64) echo.MiddlewareFunc {
	if perSecond <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	burst := int(perSecond * 2)
	if burst < 1 {
		burst = 1
	}

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(perSecond),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return errorResponse(c, http.StatusTooManyRequests, controller.CodeTooManyRequests, "Too many requests. Please slow down.")
		},
	})
}
