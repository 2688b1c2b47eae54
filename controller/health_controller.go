package controller

import (
	"context"
	"net/http"
	"sort"
	"time"

	"customer-auth/pkg/logger"

	"github.com/labstack/echo/v4"
)

const (
	serviceName    = "customer-auth-service"
	serviceVersion = "1.0.0"
	checkTimeout   = 2 * time.Second
)

// Check reports the health of one dependency
type Check func(ctx context.Context) error

type HealthController struct {
	checks map[string]Check
	logger *logger.Logger
}

func NewHealthController(checks map[string]Check, logger *logger.Logger) *HealthController {
	return &HealthController{checks: checks, logger: logger}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string            `json:"status" example:"healthy"`
	Service string            `json:"service" example:"customer-auth-service"`
	Version string            `json:"version" example:"1.0.0"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// HealthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the service and its dependencies
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *HealthController) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), checkTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{Status: "healthy", Service: serviceName, Version: serviceVersion}
	status := http.StatusOK
	for _, name := range names {
		if resp.Checks == nil {
			resp.Checks = make(map[string]string, len(names))
		}
		if err := h.checks[name](ctx); err != nil {
			h.logger.Warnw("Health check failed", "dependency", name, "error", err)
			resp.Checks[name] = "unavailable"
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	return c.JSON(status, resp)
}

// ServiceInfoResponse represents the service info response
type ServiceInfoResponse struct {
	Message string `json:"message" example:"Customer Authentication Service"`
	Version string `json:"version" example:"1.0.0"`
	Docs    string `json:"docs" example:"/swagger/index.html"`
}

// ServiceInfo godoc
// @Summary Service information
// @Description Returns basic service information and documentation links
// @Tags System
// @Produce json
// @Success 200 {object} ServiceInfoResponse
// @Router / [get]
func (h *HealthController) ServiceInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, ServiceInfoResponse{
		Message: "Customer Authentication Service",
		Version: serviceVersion,
		Docs:    "/swagger/index.html",
	})
}
