package controller

import (
	"errors"
	"net/http"

	"customer-auth/pkg/logger"
	"customer-auth/service"

	"github.com/labstack/echo/v4"
)

// CustomerController serves the authenticated customer's profile
type CustomerController struct {
	customerService service.CustomerService
	logger          *logger.Logger
}

// NewCustomerController creates a new customer controller instance
func NewCustomerController(customerService service.CustomerService, logger *logger.Logger) *CustomerController {
	return &CustomerController{
		customerService: customerService,
		logger:          logger,
	}
}

// Me returns the customer bound to the request's session
// @Summary Current customer
// @Description Get the profile of the customer owning the bearer token
// @Tags Customers
// @Produce json
// @Security BearerAuth
// @Success 200 {object} entity.CustomerResponse
// @Failure 401 {object} entity.ErrorResponse
// @Failure 404 {object} entity.ErrorResponse
// @Failure 500 {object} entity.ErrorResponse
// @Router /customers/me [get]
func (c *CustomerController) Me(ctx echo.Context) error {
	customerID, ok := ctx.Get(CustomerIDKey).(int64)
	if !ok {
		return errorJSON(ctx, http.StatusUnauthorized, CodeTokenRequired, "Authentication required")
	}

	customer, err := c.customerService.GetByID(ctx.Request().Context(), customerID)
	if err != nil {
		if errors.Is(err, service.ErrCustomerNotFound) {
			c.logger.Warnw("Session refers to a missing customer", "customer_id", customerID)
			return errorJSON(ctx, http.StatusNotFound, CodeCustomerNotFound, "Customer does not exist")
		}
		return err
	}

	return ctx.JSON(http.StatusOK, customer)
}
