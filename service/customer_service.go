package service

import (
	"context"
	"errors"
	"fmt"

	"customer-auth/entity"
	"customer-auth/pkg/logger"
	"customer-auth/repository"
)

// ErrCustomerNotFound is returned when no customer has the requested id
var ErrCustomerNotFound = errors.New("customer not found")

// CustomerService interface defines customer business operations
type CustomerService interface {
	GetByID(ctx context.Context, id int64) (*entity.CustomerResponse, error)
}

// customerService implements CustomerService interface
type customerService struct {
	customerRepo repository.CustomerRepository
	logger       *logger.Logger
}

// NewCustomerService creates a new customer service instance
func NewCustomerService(customerRepo repository.CustomerRepository, logger *logger.Logger) CustomerService {
	return &customerService{
		customerRepo: customerRepo,
		logger:       logger.Named("customer"),
	}
}

// GetByID retrieves a customer by ID
func (s *customerService) GetByID(ctx context.Context, id int64) (*entity.CustomerResponse, error) {
	customer, err := s.customerRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		s.logger.Errorw("Failed to get customer by ID", "customer_id", id, "error", err)
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	response := customer.ToResponse()
	return &response, nil
}
