package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"customer-auth/entity"

	"github.com/jmoiron/sqlx"
)

// CustomerRepository interface defines customer data operations
type CustomerRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Customer, error)
	GetByPhoneNumber(ctx context.Context, phoneNumber string) (*entity.Customer, error)
	GetOrCreate(ctx context.Context, customer *entity.Customer) (*entity.Customer, bool, error)
}

// customerRepository implements CustomerRepository interface
type customerRepository struct {
	db sqlx.ExtContext
}

// NewCustomerRepository creates a new customer repository instance
func NewCustomerRepository(db sqlx.ExtContext) CustomerRepository {
	return &customerRepository{
		db: db,
	}
}

const customerColumns = `id, name, phone_number, email, created_at`

// GetByID retrieves a customer by ID
func (r *customerRepository) GetByID(ctx context.Context, id int64) (*entity.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	var customer entity.Customer
	if err := sqlx.GetContext(ctx, r.db, &customer, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get customer by id: %w", err)
	}

	return &customer, nil
}

// GetByPhoneNumber retrieves a customer by phone number
func (r *customerRepository) GetByPhoneNumber(ctx context.Context, phoneNumber string) (*entity.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE phone_number = $1`

	var customer entity.Customer
	if err := sqlx.GetContext(ctx, r.db, &customer, query, phoneNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get customer by phone number: %w", err)
	}

	return &customer, nil
}

// GetOrCreate returns the customer owning customer.PhoneNumber, creating it
// from customer when absent. The boolean reports whether a row was inserted.
// A concurrent insert of the same phone number resolves to the existing row
// without aborting the surrounding transaction.
func (r *customerRepository) GetOrCreate(ctx context.Context, customer *entity.Customer) (*entity.Customer, bool, error) {
	existing, err := r.GetByPhoneNumber(ctx, customer.PhoneNumber)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	query := `
		INSERT INTO customers (name, phone_number, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (phone_number) DO NOTHING
		RETURNING ` + customerColumns

	var created entity.Customer
	err = sqlx.GetContext(ctx, r.db, &created, query, customer.Name, customer.PhoneNumber, customer.Email)
	if err == nil {
		return &created, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create customer: %w", mapError(err))
	}

	existing, err = r.GetByPhoneNumber(ctx, customer.PhoneNumber)
	if err != nil {
		return nil, false, fmt.Errorf("failed to re-read customer after conflict: %w", err)
	}

	return existing, false, nil
}
