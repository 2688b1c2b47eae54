package entity

import (
	"fmt"
	"time"
)

// Customer is a shopper identified by phone number
type Customer struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	PhoneNumber string    `db:"phone_number" json:"phone_number"`
	Email       *string   `db:"email" json:"email"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// DefaultCustomerName derives the display name given to customers created at
// first login, e.g. "Customer 3210" for +919876543210.
func DefaultCustomerName(phoneNumber string) string {
	digits := make([]rune, 0, len(phoneNumber))
	for _, r := range phoneNumber {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) > 4 {
		digits = digits[len(digits)-4:]
	}
	return fmt.Sprintf("Customer %s", string(digits))
}

// CustomerResponse represents the customer profile returned to clients
type CustomerResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	PhoneNumber string    `json:"phone"`
	Email       *string   `json:"email"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToResponse converts the entity to its public representation
func (c *Customer) ToResponse() CustomerResponse {
	return CustomerResponse{
		ID:          c.ID,
		Name:        c.Name,
		PhoneNumber: c.PhoneNumber,
		Email:       c.Email,
		CreatedAt:   c.CreatedAt,
	}
}
