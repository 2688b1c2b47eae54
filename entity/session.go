package entity

import (
	"time"
)

// Session records one issued customer token. The raw token is never stored.
type Session struct {
	ID         int64     `db:"id" json:"id"`
	CustomerID int64     `db:"customer_id" json:"customer_id"`
	TokenHash  string    `db:"token_hash" json:"-"`
	ExpiresAt  time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
