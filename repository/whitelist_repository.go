package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// WhitelistRepository answers whether a phone number may request codes
type WhitelistRepository interface {
	Exists(ctx context.Context, phoneNumber string) (bool, error)
}

type whitelistRepository struct {
	db sqlx.ExtContext
}

// NewWhitelistRepository creates a new whitelist repository instance
func NewWhitelistRepository(db sqlx.ExtContext) WhitelistRepository {
	return &whitelistRepository{
		db: db,
	}
}

// Exists reports whether phoneNumber is on the whitelist
func (r *whitelistRepository) Exists(ctx context.Context, phoneNumber string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM phone_whitelist WHERE phone_number = $1)`

	var exists bool
	if err := sqlx.GetContext(ctx, r.db, &exists, query, phoneNumber); err != nil {
		return false, fmt.Errorf("failed to check phone whitelist: %w", err)
	}

	return exists, nil
}
