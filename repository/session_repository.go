package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"customer-auth/entity"

	"github.com/jmoiron/sqlx"
)

// SessionRepository interface defines session data operations
type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*entity.Session, error)
	DeleteByTokenHash(ctx context.Context, tokenHash string) (int64, error)
	DeleteByCustomerID(ctx context.Context, customerID int64) (int64, error)
}

// sessionRepository implements SessionRepository interface
type sessionRepository struct {
	db sqlx.ExtContext
}

// NewSessionRepository creates a new session repository instance
func NewSessionRepository(db sqlx.ExtContext) SessionRepository {
	return &sessionRepository{
		db: db,
	}
}

// Create records an issued token. Re-recording the same token hash is a no-op.
func (r *sessionRepository) Create(ctx context.Context, session *entity.Session) error {
	query := `
		INSERT INTO sessions (customer_id, token_hash, expires_at, created_at)
		VALUES (:customer_id, :token_hash, :expires_at, :created_at)
		ON CONFLICT (token_hash) DO NOTHING
	`

	if _, err := sqlx.NamedExecContext(ctx, r.db, query, session); err != nil {
		return fmt.Errorf("failed to create session: %w", mapError(err))
	}

	return nil
}

// GetByTokenHash retrieves a session by the hash of its token
func (r *sessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*entity.Session, error) {
	query := `
		SELECT id, customer_id, token_hash, expires_at, created_at
		FROM sessions
		WHERE token_hash = $1
	`

	var session entity.Session
	if err := sqlx.GetContext(ctx, r.db, &session, query, tokenHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &session, nil
}

// DeleteByTokenHash removes the session of one token and returns how many rows went away
func (r *sessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) (int64, error) {
	return r.delete(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
}

// DeleteByCustomerID removes every session of a customer
func (r *sessionRepository) DeleteByCustomerID(ctx context.Context, customerID int64) (int64, error) {
	return r.delete(ctx, `DELETE FROM sessions WHERE customer_id = $1`, customerID)
}

func (r *sessionRepository) delete(ctx context.Context, query string, arg any) (int64, error) {
	result, err := r.db.ExecContext(ctx, query, arg)
	if err != nil {
		return 0, fmt.Errorf("failed to delete session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
