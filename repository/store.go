package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write hits a unique constraint
	ErrDuplicate = errors.New("record already exists")
)

// uniqueViolation is the postgres SQLSTATE for unique_violation
const uniqueViolation pq.ErrorCode = "23505"

// Repositories groups every repository bound to the same connection or transaction
type Repositories struct {
	Whitelist WhitelistRepository
	OTP       OTPRepository
	Customer  CustomerRepository
	Session   SessionRepository
}

// NewRepositories binds all repositories to db, which may be a *sqlx.DB or a *sqlx.Tx
func NewRepositories(db sqlx.ExtContext) *Repositories {
	return &Repositories{
		Whitelist: NewWhitelistRepository(db),
		OTP:       NewOTPRepository(db),
		Customer:  NewCustomerRepository(db),
		Session:   NewSessionRepository(db),
	}
}

// Transactor runs a unit of work. If fn returns an error the transaction is
// rolled back and the error is returned unchanged, otherwise it is committed.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(repos *Repositories) error) error
}

// Store owns the database handle and hands out repositories
type Store struct {
	db *sqlx.DB
	*Repositories
}

// NewStore creates a new store instance
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		db:           db,
		Repositories: NewRepositories(db),
	}
}

// WithinTx implements Transactor
func (s *Store) WithinTx(ctx context.Context, fn func(repos *Repositories) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("failed to rollback transaction: %w", rbErr))
		}
	}()

	if err := fn(NewRepositories(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true

	return nil
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
	}
	return err
}
