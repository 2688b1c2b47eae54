package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"customer-auth/entity"

	"github.com/jmoiron/sqlx"
)

// OTPRepository interface defines OTP data operations
type OTPRepository interface {
	Upsert(ctx context.Context, otp *entity.OTP) error
	GetByPhoneNumber(ctx context.Context, phoneNumber string) (*entity.OTP, error)
	MarkAsUsed(ctx context.Context, phoneNumber, codeHash string, usedAt time.Time) (bool, error)
	Delete(ctx context.Context, phoneNumber, codeHash string) (bool, error)
	DeleteUsedOrExpired(ctx context.Context, now time.Time) (int64, error)
}

// otpRepository implements OTPRepository interface
type otpRepository struct {
	db sqlx.ExtContext
}

// NewOTPRepository creates a new OTP repository instance
func NewOTPRepository(db sqlx.ExtContext) OTPRepository {
	return &otpRepository{
		db: db,
	}
}

// Upsert stores the code of a phone number, replacing any previous one
func (r *otpRepository) Upsert(ctx context.Context, otp *entity.OTP) error {
	query := `
		INSERT INTO otps (phone_number, code_hash, expires_at, is_used, created_at, used_at)
		VALUES (:phone_number, :code_hash, :expires_at, FALSE, :created_at, NULL)
		ON CONFLICT (phone_number)
		DO UPDATE SET
			code_hash = EXCLUDED.code_hash,
			expires_at = EXCLUDED.expires_at,
			is_used = FALSE,
			created_at = EXCLUDED.created_at,
			used_at = NULL
	`

	otp.IsUsed = false
	otp.UsedAt = nil

	if _, err := sqlx.NamedExecContext(ctx, r.db, query, otp); err != nil {
		return fmt.Errorf("failed to upsert OTP: %w", mapError(err))
	}

	return nil
}

// GetByPhoneNumber retrieves the OTP of a phone number
func (r *otpRepository) GetByPhoneNumber(ctx context.Context, phoneNumber string) (*entity.OTP, error) {
	query := `
		SELECT phone_number, code_hash, expires_at, is_used, created_at, used_at
		FROM otps
		WHERE phone_number = $1
	`

	var otp entity.OTP
	if err := sqlx.GetContext(ctx, r.db, &otp, query, phoneNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get OTP: %w", err)
	}

	return &otp, nil
}

// MarkAsUsed consumes the OTP if it is still unused and still holds codeHash.
// It reports false when another request consumed or replaced it first.
func (r *otpRepository) MarkAsUsed(ctx context.Context, phoneNumber, codeHash string, usedAt time.Time) (bool, error) {
	query := `
		UPDATE otps
		SET is_used = TRUE, used_at = $3
		WHERE phone_number = $1 AND code_hash = $2 AND is_used = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, phoneNumber, codeHash, usedAt)
	if err != nil {
		return false, fmt.Errorf("failed to mark OTP as used: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// Delete removes the OTP of a phone number only while it still holds
// codeHash, so a code resent in the meantime survives
func (r *otpRepository) Delete(ctx context.Context, phoneNumber, codeHash string) (bool, error) {
	query := `DELETE FROM otps WHERE phone_number = $1 AND code_hash = $2`

	result, err := r.db.ExecContext(ctx, query, phoneNumber, codeHash)
	if err != nil {
		return false, fmt.Errorf("failed to delete OTP: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// DeleteUsedOrExpired deletes consumed OTPs and those expired before now
func (r *otpRepository) DeleteUsedOrExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM otps WHERE is_used = TRUE OR expires_at < $1`

	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired OTPs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
