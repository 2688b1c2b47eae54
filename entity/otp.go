package entity

import (
	"time"
)

// OTP is the single live one-time code of a phone number. Only the keyed
// hash of "phone:code" is stored.
type OTP struct {
	PhoneNumber string     `db:"phone_number" json:"phone_number"`
	CodeHash    string     `db:"code_hash" json:"-"`
	ExpiresAt   time.Time  `db:"expires_at" json:"expires_at"`
	IsUsed      bool       `db:"is_used" json:"is_used"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UsedAt      *time.Time `db:"used_at" json:"used_at"`
}

// IsExpired reports whether the code is past its expiry at now.
func (o *OTP) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// SendOTPRequest represents the request to send an OTP
type SendOTPRequest struct {
	Phone string `json:"phone" validate:"required"`
}

// VerifyOTPRequest represents the request to verify an OTP
type VerifyOTPRequest struct {
	Phone string `json:"phone" validate:"required"`
	OTP   string `json:"otp" validate:"required"`
}

// SendOTPResponse is returned when a code was issued
type SendOTPResponse struct {
	OK bool `json:"ok"`
}

// AuthResponse represents a successful verification
type AuthResponse struct {
	Token    string           `json:"token"`
	Customer CustomerResponse `json:"customer"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error   string `json:"error" example:"OTP_INVALID"`
	Details string `json:"details" example:"Invalid OTP"`
}
