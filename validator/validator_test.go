package validator

import (
	"testing"

	"customer-auth/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	v := New()

	assert.NotNil(t, v)
	assert.NotNil(t, v.validator)
}

func TestValidator_SendOTPRequest(t *testing.T) {
	v := New()

	assert.NoError(t, v.ValidateStruct(&entity.SendOTPRequest{Phone: "+919876543210"}))

	err := v.ValidateStruct(&entity.SendOTPRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "phone is required")
}

func TestValidator_VerifyOTPRequest(t *testing.T) {
	v := New()

	testCases := []struct {
		name      string
		req       entity.VerifyOTPRequest
		errorText []string
	}{
		{
			name: "valid",
			req:  entity.VerifyOTPRequest{Phone: "+919876543210", OTP: "482913"},
		},
		{
			name:      "missing otp",
			req:       entity.VerifyOTPRequest{Phone: "+919876543210"},
			errorText: []string{"otp is required"},
		},
		{
			name:      "missing phone",
			req:       entity.VerifyOTPRequest{OTP: "482913"},
			errorText: []string{"phone is required"},
		},
		{
			name:      "missing both",
			req:       entity.VerifyOTPRequest{},
			errorText: []string{"phone is required", "otp is required"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.ValidateStruct(&tc.req)
			if len(tc.errorText) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, text := range tc.errorText {
				assert.Contains(t, err.Error(), text)
			}
		})
	}
}

func TestValidator_Validate_ImplementsEchoValidator(t *testing.T) {
	v := New()

	assert.Error(t, v.Validate(&entity.SendOTPRequest{}))
	assert.NoError(t, v.Validate(&entity.SendOTPRequest{Phone: "+919876543210"}))
}

func TestValidator_ValidateStruct_NilInput(t *testing.T) {
	v := New()

	err := v.ValidateStruct(nil)
	assert.ErrorIs(t, err, ErrNilInput)
}

func TestValidator_ValidateStruct_NonStruct(t *testing.T) {
	v := New()

	err := v.ValidateStruct("not a struct")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation error")
}

func TestValidator_FormatFieldError(t *testing.T) {
	type sample struct {
		Phone string `json:"phone" validate:"required"`
		Email string `json:"email" validate:"email"`
	}

	v := New()
	err := v.ValidateStruct(&sample{Email: "nope"})
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "phone is required")
	assert.Contains(t, msg, "email is invalid")
}
