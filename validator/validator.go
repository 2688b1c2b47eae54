package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrNilInput is returned when ValidateStruct receives nil
var ErrNilInput = errors.New("input cannot be nil")

// Validator wraps the go-playground validator
type Validator struct {
	validator *validator.Validate
}

// New creates a validator that reports fields by their json names
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{
		validator: v,
	}
}

// Validate satisfies echo.Validator
func (v *Validator) Validate(i interface{}) error {
	return v.ValidateStruct(i)
}

// ValidateStruct validates a struct and returns formatted errors
func (v *Validator) ValidateStruct(s interface{}) error {
	if s == nil {
		return ErrNilInput
	}

	if err := v.validator.Struct(s); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			messages := make([]string, 0, len(validationErrors))
			for _, validationErr := range validationErrors {
				messages = append(messages, v.formatFieldError(validationErr))
			}
			return fmt.Errorf("validation failed: %s", strings.Join(messages, "; "))
		}
		return fmt.Errorf("validation error: %w", err)
	}
	return nil
}

// formatFieldError formats a single field validation error
func (v *Validator) formatFieldError(err validator.FieldError) string {
	if err.Tag() == "required" {
		return fmt.Sprintf("%s is required", err.Field())
	}
	return fmt.Sprintf("%s is invalid", err.Field())
}
