// Package validator wraps go-playground/validator with the marketplace's
// custom rules.
package validator

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var pincodePattern = regexp.MustCompile(`^[1-9][0-9]{5}$`)

// Validator wraps the go-playground validator for structured validation.
type Validator struct {
	v *validator.Validate
}

// FieldError is a flattened validation failure suitable for a response body.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// New creates a Validator with the custom tags registered:
//
//	notblank  string with at least one non-space character
//	pincode   six digit postal code, not starting with 0
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("pincode", func(fl validator.FieldLevel) bool {
		return pincodePattern.MatchString(fl.Field().String())
	})
	return &Validator{v: v}
}

// Struct validates a struct based on validation tags.
func (val *Validator) Struct(s any) error {
	return val.v.Struct(s)
}

// Var validates a single variable against a tag.
func (val *Validator) Var(field any, tag string) error {
	return val.v.Var(field, tag)
}

// Fields converts a validation error into response-friendly field errors.
// Returns nil for errors that did not come from the validator.
func Fields(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return out
}
