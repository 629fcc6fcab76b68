package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	personNamePattern = regexp.MustCompile(`^[\p{L}\s]+$`)
	letterPattern     = regexp.MustCompile(`[A-Za-z]`)
	digitPattern      = regexp.MustCompile(`\d`)
	specialPattern    = regexp.MustCompile(`[@$!%*?&]`)
	passwordCharset   = regexp.MustCompile(`^[A-Za-z\d@$!%*?&]+$`)
)

// ValidationError lists the fields that failed validation
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// newValidator builds a validator with the person name and password rules
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return personNamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return isStrongPassword(fl.Field().String())
	})
	return v
}

// isStrongPassword requires a letter, a digit and one of @$!%*?&, and nothing else
func isStrongPassword(p string) bool {
	return letterPattern.MatchString(p) &&
		digitPattern.MatchString(p) &&
		specialPattern.MatchString(p) &&
		passwordCharset.MatchString(p)
}

// validateStruct runs the validator and converts failures to a ValidationError
func validateStruct(v *validator.Validate, s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validation: %w", err)
	}

	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields[strings.ToLower(fe.Field())] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return "must have at least " + fe.Param() + " characters"
	case "max":
		return "must have at most " + fe.Param() + " characters"
	case "personname":
		return "must contain only letters and spaces"
	case "strongpassword":
		return "must contain a letter, a digit and one of @$!%*?&"
	default:
		return "is invalid"
	}
}
