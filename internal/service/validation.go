package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Kadalzz/edu-project-sub000/internal/apperr"
)

// NewValidator builds the validator used across the service layer. Field names
// in violation reports follow the json tag so forms can match them directly.
func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return validate
}

// structFieldErrors converts validator violations into taxonomy field errors,
// one entry per violated field.
func structFieldErrors(err error) []apperr.FieldError {
	var violations validator.ValidationErrors
	if !errors.As(err, &violations) {
		return []apperr.FieldError{{Field: "payload", Message: err.Error()}}
	}

	fields := make([]apperr.FieldError, 0, len(violations))
	for _, violation := range violations {
		fields = append(fields, apperr.FieldError{
			Field:   violation.Field(),
			Message: fmt.Sprintf("failed %q constraint", violation.Tag()),
		})
	}
	return fields
}
