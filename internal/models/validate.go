package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/hyperjump/vibematch/internal/apperror"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report JSON field names so messages match the request body.
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

func validateStruct(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperror.Internal("validate", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return validationError(strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s: is required", fe.Field())
	case "min", "gte":
		return fmt.Sprintf("%s: must be >= %s", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s: must be <= %s", fe.Field(), fe.Param())
	case "url":
		return fmt.Sprintf("%s: must be a valid URL", fe.Field())
	default:
		return fmt.Sprintf("%s: failed %s validation", fe.Field(), fe.Tag())
	}
}

func validationError(msg string) error {
	return apperror.Validation("%s", msg)
}
