package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/s3ui/bucketgate/internal/core/domain"
	"github.com/s3ui/bucketgate/internal/core/validation"
)

// echoValidator wraps go-playground/validator so Echo can call c.Validate(req).
type echoValidator struct {
	v         *validator.Validate
	passwords validation.PasswordPolicy
	files     validation.FileNamePolicy
}

// NewValidator registers the password and zipfilename tags against the given
// policies and returns a validator for echo.Echo.Validator.
func NewValidator(passwords validation.PasswordPolicy, files validation.FileNamePolicy) *echoValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return passwords.Valid(fl.Field().String())
	})
	_ = v.RegisterValidation("zipfilename", func(fl validator.FieldLevel) bool {
		return files.Valid(fl.Field().String())
	})
	return &echoValidator{v: v, passwords: passwords, files: files}
}

// Validate satisfies echo.Validator. Failures come back as
// *domain.ValidationError.
func (ev *echoValidator) Validate(i any) error {
	err := ev.v.Struct(i)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		msgs := make([]string, 0, len(ve))
		for _, fe := range ve {
			msgs = append(msgs, ev.fieldError(fe))
		}
		return &domain.ValidationError{Reason: strings.Join(msgs, "; ")}
	}
	return &domain.ValidationError{Reason: err.Error()}
}

func (ev *echoValidator) fieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "password":
		if err := ev.passwords.Check(fe.Value().(string)); err != nil {
			return field + ": " + err.Error()
		}
		return field + " is not a valid password"
	case "zipfilename":
		if err := ev.files.Check(fe.Value().(string)); err != nil {
			return field + ": " + err.Error()
		}
		return field + " is not a valid file name"
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
