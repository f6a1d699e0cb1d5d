package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/auth-service/internal/auth"
)

// RequestValidator plugs go-playground/validator into Echo. Failures come
// back as auth validation errors carrying the message of the first
// failing field, so the error handler renders them as 400.
type RequestValidator struct {
	v *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// max counts runes; bcrypt's limit is in bytes
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		return err == nil && len(fl.Field().String()) <= n
	})
	return &RequestValidator{v: v}
}

// Validate implements echo.Validator.
func (rv *RequestValidator) Validate(i any) error {
	err := rv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate request: %w", err)
	}
	return &auth.Error{Kind: auth.KindValidation, Message: fieldMessage(verrs[0])}
}

var fieldNames = map[string]string{
	"name":            "Name",
	"email":           "Email",
	"password":        "Password",
	"refreshToken":    "Refresh token",
	"currentPassword": "Current password",
	"newPassword":     "New password",
}

func fieldMessage(fe validator.FieldError) string {
	label, ok := fieldNames[fe.Field()]
	if !ok {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return "Please include a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", label, fe.Param())
	case "maxbytes":
		return fmt.Sprintf("%s must be at most %s bytes long", label, fe.Param())
	default:
		return label + " is invalid"
	}
}
