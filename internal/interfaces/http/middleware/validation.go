package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/xborder/backend/internal/domain/shared"
	"github.com/xborder/backend/internal/interfaces/http/dto"
)

var setupValidatorOnce sync.Once

// SetupValidator registers the custom binding rules on gin's validator.
// Field names in errors use their json tags. Safe to call more than once.
func SetupValidator() {
	setupValidatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("dmode", func(fl validator.FieldLevel) bool {
			s := strings.ToUpper(strings.TrimSpace(fl.Field().String()))
			return shared.DeliveryMode(s).IsValid()
		})
	})
}

// FormatBindingError turns a binding failure into the response code, a
// summary message and per-field details
func FormatBindingError(err error) (string, string, []dto.ValidationDetail) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]dto.ValidationDetail, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, dto.ValidationDetail{
				Field:   fieldPath(fe.Namespace()),
				Message: validationMessage(fe),
			})
		}
		return dto.ErrCodeValidation, "Request validation failed", details
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return dto.ErrCodeBadRequest, fmt.Sprintf("Malformed JSON at offset %d", syntaxErr.Offset), nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return dto.ErrCodeValidation, "Request validation failed", []dto.ValidationDetail{{
			Field:   typeErr.Field,
			Message: fmt.Sprintf("must be of type %s", typeErr.Type.String()),
		}}
	}
	return dto.ErrCodeBadRequest, "Invalid request body", nil
}

// fieldPath drops the root struct name from a validator namespace
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s entries", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at most %s entries", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "iso3166_1_alpha2":
		return "must be an ISO 3166-1 alpha-2 country code"
	case "iso4217":
		return "must be an ISO 4217 currency code"
	case "dmode":
		return "must be DDP or DAP"
	case "email":
		return "must be a valid email address"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
