package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Struct validates a struct by its validate tags. Returns nil when
// valid, otherwise a map of JSON field name to message.
func Struct(v any) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"payload": err.Error()}
	}

	out := make(map[string]string, len(errs))
	for _, e := range errs {
		out[e.Field()] = message(e)
	}
	return out
}

// message constructs a friendly error message based on the validation tag.
func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("the field '%s' is required", e.Field())
	case "min", "gte":
		return fmt.Sprintf("the field '%s' must be at least %s", e.Field(), e.Param())
	case "max", "lte":
		return fmt.Sprintf("the field '%s' must be at most %s", e.Field(), e.Param())
	case "oneof":
		return fmt.Sprintf("the field '%s' must be one of %s", e.Field(), e.Param())
	default:
		return fmt.Sprintf("the field '%s' is invalid", e.Field())
	}
}
