// AngelaMos | 2026
// validation.go

package core

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		return jsonFieldName(field.Tag.Get("json"), field.Tag.Get("form"), field.Name)
	})
	return v
}

// ValidationFields flattens validator errors into field -> message pairs
// keyed by the JSON/form name of each field.
func ValidationFields(err error) map[string]string {
	fields := make(map[string]string)

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields["non_field_errors"] = err.Error()
		return fields
	}

	for _, fe := range verrs {
		fields[fe.Field()] = describeTag(fe)
	}

	return fields
}

func FormatValidationError(err error) string {
	fields := ValidationFields(err)
	parts := make([]string, 0, len(fields))
	for field, msg := range fields {
		parts = append(parts, field+": "+msg)
	}
	return strings.Join(parts, "; ")
}

func WriteValidationError(w http.ResponseWriter, err error) {
	JSONError(w, ValidationError(ValidationFields(err)))
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "enter a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "numeric":
		return "must contain only digits"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

func jsonFieldName(jsonTag, formTag, fallback string) string {
	for _, tag := range []string{jsonTag, formTag} {
		name := strings.SplitN(tag, ",", 2)[0]
		if name != "" && name != "-" {
			return name
		}
	}
	return fallback
}
