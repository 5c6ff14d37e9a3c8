package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Init configures the global validator used by Gin's binding.
// - Uses JSON/form tag names in errors.
// - Registers alias tags shared by request DTOs.
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		Register(v)
	}
}

// Register applies the project tag name func and aliases to v.
func Register(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	v.RegisterAlias("pwd", "min=6")        // password minimum length
	v.RegisterAlias("personname", "min=3") // display name minimum length
	v.RegisterAlias("pksstatus", "oneof=PENDING APPROVED REJECTED")
	v.RegisterAlias("role", "oneof=USER ADMIN")
}

// ToDetails converts validation/binding errors into a map[field]message suitable for API error.details.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	// Invalid JSON payloads
	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &se) || errors.As(err, &ute) {
		return map[string]string{"payload": "invalid json"}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fe.Field()] = formatFieldError(fe)
		}
		return out
	}

	return map[string]string{"payload": "invalid payload"}
}

func formatFieldError(fe validator.FieldError) string {
	tag := fe.Tag()
	param := fe.Param()

	switch tag {
	case "required":
		return "is required"
	case "required_without":
		return "is required when " + param + " is not present"
	case "email":
		return "must be a valid email"
	case "url":
		return "must be a valid URL"
	case "numeric", "number":
		return "must be numeric"
	case "gt", "gte":
		return "must be at least " + param
	case "lt", "lte":
		return "must be at most " + param
	case "min":
		if isStringKind(fe.Kind()) {
			return fmt.Sprintf("min length %s", param)
		}
		return "must be at least " + param
	case "max":
		if isStringKind(fe.Kind()) {
			return fmt.Sprintf("max length %s", param)
		}
		return "must be at most " + param
	case "len":
		return "length must be " + param
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")

	// custom aliases
	case "pwd":
		return "min length 6"
	case "personname":
		return "min length 3"
	case "pksstatus":
		return "must be one of: PENDING, APPROVED, REJECTED"
	case "role":
		return "must be one of: USER, ADMIN"

	default:
		if param != "" {
			return fmt.Sprintf("validation failed for '%s' with parameter '%s'", tag, param)
		}
		return fmt.Sprintf("validation failed for '%s'", tag)
	}
}

func isStringKind(k reflect.Kind) bool {
	return k == reflect.String
}
