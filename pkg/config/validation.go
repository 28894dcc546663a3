package config

import (
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
// Returns an error describing the first validation failure.
func Validate(cfg *Config) error {
	// Run struct tag validation
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	// Custom validation rules that can't be expressed in tags
	return validateCustomRules(cfg)
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	seen := make(map[string]string)
	return validateRoutes("routes", "", cfg.Routes, seen)
}

// validateRoutes checks that every leaf route names a handler and that no
// two routes flatten to the same path.
func validateRoutes(field, prefix string, routes []RouteConfig, seen map[string]string) error {
	for i, route := range routes {
		at := fmt.Sprintf("%s[%d]", field, i)
		path := prefix + route.Path

		if len(route.Routes) == 0 && route.Handler == "" {
			return fmt.Errorf("%s: route %q must name a handler", at, path)
		}
		if route.Handler != "" {
			if prev, ok := seen[path]; ok {
				return fmt.Errorf("%s: duplicate route %q (first defined at %s)", at, path, prev)
			}
			seen[path] = at
		}
		if err := validateRoutes(at+".routes", path, route.Routes, seen); err != nil {
			return err
		}
	}
	return nil
}

// validateValue validates a decoded middleware configuration.
// Values that are not structs carry no validation tags and always pass.
func validateValue(v any) error {
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Struct {
		return nil
	}
	if err := validate.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
