package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// userIDPattern is the charset the purchase core relies on for user
// identifiers. Enforced here, at the edge, so the core never sees a
// malformed id.
var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// New creates a new validator instance with custom validations registered.
// This ensures consistent validation across the application and tests.
func New() *validator.Validate {
	v := validator.New()

	// Register custom "userid" validator - restricts user identifiers to
	// [A-Za-z0-9_-]. Length and presence are covered by the standard
	// "required" and "max" tags.
	_ = v.RegisterValidation("userid", func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)
		if !ok {
			return true // Not a string, let other validators handle it
		}
		return userIDPattern.MatchString(str)
	})

	return v
}
