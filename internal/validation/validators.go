package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	domainauth "github.com/target/aquaops-console/internal/domain/auth"
	apperrors "github.com/target/aquaops-console/internal/errors"
)

// Length limits for the login form.
const (
	MaxUsernameLength = 100
	MinPasswordLength = 4
	MaxPasswordLength = 128
	MaxEmailLength    = 254
)

var phonePattern = regexp.MustCompile(`^\+?[0-9 ()-]{7,20}$`)

// Validator is a function that validates a string value and returns an error message if invalid.
type Validator func(v string) string

// Required validates that a field is not empty and does not exceed maxLen characters.
// Uses rune count for proper Unicode support.
func Required(fieldName string, maxLen int) Validator {
	return func(v string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return fieldName + " is required."
		}
		if utf8.RuneCountInString(v) > maxLen {
			return fmt.Sprintf("%s cannot exceed %d characters.", fieldName, maxLen)
		}
		return ""
	}
}

// RequiredRange validates that a field is not empty and is between minLen and maxLen characters.
// Passwords are not trimmed: surrounding whitespace is significant.
func RequiredRange(fieldName string, minLen, maxLen int) Validator {
	return func(v string) string {
		if strings.TrimSpace(v) == "" {
			return fieldName + " is required."
		}
		n := utf8.RuneCountInString(v)
		if n < minLen || n > maxLen {
			return fmt.Sprintf("%s must be between %d and %d characters.", fieldName, minLen, maxLen)
		}
		return ""
	}
}

// Optional validates that an optional field does not exceed maxLen characters if provided.
func Optional(fieldName string, maxLen int) Validator {
	return func(v string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return ""
		}
		if utf8.RuneCountInString(v) > maxLen {
			return fmt.Sprintf("%s cannot exceed %d characters.", fieldName, maxLen)
		}
		return ""
	}
}

// Email validates an optional e-mail address.
func Email(fieldName string) Validator {
	return func(v string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return ""
		}
		if utf8.RuneCountInString(v) > MaxEmailLength {
			return fmt.Sprintf("%s cannot exceed %d characters.", fieldName, MaxEmailLength)
		}
		addr, err := mail.ParseAddress(v)
		if err != nil || addr.Address != v {
			return "Enter a valid email address."
		}
		return ""
	}
}

// Phone validates an optional phone number.
func Phone(fieldName string) Validator {
	return Pattern(fieldName, phonePattern)
}

// Pattern validates that a field matches the provided regular expression.
func Pattern(fieldName string, re *regexp.Regexp) Validator {
	return func(v string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return ""
		}
		if !re.MatchString(v) {
			return fieldName + " has an invalid format."
		}
		return ""
	}
}

// FieldValidator provides a fluent API for validating multiple fields.
type FieldValidator struct {
	errors map[string]string
	order  []string
}

// New creates a new FieldValidator instance.
func New() *FieldValidator {
	return &FieldValidator{errors: make(map[string]string)}
}

// Validate validates a field with one or more validators.
// It stops at the first error for each field.
func (fv *FieldValidator) Validate(field, value string, validators ...Validator) *FieldValidator {
	for _, v := range validators {
		if err := v(value); err != "" {
			if _, seen := fv.errors[field]; !seen {
				fv.order = append(fv.order, field)
			}
			fv.errors[field] = err
			break
		}
	}
	return fv
}

// Errors returns the accumulated validation errors.
func (fv *FieldValidator) Errors() map[string]string {
	return fv.errors
}

// Err returns the first failing field as a validation AppError, or nil.
func (fv *FieldValidator) Err() error {
	if len(fv.order) == 0 {
		return nil
	}
	field := fv.order[0]
	return apperrors.ValidationField(field, fv.errors[field])
}

// Fields returns the failing field names in validation order.
func (fv *FieldValidator) Fields() []string {
	return slices.Clone(fv.order)
}

// Credentials validates login form input.
func Credentials(c domainauth.Credentials) *FieldValidator {
	return New().
		Validate("username", c.Username, Required("Username", MaxUsernameLength)).
		Validate("password", c.Password, RequiredRange("Password", MinPasswordLength, MaxPasswordLength))
}

// Profile validates the contact fields of a user profile.
func Profile(u domainauth.User) *FieldValidator {
	return New().
		Validate("firstName", u.FirstName, Optional("First name", 100)).
		Validate("lastName", u.LastName, Optional("Last name", 100)).
		Validate("email", u.Email, Email("Email")).
		Validate("phone", u.Phone, Phone("Phone"))
}
