package models

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxNameLength          = 50
	minRegisterPasswordLen = 8
	minLoginPasswordLen    = 6
	maxAge                 = 150
)

// ValidationError reports a single invalid input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

var allowedGenders = map[string]struct{}{
	"male":   {},
	"female": {},
	"other":  {},
}

// NormalizeEmail parses an address and returns its lower-cased form.
func NormalizeEmail(raw string) (string, error) {
	parsed, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", invalid("email", "invalid email format")
	}
	return strings.ToLower(parsed.Address), nil
}

func ValidateUsername(username string) error {
	trimmed := strings.TrimSpace(username)
	if trimmed == "" {
		return invalid("username", "username is required")
	}
	if utf8.RuneCountInString(trimmed) > maxNameLength {
		return invalid("username", "username must be at most %d characters", maxNameLength)
	}
	return nil
}

// ValidateNewPassword enforces the registration and reset complexity rules.
func ValidateNewPassword(field, password string) error {
	if len(password) < minRegisterPasswordLen {
		return invalid(field, "password must be at least %d characters long", minRegisterPasswordLen)
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper {
		return invalid(field, "password must contain at least one uppercase letter")
	}
	if !hasLower {
		return invalid(field, "password must contain at least one lowercase letter")
	}
	if !hasDigit {
		return invalid(field, "password must contain at least one digit")
	}
	return nil
}

func ValidateLoginPassword(password string) error {
	if len(password) < minLoginPasswordLen {
		return invalid("password", "password must be at least %d characters long", minLoginPasswordLen)
	}
	return nil
}

// Validate checks every present field and normalizes email in place.
func (p *UserPatch) Validate() error {
	if p.IsEmpty() {
		return invalid("", "no fields provided for update")
	}
	if p.Username != nil {
		if err := ValidateUsername(*p.Username); err != nil {
			return err
		}
		trimmed := strings.TrimSpace(*p.Username)
		p.Username = &trimmed
	}
	if p.Email != nil {
		email, err := NormalizeEmail(*p.Email)
		if err != nil {
			return err
		}
		p.Email = &email
	}
	if p.FirstName != nil && utf8.RuneCountInString(*p.FirstName) > maxNameLength {
		return invalid("first_name", "first_name must be at most %d characters", maxNameLength)
	}
	if p.LastName != nil && utf8.RuneCountInString(*p.LastName) > maxNameLength {
		return invalid("last_name", "last_name must be at most %d characters", maxNameLength)
	}
	if p.Gender != nil {
		gender := strings.ToLower(strings.TrimSpace(*p.Gender))
		if _, ok := allowedGenders[gender]; !ok {
			return invalid("gender", "gender must be one of male, female, other")
		}
		p.Gender = &gender
	}
	if p.Age != nil && (*p.Age < 0 || *p.Age > maxAge) {
		return invalid("age", "age must be between 0 and %d", maxAge)
	}
	if p.HeightCM != nil && *p.HeightCM < 0 {
		return invalid("height_cm", "height_cm must be 0 or greater")
	}
	if p.WeightKG != nil && *p.WeightKG < 0 {
		return invalid("weight_kg", "weight_kg must be 0 or greater")
	}
	return nil
}
