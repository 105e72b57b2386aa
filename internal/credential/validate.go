package credential

import (
	"errors"
	"regexp"
	"unicode"
	"unicode/utf8"
)

// ErrValidation matches every *ValidationError via errors.Is.
var ErrValidation = errors.New("validation error")

// ValidationError reports which input was rejected and why.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

const (
	MinUsernameLength = 3
	MinPasswordLength = 6
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

func ValidateUsername(username string) error {
	if utf8.RuneCountInString(username) < MinUsernameLength {
		return &ValidationError{Field: "username", Reason: "must be at least 3 characters long"}
	}
	if !usernamePattern.MatchString(username) {
		return &ValidationError{Field: "username", Reason: "may contain only letters, digits and _"}
	}
	return nil
}

func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return &ValidationError{Field: "password", Reason: "must be at least 6 characters long"}
	}

	var hasDigit, hasUpper bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsUpper(r):
			hasUpper = true
		}
	}
	if !hasDigit {
		return &ValidationError{Field: "password", Reason: "must contain at least one digit"}
	}
	if !hasUpper {
		return &ValidationError{Field: "password", Reason: "must contain at least one uppercase letter"}
	}
	return nil
}

// ValidateEmail accepts the empty string, since email is optional.
func ValidateEmail(email string) error {
	if email == "" {
		return nil
	}
	if !emailPattern.MatchString(email) {
		return &ValidationError{Field: "email", Reason: "is not a valid address"}
	}
	return nil
}
