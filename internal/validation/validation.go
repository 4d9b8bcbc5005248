// Package validation sanitizes and checks attendee-submitted registration fields.
package validation

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Error is a user-facing validation failure for a single field.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string { return e.Message }

// ErrMissingFields is returned before any format check when a required field is absent.
var ErrMissingFields = &Error{Message: "All fields are required"}

// looseEmail is a structural check: a single '@', a dot in the domain, no whitespace.
var looseEmail = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("looseemail", func(fl validator.FieldLevel) bool {
		return looseEmail.MatchString(fl.Field().String())
	})
	return v
}

// Sanitize removes every whitespace character from s, not only the edges.
func Sanitize(s string) string {
	if strings.IndexFunc(s, unicode.IsSpace) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// ValidName reports whether s is one or more ASCII letters.
func ValidName(s string) bool { return validate.Var(s, "required,alpha") == nil }

// ValidRollNumber reports whether s is one or more ASCII letters or digits.
func ValidRollNumber(s string) bool { return validate.Var(s, "required,alphanum") == nil }

// ValidTransactionID reports whether s is one or more ASCII letters or digits.
func ValidTransactionID(s string) bool { return validate.Var(s, "required,alphanum") == nil }

// ValidPhone reports whether s is exactly ten digits.
func ValidPhone(s string) bool { return validate.Var(s, "required,len=10,number") == nil }

// ValidEmail is a permissive structural email check, not RFC 5322.
func ValidEmail(s string) bool { return validate.Var(s, "required,looseemail") == nil }

// Name checks a first or last name; label is used in the message.
func Name(field, label, s string) error {
	if !ValidName(s) {
		return &Error{Field: field, Message: label + " must contain only letters"}
	}
	return nil
}

// RollNumber checks a roll number.
func RollNumber(s string) error {
	if !ValidRollNumber(s) {
		return &Error{Field: "rollNumber", Message: "Roll number must contain only letters and numbers"}
	}
	return nil
}

// Phone checks a phone number.
func Phone(s string) error {
	if !ValidPhone(s) {
		return &Error{Field: "phone", Message: "Phone number must be exactly 10 digits"}
	}
	return nil
}

// Email checks an email address.
func Email(s string) error {
	if !ValidEmail(s) {
		return &Error{Field: "email", Message: "Please enter a valid email address"}
	}
	return nil
}

// TransactionID checks a payment transaction reference.
func TransactionID(s string) error {
	if !ValidTransactionID(s) {
		return &Error{Field: "transactionId", Message: "Transaction ID must contain only letters and numbers"}
	}
	return nil
}

// First returns the first non-nil error.
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
