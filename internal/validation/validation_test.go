package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"":                  "",
		"Jane":              "Jane",
		"  Jane  ":          "Jane",
		"Ja ne":             "Jane",
		"a\tb\nc\r d":       "abcd",
		"98765 43210":       "9876543210",
		"jane @ x.com":      "jane@x.com",
		"\u00a0nb\u00a0sp ": "nbsp",
	}
	for in, want := range cases {
		assert.Equal(t, want, Sanitize(in), "input %q", in)
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	for _, s := range []string{"", " a b ", "\t\n", "abc", " x\u3000y "} {
		once := Sanitize(s)
		assert.Equal(t, once, Sanitize(once))
	}
}

func TestValidName(t *testing.T) {
	assert.True(t, ValidName("Jane"))
	assert.True(t, ValidName("o"))
	assert.False(t, ValidName(""))
	assert.False(t, ValidName("O'Brien"))
	assert.False(t, ValidName("Jane2"))
	assert.False(t, ValidName("Mary Ann"))
	assert.False(t, ValidName("Zoë"))
}

func TestValidRollNumberAndTransactionID(t *testing.T) {
	assert.True(t, ValidRollNumber("A1"))
	assert.True(t, ValidRollNumber("2021CS042"))
	assert.False(t, ValidRollNumber("AB-123"))
	assert.False(t, ValidRollNumber(""))
	assert.True(t, ValidTransactionID("TX123"))
	assert.False(t, ValidTransactionID("TX_123"))
}

func TestValidPhone(t *testing.T) {
	assert.True(t, ValidPhone("9876543210"))
	assert.False(t, ValidPhone("12345"))
	assert.False(t, ValidPhone("98765432100"))
	assert.False(t, ValidPhone("+987654321"))
	assert.False(t, ValidPhone("98765x3210"))
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("jane@x.com"))
	assert.True(t, ValidEmail("j.doe+acm@mail.college.edu"))
	assert.False(t, ValidEmail("a@b"))
	assert.False(t, ValidEmail("a@@b.com"))
	assert.False(t, ValidEmail("ab.com"))
	assert.False(t, ValidEmail("a b@c.com"))
	assert.False(t, ValidEmail(""))
}

func TestFieldErrorsCarryDistinctMessages(t *testing.T) {
	errs := []error{
		Name("firstName", "First name", "J4ne"),
		RollNumber("AB-1"),
		Phone("123"),
		Email("a@b"),
		TransactionID("T-1"),
	}
	seen := map[string]bool{}
	for _, err := range errs {
		var verr *Error
		if assert.True(t, errors.As(err, &verr)) {
			assert.NotEmpty(t, verr.Field)
			assert.False(t, seen[verr.Message], "duplicate message %q", verr.Message)
			seen[verr.Message] = true
		}
	}
}

func TestFirst(t *testing.T) {
	assert.NoError(t, First(nil, nil))
	err := First(nil, Phone("1"), Email("a@b"))
	var verr *Error
	assert.True(t, errors.As(err, &verr))
	assert.Equal(t, "phone", verr.Field)
}
