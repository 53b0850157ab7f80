package validator

import (
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"unicode"
)

// Required fails on empty or whitespace-only values.
func Required(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: ValidationError{Field: field, Message: "is required"},
	}
}

// ValidEmail checks the value parses as an RFC 5322 address with a dotted
// domain, which is what every mail provider this service talks to expects.
func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool {
			if strings.TrimSpace(value) == "" {
				return false
			}
			addr, err := mail.ParseAddress(value)
			if err != nil || addr.Address != value {
				return false
			}
			_, domain, ok := strings.Cut(addr.Address, "@")
			if !ok || !strings.Contains(domain, ".") {
				return false
			}
			return !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
		},
		Error: ValidationError{Field: field, Message: "must be a valid email address"},
	}
}

// MinLen fails when the value is shorter than n runes.
func MinLen(field, value string, n int) Rule {
	return Rule{
		Check: func() bool { return len([]rune(value)) >= n },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must be at least %d characters", n)},
	}
}

// OneOf fails when the value is not in the allowed set.
func OneOf(field, value string, allowed ...string) Rule {
	return Rule{
		Check: func() bool { return slices.Contains(allowed, value) },
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
		},
	}
}

// StrongPassword enforces the service's password policy: at least 8
// characters with both letters and digits.
func StrongPassword(field, value string) Rule {
	return Rule{
		Check: func() bool {
			if len([]rune(value)) < 8 {
				return false
			}
			var hasLetter, hasDigit bool
			for _, r := range value {
				switch {
				case unicode.IsLetter(r):
					hasLetter = true
				case unicode.IsDigit(r):
					hasDigit = true
				}
			}
			return hasLetter && hasDigit
		},
		Error: ValidationError{
			Field:   field,
			Message: "must be at least 8 characters and contain letters and digits",
		},
	}
}
