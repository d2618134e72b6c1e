package service

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

const minPasswordLength = 8

// validatePassword checks the password policy and the confirmation in one
// pass, collecting every violation. Returns nil when the password is fine.
func validatePassword(password, confirm string) *ValidationError {
	var violations []string

	if utf8.RuneCountInString(password) < minPasswordLength {
		violations = append(violations, "password must be at least 8 characters")
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	if !hasUpper {
		violations = append(violations, "password must contain an uppercase letter")
	}
	if !hasLower {
		violations = append(violations, "password must contain a lowercase letter")
	}
	if !hasDigit {
		violations = append(violations, "password must contain a digit")
	}
	if !hasSpecial {
		violations = append(violations, "password must contain a special character")
	}

	if password != confirm {
		violations = append(violations, "password confirmation does not match")
	}

	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}

// normalizeEmail lowercases and trims an address so lookups and the unique
// index agree on a single canonical form.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
