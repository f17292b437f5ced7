// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package auth

import (
	"fmt"
	"html"
	"strings"
	"unicode"

	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
)

// maxDisplayNameLen bounds sanitized display names.
const maxDisplayNameLen = 50

// ValidatePassword enforces the account password policy: at least 8
// characters with an uppercase letter, a lowercase letter, a digit, and a
// special character.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", models.ErrInvalid)
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return fmt.Errorf("%w: password must contain upper, lower, digit, and special characters", models.ErrInvalid)
	}
	return nil
}

// SanitizeDisplayName strips markup, escapes HTML entities, collapses
// whitespace, and truncates to 50 characters.
func SanitizeDisplayName(name string) string {
	var b strings.Builder
	inTag := false
	for _, r := range name {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	clean := html.EscapeString(strings.Join(strings.Fields(b.String()), " "))
	runes := []rune(clean)
	if len(runes) > maxDisplayNameLen {
		runes = runes[:maxDisplayNameLen]
	}
	return string(runes)
}
