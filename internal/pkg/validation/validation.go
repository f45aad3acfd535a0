package validation

import (
	"regexp"
	"strings"
	"unicode"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Letters, spaces, hyphens, apostrophes and dots (ranks such as "Lt. Col.").
var personNameRe = regexp.MustCompile(`^[A-Za-z\s\-'.]+$`)

// Base and asset names: letters, digits, spaces and a little punctuation.
var labelRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9\s\-_/.()#]*$`)

const maxLabelLen = 120

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsValidPassword requires at least 8 characters with a letter, a digit and a
// special character.
func IsValidPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	hasLetter, hasDigit, hasSpecial := false, false, false
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	return hasLetter && hasDigit && hasSpecial
}

func IsValidFullname(fullname string) bool {
	return fullname != "" && personNameRe.MatchString(fullname)
}

// IsValidLabel reports whether s is usable as a base or asset name.
func IsValidLabel(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && len(s) <= maxLabelLen && labelRe.MatchString(s)
}

// NormalizeLabel trims and collapses inner whitespace so "Fort  Alpha " and
// "Fort Alpha" address the same base.
func NormalizeLabel(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
