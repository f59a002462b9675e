// Package validation holds the input policy for account data: email syntax,
// password strength, username length, and free-text sanitizing.
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Policy limits.
const (
	MinPasswordLength = 8
	MinUsernameLength = 3

	// PasswordSpecialChars is the accepted special-character set.
	PasswordSpecialChars = `!@#$%^&*(),.?":{}|<>`
)

// Password policy messages, in the order the rules are checked.
const (
	MsgPasswordTooShort    = "Password must be at least 8 characters long"
	MsgPasswordNoUppercase = "Password must contain at least one uppercase letter"
	MsgPasswordNoLowercase = "Password must contain at least one lowercase letter"
	MsgPasswordNoDigit     = "Password must contain at least one digit"
	MsgPasswordNoSpecial   = "Password must contain at least one special character"
	MsgPasswordValid       = "Password is valid"
	MsgUsernameTooShort    = "Username must be at least 3 characters"
	MsgInvalidEmail        = "Invalid email format"
	MsgCredentialsRequired = "Email and password required"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail reports whether s looks like local@domain.tld.
// Exotic but RFC-valid addresses may be rejected.
func ValidateEmail(s string) bool {
	return emailPattern.MatchString(s)
}

type passwordRule struct {
	ok  func(string) bool
	msg string
}

var passwordRules = []passwordRule{
	{func(s string) bool { return utf8.RuneCountInString(s) >= MinPasswordLength }, MsgPasswordTooShort},
	{func(s string) bool { return containsRuneIn(s, 'A', 'Z') }, MsgPasswordNoUppercase},
	{func(s string) bool { return containsRuneIn(s, 'a', 'z') }, MsgPasswordNoLowercase},
	{func(s string) bool { return containsRuneIn(s, '0', '9') }, MsgPasswordNoDigit},
	{func(s string) bool { return strings.ContainsAny(s, PasswordSpecialChars) }, MsgPasswordNoSpecial},
}

// ValidatePassword checks s against the strength policy and returns the
// message of the first failing rule.
func ValidatePassword(s string) (bool, string) {
	for _, r := range passwordRules {
		if !r.ok(s) {
			return false, r.msg
		}
	}
	return true, MsgPasswordValid
}

// ValidateUsername reports whether an already sanitized username is long enough.
func ValidateUsername(s string) (bool, string) {
	if utf8.RuneCountInString(s) < MinUsernameLength {
		return false, MsgUsernameTooShort
	}
	return true, ""
}

func containsRuneIn(s string, lo, hi rune) bool {
	for _, r := range s {
		if r >= lo && r <= hi {
			return true
		}
	}
	return false
}
