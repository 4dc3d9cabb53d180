package password

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinLength is the minimum accepted length in characters.
const MinLength = 8

// SpecialCharacters is the set that satisfies the special-character rule.
const SpecialCharacters = "!@#$%^&*()-_=+[]{};:'\",.<>/?\\|`~"

// Reason identifies the first policy rule a candidate failed.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonTooShort
	ReasonNoUpper
	ReasonNoLower
	ReasonNoDigit
	ReasonNoSpecial
)

// String returns a stable machine-readable code.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "ok"
	case ReasonTooShort:
		return "too_short"
	case ReasonNoUpper:
		return "missing_uppercase"
	case ReasonNoLower:
		return "missing_lowercase"
	case ReasonNoDigit:
		return "missing_digit"
	case ReasonNoSpecial:
		return "missing_special"
	default:
		return "unknown"
	}
}

// Message returns user-facing text for r. It survives error redaction intact.
func (r Reason) Message() string {
	switch r {
	case ReasonNone:
		return ""
	case ReasonTooShort:
		return "Passphrase must be at least 8 characters long"
	case ReasonNoUpper:
		return "Passphrase must contain an uppercase letter"
	case ReasonNoLower:
		return "Passphrase must contain a lowercase letter"
	case ReasonNoDigit:
		return "Passphrase must contain a digit"
	case ReasonNoSpecial:
		return "Passphrase must contain a special character"
	default:
		return "Passphrase does not meet requirements"
	}
}

// Result is the outcome of Validate. Reason is ReasonNone when Valid is true.
type Result struct {
	Valid  bool
	Reason Reason
}

// Validate checks pw against the policy rules in order and stops at the first failure.
func Validate(pw string) Result {
	if utf8.RuneCountInString(pw) < MinLength {
		return Result{Reason: ReasonTooShort}
	}

	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(SpecialCharacters, r):
			special = true
		}
	}

	switch {
	case !upper:
		return Result{Reason: ReasonNoUpper}
	case !lower:
		return Result{Reason: ReasonNoLower}
	case !digit:
		return Result{Reason: ReasonNoDigit}
	case !special:
		return Result{Reason: ReasonNoSpecial}
	}
	return Result{Valid: true}
}
