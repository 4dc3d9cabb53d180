package cryptox

import "regexp"

// RedactionMarker replaces every sensitive match.
const RedactionMarker = "[REDACTED]"

// sensitiveTerms match anywhere inside a word and take the whole word with
// them, so "auth_token" and "APIKey" are both caught.
var sensitiveTerms = []string{
	"password",
	"passwd",
	"token",
	"secret",
	"credential",
	"auth",
	"key",
}

var defaultRedactor = NewRedactor(sensitiveTerms...)

// Redactor replaces configured terms in free text with RedactionMarker.
type Redactor struct {
	pattern *regexp.Regexp
}

// NewRedactor builds a case-insensitive Redactor over terms. Terms are matched
// literally.
func NewRedactor(terms ...string) *Redactor {
	if len(terms) == 0 {
		return &Redactor{}
	}

	expr := `(?i)\w*(?:`
	for i, term := range terms {
		if i > 0 {
			expr += "|"
		}
		expr += regexp.QuoteMeta(term)
	}
	expr += `)\w*`

	return &Redactor{pattern: regexp.MustCompile(expr)}
}

// Redact returns msg with every match replaced.
func (r *Redactor) Redact(msg string) string {
	if r == nil || r.pattern == nil || msg == "" {
		return msg
	}
	return r.pattern.ReplaceAllString(msg, RedactionMarker)
}

// Redact applies the default term set.
func Redact(msg string) string {
	return defaultRedactor.Redact(msg)
}
