package policy

import (
	"regexp"
	"strings"
)

type piiRule struct {
	kind    string
	pattern *regexp.Regexp
	replace func(match string) string
}

func constant(replacement string) func(string) string {
	return func(string) string { return replacement }
}

// Order matters: card numbers must be masked before the looser phone
// pattern swallows them.
var piiRules = []piiRule{
	{
		kind:    "email",
		pattern: regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`),
		replace: constant("[email_redacted]"),
	},
	{
		kind:    "card",
		pattern: regexp.MustCompile(`\b(?:\d[ -]*?){13,16}\b`),
		replace: maskCardNumber,
	},
	{
		kind:    "ssn",
		pattern: regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
		replace: constant("***-**-****"),
	},
	{
		kind:    "phone",
		pattern: regexp.MustCompile(`(?:\+?\d[\d()\-\s.]{7,}\d)`),
		replace: constant("[phone_redacted]"),
	},
}

// Redaction is the result of masking personal data in a text.
type Redaction struct {
	Text  string
	Kinds []string
}

// RedactPII masks contact data and identifiers and reports which kinds were
// found.
func RedactPII(value string) Redaction {
	result := Redaction{Text: value}
	for _, rule := range piiRules {
		masked := rule.pattern.ReplaceAllStringFunc(result.Text, rule.replace)
		if masked != result.Text {
			result.Kinds = append(result.Kinds, rule.kind)
			result.Text = masked
		}
	}
	return result
}

// MaskPIIString redacts personal data before text is stored or sent to a
// model.
func MaskPIIString(value string) string {
	return RedactPII(value).Text
}

func maskCardNumber(value string) string {
	var digits strings.Builder
	for _, char := range value {
		if char >= '0' && char <= '9' {
			digits.WriteRune(char)
		}
	}
	if digits.Len() < 13 {
		return value
	}
	all := digits.String()
	return "**** **** **** " + all[len(all)-4:]
}
