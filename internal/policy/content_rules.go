package policy

import (
	"encoding/json"
	"errors"
	"strings"
)

var ErrContentPolicyViolation = errors.New("content policy violation")

const maxFieldLength = 8000

type Violation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PolicyViolationError struct {
	Violations []Violation
}

func (e *PolicyViolationError) Error() string {
	if len(e.Violations) == 0 {
		return ErrContentPolicyViolation.Error()
	}
	return ErrContentPolicyViolation.Error() + ": " + e.Violations[0].Message
}

func (e *PolicyViolationError) Unwrap() error {
	return ErrContentPolicyViolation
}

// contentRule reports a violation when match accepts the non-empty fields of
// a request. lowered is every field joined and lowercased.
type contentRule struct {
	violation Violation
	match     func(fields []string, lowered string) bool
}

var contentRules = []contentRule{
	{
		violation: Violation{Code: "payload_too_large", Message: "one or more text fields exceed policy size limits"},
		match: func(fields []string, _ string) bool {
			for _, field := range fields {
				if len(field) > maxFieldLength {
					return true
				}
			}
			return false
		},
	},
	{
		violation: Violation{Code: "blocked_content", Message: "request asks for content blocked by policy"},
		match:     containsAny("phishing", "ransomware", "malware", "fake reviews", "fake testimonials", "impersonate", "defamatory"),
	},
	{
		violation: Violation{Code: "prompt_injection", Message: "request tries to override the writing instructions"},
		match:     containsAny("ignore previous instructions", "ignore all previous instructions", "disregard the system prompt"),
	},
}

func containsAny(tokens ...string) func([]string, string) bool {
	return func(_ []string, lowered string) bool {
		for _, token := range tokens {
			if strings.Contains(lowered, token) {
				return true
			}
		}
		return false
	}
}

// EnforceContentPolicy checks every string inside a JSON payload. Payloads
// that are not JSON are left to the caller's own validation.
func EnforceContentPolicy(payload json.RawMessage) error {
	if strings.TrimSpace(string(payload)) == "" {
		return nil
	}
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil
	}
	return enforce(collectStrings(decoded, nil))
}

// EnforceText checks free text such as a custom instruction body.
func EnforceText(values ...string) error {
	return enforce(values)
}

func enforce(values []string) error {
	fields := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			fields = append(fields, value)
		}
	}
	if len(fields) == 0 {
		return nil
	}

	lowered := strings.ToLower(strings.Join(fields, "\n"))
	var violations []Violation
	for _, rule := range contentRules {
		if rule.match(fields, lowered) {
			violations = append(violations, rule.violation)
		}
	}
	if len(violations) == 0 {
		return nil
	}
	return &PolicyViolationError{Violations: violations}
}

func collectStrings(value any, out []string) []string {
	switch typed := value.(type) {
	case map[string]any:
		for _, child := range typed {
			out = collectStrings(child, out)
		}
	case []any:
		for _, child := range typed {
			out = collectStrings(child, out)
		}
	case string:
		out = append(out, typed)
	}
	return out
}
