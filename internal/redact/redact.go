// Package redact removes sensitive information from text. It serves two
// callers: the redact tool pipeline, which scrubs personal data from
// generated document text, and the logging/error paths, which strip
// credentials before anything reaches a log line or an API response.
package redact

import "regexp"

// Placeholders substituted for matched personal data.
const (
	EmailPlaceholder = "[REDACTED_EMAIL]"
	PhonePlaceholder = "[REDACTED_PHONE]"
	SSNPlaceholder   = "[REDACTED_SSN]"
	CardPlaceholder  = "[REDACTED_CARD]"

	credentialPlaceholder = "[REDACTED_CREDENTIAL]"
	keyPlaceholder        = "[REDACTED_KEY]"
	jwtPlaceholder        = "[REDACTED_JWT]"
)

// rule couples a compiled pattern with its placeholder and the name
// reported in redaction counts.
type rule struct {
	name        string
	pattern     *regexp.Regexp
	placeholder string
}

// piiRules are applied in order; card numbers go before phone numbers so
// a grouped card number is never carved up as phone fragments.
var piiRules = []rule{
	{
		name:        "email",
		pattern:     regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		placeholder: EmailPlaceholder,
	},
	{
		name:        "card",
		pattern:     regexp.MustCompile(`\b(?:\d{4}[ -]?){3}\d{4}\b`),
		placeholder: CardPlaceholder,
	},
	{
		name:        "ssn",
		pattern:     regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
		placeholder: SSNPlaceholder,
	},
	{
		name:        "phone",
		pattern:     regexp.MustCompile(`(?:\+?1[ .-]?)?(?:\(\d{3}\)[ .-]?|\b\d{3}[ .-])\d{3}[ .-]\d{4}\b`),
		placeholder: PhonePlaceholder,
	},
}

// credentialRules scrub secrets from log and error text.
var credentialRules = []rule{
	{
		name:        "connection_string",
		pattern:     regexp.MustCompile(`(?i)(postgres|postgresql|mysql|mongodb|amqp|redis)://[^@\s]+@`),
		placeholder: credentialPlaceholder,
	},
	{
		name:        "password",
		pattern:     regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]['"]?)[^'"&\s]{3,}`),
		placeholder: credentialPlaceholder,
	},
	{
		name:        "api_key",
		pattern:     regexp.MustCompile(`(?i)(api[_-]?key|secret|token)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`),
		placeholder: keyPlaceholder,
	},
	{
		name:        "jwt",
		pattern:     regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`),
		placeholder: jwtPlaceholder,
	},
}

// PII scrubs personal data from text and reports how many matches of
// each kind were replaced. The returned map is keyed by rule name
// (email, card, ssn, phone) and contains only kinds that occurred.
func PII(input string) (string, map[string]int) {
	counts := make(map[string]int)
	if input == "" {
		return input, counts
	}

	result := input
	for _, r := range piiRules {
		matches := r.pattern.FindAllStringIndex(result, -1)
		if len(matches) == 0 {
			continue
		}
		counts[r.name] = len(matches)
		result = r.pattern.ReplaceAllString(result, r.placeholder)
	}
	return result, counts
}

// String scrubs credentials and tokens from a log or error message.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range credentialRules {
		result = r.pattern.ReplaceAllString(result, r.placeholder)
	}
	return result
}

// Error scrubs an error's message. A nil error yields an empty string.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
