// Package logging sanitizes strings before they reach log output or the
// per-column failure report.
package logging

import "regexp"

// RedactedText replaces sensitive values.
const RedactedText = "[REDACTED]"

var (
	// AWS access key IDs (AKIA/ASIA prefix) and anything labeled as a
	// secret or token in key=value form.
	accessKeyPattern = regexp.MustCompile(`\b(?:AKIA|ASIA)[A-Z0-9]{16}\b`)
	secretPattern    = regexp.MustCompile(`(?i)(secret[_-]?(?:access[_-]?)?key|session[_-]?token|password)[=:]\s*[^\s;&,]+`)

	// API keys in key=value form, long enough to be a credential.
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey)[=:]\s*[A-Za-z0-9-_]{16,}`)

	// Bearer tokens, including JWTs.
	bearerPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_.]+`)

	// user:pass@host credentials embedded in URLs.
	urlCredsPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)
)

// Sanitize redacts credentials from a string. Service errors can echo
// request headers or signed URLs, so everything destined for a log line or
// the failure report passes through here.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	s = accessKeyPattern.ReplaceAllString(s, RedactedText)
	s = secretPattern.ReplaceAllString(s, "${1}="+RedactedText)
	s = apiKeyPattern.ReplaceAllString(s, "${1}="+RedactedText)
	s = bearerPattern.ReplaceAllString(s, "Bearer "+RedactedText)
	s = urlCredsPattern.ReplaceAllString(s, "://"+RedactedText+"@"+RedactedText)
	return s
}

// SanitizeError redacts credentials from an error message.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return Sanitize(err.Error())
}
