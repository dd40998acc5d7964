// File: internal/usecase/sanitize.go
package usecase

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"content-studio/internal/domain"
	"content-studio/internal/domain/ports/adapter"
)

// Stream-side error codes carried on the error event and the job record.
const (
	CodeProviderBusy       = "PROVIDER_BUSY"
	CodeProviderError      = "PROVIDER_ERROR"
	CodeQueueTimeout       = "QUEUE_TIMEOUT"
	CodeExtractionFailed   = "EXTRACTION_FAILED"
	CodeInternal           = "INTERNAL_ERROR"
	CodeClientDisconnected = "CLIENT_DISCONNECTED"
	CodeStale              = "STALE"
)

const maxErrorMessage = 300

type redaction struct {
	re   *regexp.Regexp
	with string
}

// Order matters: whole URLs/DSNs go before bare hosts, and addresses with a
// port go before the generic host:port rule.
var redactions = []redaction{
	{regexp.MustCompile(`(?i)\b[a-z][a-z0-9+.\-]*://[^\s"'<>]+`), "[url]"},
	{regexp.MustCompile(`(?i)\bbearer\s+[a-z0-9._\-~+/]+=*`), "Bearer [redacted]"},
	{regexp.MustCompile(`(?i)\b(api[_-]?key|key|token|secret|password|passwd|pwd|host|hostaddr|user|dbname|database)\s*[=:]\s*[^\s&,;]+`), "${1}=[redacted]"},
	{regexp.MustCompile(`\bAIza[0-9A-Za-z_\-]{10,}`), "[redacted]"},
	{regexp.MustCompile(`\bsk-[0-9A-Za-z_\-]{8,}`), "[redacted]"},
	{regexp.MustCompile(`(?i)\blookup\s+\S+`), "lookup [host]"},
	{regexp.MustCompile(`\[[0-9a-fA-F:.%]+\](?::\d+)?`), "[host]"},
	{regexp.MustCompile(`\b\d{1,3}(?:\.\d{1,3}){3}(?::\d+)?\b`), "[host]"},
	{regexp.MustCompile(`(?i)\blocalhost\b(?::\d+)?`), "[host]"},
	{regexp.MustCompile(`(?i)\b(?:[a-z0-9](?:[a-z0-9\-]{0,61}[a-z0-9])?\.)+(?:com|net|org|io|dev|internal|local|cloud|ai|app)(?::\d+)?\b`), "[host]"},
	{regexp.MustCompile(`(?i)\b[a-z0-9][a-z0-9.\-]*:\d{2,5}\b`), "[host]"},
}

// SanitizeMessage removes connection strings, hostnames and credential-like
// substrings, then truncates to a fixed length.
func SanitizeMessage(msg string) string {
	for _, r := range redactions {
		msg = r.re.ReplaceAllString(msg, r.with)
	}
	msg = strings.Join(strings.Fields(msg), " ")
	if rs := []rune(msg); len(rs) > maxErrorMessage {
		msg = string(rs[:maxErrorMessage]) + "..."
	}
	return msg
}

// describeFailure maps a relay failure to a user-facing message and code.
func describeFailure(err error) (string, string) {
	var pe *adapter.ProviderError
	switch {
	case errors.Is(err, domain.ErrAcquireTimeout):
		return "the generation service is busy, please try again shortly", CodeQueueTimeout
	case errors.Is(err, context.Canceled):
		return "client disconnected", CodeClientDisconnected
	case errors.Is(err, domain.ErrExtractionFailed):
		return SanitizeMessage(err.Error()), CodeExtractionFailed
	case errors.As(err, &pe):
		if pe.Retryable() {
			return "the AI provider is overloaded, please try again later", CodeProviderBusy
		}
		return SanitizeMessage("AI provider error: " + pe.Error()), CodeProviderError
	case errors.Is(err, context.DeadlineExceeded):
		return "the AI provider did not respond in time", CodeProviderError
	default:
		return SanitizeMessage(err.Error()), CodeInternal
	}
}
