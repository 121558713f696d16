// Package security provides validation, sanitization, and limits for the jobs package.
package security

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jdziat/simple-async-jobs/pkg/core"
)

// Security limits and configuration
const (
	// MaxJobNameLength is the maximum length for job names
	MaxJobNameLength = 255

	// MaxJobArgsSize is the maximum size in bytes for job arguments (1MB)
	MaxJobArgsSize = 1 << 20

	// MaxExceptionLength is the maximum length for a stored exception summary
	MaxExceptionLength = 4096

	// MaxTracebackLength is the maximum length for a stored traceback
	MaxTracebackLength = 64 << 10

	// MaxGroupReferenceLength is the maximum length for group references
	MaxGroupReferenceLength = 255

	// MaxRetentionDays caps the retention window (ten years)
	MaxRetentionDays = 3650
)

// validJobName matches alphanumeric, hyphens, underscores, and dots
var validJobName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_\-\.]*$`)

// ValidateJobName validates a job name
func ValidateJobName(name string) error {
	if name == "" {
		return core.ErrInvalidJobName
	}
	if len(name) > MaxJobNameLength {
		return core.ErrJobNameTooLong
	}
	if !validJobName.MatchString(name) {
		return core.ErrInvalidJobName
	}
	return nil
}

// ValidateGroupReference validates a group reference. References are opaque
// labels, so only emptiness, length and control characters are checked.
func ValidateGroupReference(ref string) error {
	if strings.TrimSpace(ref) == "" || len(ref) > MaxGroupReferenceLength {
		return core.ErrInvalidGroupReference
	}
	for _, r := range ref {
		if r < 32 || r == 127 {
			return core.ErrInvalidGroupReference
		}
	}
	return nil
}

// SanitizeErrorMessage truncates and sanitizes an exception summary for storage
func SanitizeErrorMessage(msg string) string {
	return sanitize(msg, MaxExceptionLength)
}

// SanitizeTraceback truncates and sanitizes a traceback for storage
func SanitizeTraceback(trace string) string {
	return sanitize(trace, MaxTracebackLength)
}

func sanitize(msg string, limit int) string {
	if msg == "" {
		return ""
	}

	// Remove any null bytes or control characters (except newlines and tabs)
	var sanitized strings.Builder
	sanitized.Grow(len(msg))

	for _, r := range msg {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			sanitized.WriteRune(r)
		}
	}

	result := sanitized.String()

	if utf8.RuneCountInString(result) > limit {
		runes := []rune(result)
		result = string(runes[:limit-3]) + "..."
	}

	return result
}

// ClampRetentionDays returns fallback for non-positive values and caps the
// result at MaxRetentionDays.
func ClampRetentionDays(days, fallback int) int {
	if days <= 0 {
		days = fallback
	}
	if days > MaxRetentionDays {
		return MaxRetentionDays
	}
	return days
}
