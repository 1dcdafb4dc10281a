package services

import (
	"errors"
	"strings"
)

// Sentinel errors for the failure classes the chat controller reacts to.
// Classification happens once, at the Gemini adapter boundary; everything
// above it switches on errors.Is instead of inspecting message text.
var (
	// ErrQuotaExceeded means the API rejected the call for quota or rate
	// limit reasons. Triggers the one-time fallback-model switch.
	ErrQuotaExceeded = errors.New("model quota exceeded")

	// ErrSafetyBlocked means the safety filter refused to answer.
	ErrSafetyBlocked = errors.New("response blocked by safety filter")
)

// classifyModelError wraps an error from the Gemini API with the matching
// sentinel. The API carries no structured code we can rely on, so this is
// the one place substring inspection is allowed.
func classifyModelError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "resource_exhausted") || strings.Contains(msg, "429"):
		return errors.Join(ErrQuotaExceeded, err)
	case strings.Contains(msg, "safety") || strings.Contains(msg, "blocked"):
		return errors.Join(ErrSafetyBlocked, err)
	default:
		return err
	}
}

// truncateError shortens an error message for embedding in a user-facing
// diagnostic string.
func truncateError(err error, limit int) string {
	msg := err.Error()
	truncated := truncateChars(msg, limit)
	if truncated != msg {
		truncated += "..."
	}
	return truncated
}
