package session

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxEventNameSize bounds event names received from clients when no
// other limit is configured.
const DefaultMaxEventNameSize = 256

var (
	ErrInvalidEvent    = errors.New("invalid event")
	ErrEventNameTooBig = errors.New("event name exceeds maximum allowed size")
	ErrInvalidUTF8     = errors.New("event name contains invalid UTF-8 sequences")
)

// SanitizeEventName rejects names longer than limit bytes or with malformed
// UTF-8 and strips control characters, so that names are safe to log and to
// print on a terminal. limit <= 0 means DefaultMaxEventNameSize.
// Every error wraps ErrInvalidEvent.
func SanitizeEventName(name string, limit int) (string, error) {
	if limit <= 0 {
		limit = DefaultMaxEventNameSize
	}
	// Reject rather than truncate so the resolved rule is deterministic.
	if len(name) > limit {
		return "", fmt.Errorf("%w: %w: size=%d limit=%d", ErrInvalidEvent, ErrEventNameTooBig, len(name), limit)
	}
	if !utf8.ValidString(name) {
		return "", fmt.Errorf("%w: %w", ErrInvalidEvent, ErrInvalidUTF8)
	}

	if strings.IndexFunc(name, unicode.IsControl) >= 0 {
		name = strings.Map(func(r rune) rune {
			if unicode.IsControl(r) {
				return -1
			}
			return r
		}, name)
	}

	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: event name is required", ErrInvalidEvent)
	}
	return name, nil
}
