package chat

import (
	"strings"
	"unicode/utf8"
)

// MaxMessageLength bounds inbound message size, measured in characters after
// trimming.
const MaxMessageLength = 5000

// ValidateMessage checks an inbound message and returns its normalized
// (whitespace-trimmed) form. It is called before any side effect.
func ValidateMessage(message string) (string, error) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return "", &ValidationError{Detail: "Message cannot be empty"}
	}
	if utf8.RuneCountInString(trimmed) > MaxMessageLength {
		return "", &ValidationError{Detail: "Message is too long"}
	}
	return trimmed, nil
}
