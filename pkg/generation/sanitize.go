package generation

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultMaxPromptSize bounds a single user message, in bytes.
	DefaultMaxPromptSize = 8192
	// EnvMaxPromptSize overrides DefaultMaxPromptSize.
	EnvMaxPromptSize = "AUTOFLOW_MAX_PROMPT_SIZE"
)

var (
	ErrPromptEmpty    = errors.New("prompt is empty")
	ErrPromptTooLarge = errors.New("prompt exceeds maximum allowed size")
	ErrInvalidUTF8    = errors.New("prompt contains invalid UTF-8 sequences")
)

// SanitizePrompt validates a chat message before it reaches the generator.
// Oversized input is rejected rather than truncated. Control characters other
// than newline, tab and carriage return are removed.
func SanitizePrompt(input string) (string, error) {
	if limit := maxPromptSize(); len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrPromptTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	out := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			return -1
		}
		return r
	}, input)

	if strings.TrimSpace(out) == "" {
		return "", ErrPromptEmpty
	}
	return out, nil
}

func maxPromptSize() int {
	if val := os.Getenv(EnvMaxPromptSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxPromptSize
}
