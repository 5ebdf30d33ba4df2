package generation

import (
	"strings"
	"testing"
)

func TestSanitizePrompt_SizeLimit(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"Under Limit", DefaultMaxPromptSize - 1, false},
		{"Exact Limit", DefaultMaxPromptSize, false},
		{"Over Limit", DefaultMaxPromptSize + 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SanitizePrompt(strings.Repeat("a", tt.size))
			if (err != nil) != tt.wantErr {
				t.Errorf("SanitizePrompt() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSanitizePrompt_EnvOverride(t *testing.T) {
	t.Setenv(EnvMaxPromptSize, "10")
	if _, err := SanitizePrompt(strings.Repeat("a", 11)); err == nil {
		t.Error("expected error above overridden limit")
	}
}

func TestSanitizePrompt_ControlChars(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Normal Text", "Build a flow", "Build a flow"},
		{"Safe Controls", "Line1\nLine2\tTabbed", "Line1\nLine2\tTabbed"},
		{"ANSI Code", "\x1b[31mRed\x1b[0m", "[31mRed[0m"},
		{"Null Byte", "Null\x00Byte", "NullByte"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizePrompt(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("SanitizePrompt() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSanitizePrompt_Rejects(t *testing.T) {
	if _, err := SanitizePrompt("   \x07 "); err != ErrPromptEmpty {
		t.Errorf("expected ErrPromptEmpty, got %v", err)
	}
	if _, err := SanitizePrompt("bad \xff"); err != ErrInvalidUTF8 {
		t.Errorf("expected ErrInvalidUTF8, got %v", err)
	}
}
