package util

import (
	"log/slog"
	"testing"
)

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"true", false, true},
		{"YES", false, true},
		{" on ", false, true},
		{"1", false, true},
		{"false", true, false},
		{"Off", true, false},
		{"0", true, false},
		{"", true, true},
		{"maybe", true, true},
		{"maybe", false, false},
	}
	for _, tt := range tests {
		t.Setenv("MAGICTEXT_TEST_BOOL", tt.value)
		if got := ParseBoolEnv("MAGICTEXT_TEST_BOOL", tt.def); got != tt.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
		}
	}
}

func TestLogLevelFromEnv(t *testing.T) {
	t.Setenv("MAGICTEXT_TEST_DEBUG", "true")
	if got := LogLevelFromEnv("MAGICTEXT_TEST_DEBUG"); got != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", got)
	}
	t.Setenv("MAGICTEXT_TEST_DEBUG", "no")
	if got := LogLevelFromEnv("MAGICTEXT_TEST_DEBUG"); got != slog.LevelInfo {
		t.Errorf("expected info level, got %v", got)
	}
}
