// Package util provides environment helpers shared by the binaries.
package util

import (
	"log/slog"
	"os"
	"strings"
)

// ParseBoolEnv parses a boolean environment variable.
// Accepts true/1/yes/on and false/0/no/off, case-insensitively. Unset or
// invalid values yield defaultValue.
func ParseBoolEnv(key string, defaultValue bool) bool {
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	slog.Warn("ParseBoolEnv: invalid boolean value, using default", "key", key, "value", val, "default", defaultValue)
	return defaultValue
}

// LogLevelFromEnv returns slog.LevelDebug when the debugKey variable is
// truthy and slog.LevelInfo otherwise.
func LogLevelFromEnv(debugKey string) slog.Level {
	if ParseBoolEnv(debugKey, false) {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
