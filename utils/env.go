package utils

import (
	"os"
	"strconv"
	"strings"
)

// EnvInt reads an integer env var, falling back to def for missing or
// non-positive values.
func EnvInt(key string, def int) int {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return def
}

// EnvStr reads a string env var with a default.
func EnvStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
