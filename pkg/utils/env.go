package utils

import (
	"os"
	"strconv"
)

// Environment lookups used by the CLI layer. The .env file itself is
// loaded once by the command middleware (godotenv); these helpers only
// read the resulting process environment, and treat an unset and an
// empty variable the same way.

// EnvOrDefault returns the value of the environment variable identified
// by key, or fallback if the variable is unset or empty.
func EnvOrDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// EnvOrDefaultInt returns the integer value of the environment variable
// identified by key. Unset, empty and unparseable values all yield the
// fallback, so a mistyped override degrades to the configured default
// instead of aborting a run.
func EnvOrDefaultInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
