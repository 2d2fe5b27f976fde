package utils

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

func init() {
	_ = godotenv.Load()
}

// MustGetEnv reads a variable the service cannot run without (valkey host,
// object storage credentials). It panics at startup rather than limping on.
func MustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic("Missing required environment variable: " + key)
	}
	return val
}

func GetEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// IntEnvOrDefault parses an integer setting, falling back to def when the
// variable is unset, malformed, or below min.
func IntEnvOrDefault(key string, def, min int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v < min {
		return def
	}
	return v
}
