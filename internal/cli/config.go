package cli

import (
	"os"
	"time"
)

// Config holds CLI configuration. The server owns the session token, so
// nothing credential-like is stored locally.
type Config struct {
	ServerURL string
	Output    string
	Timeout   time.Duration
	Verbose   bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL: getEnvOrDefault("CFR_SERVER", "http://localhost:8080"),
		Output:    "text",
		Timeout:   30 * time.Second,
		Verbose:   false,
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
