package cli

import (
	"os"
	"path/filepath"
)

// Config holds CLI configuration
type Config struct {
	ServerURL   string
	SecretsFile string
	Output      string
	Verbose     bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:   getEnvOrDefault("CHESSCTL_SERVER", "http://localhost:3000"),
		SecretsFile: getEnvOrDefault("CHESSCTL_SECRETS_FILE", defaultSecretsFile()),
		Output:      "text",
		Verbose:     false,
	}
}

func defaultSecretsFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".chessctl", "secrets.yaml")
	}
	return filepath.Join(home, ".chessctl", "secrets.yaml")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
