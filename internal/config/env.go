package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

var envFiles = []string{".env", ".env.local"}

// LoadEnvFiles loads .env and .env.local from the working directory into the
// process environment. Variables already set in the environment win, so a
// shell export always beats a dotfile.
func LoadEnvFiles() {
	for _, name := range envFiles {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			slog.Warn("Failed to load env file", "path", name, "error", err)
			continue
		}
		slog.Debug("Loaded env file", "path", name)
	}
}
