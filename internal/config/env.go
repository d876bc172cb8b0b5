package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// loadEnvFiles loads .env files from the working directory and from the
// configuration directory. Variables already set in the environment win.
func loadEnvFiles(configPath string) {
	candidates := []string{".env", filepath.Join(filepath.Dir(configPath), ".env")}
	seen := make(map[string]bool, len(candidates))
	for _, p := range candidates {
		abs, err := filepath.Abs(p)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		if _, err := os.Stat(abs); err != nil {
			continue
		}
		if err := godotenv.Load(abs); err != nil {
			slog.Warn("Failed to load environment file", "path", abs, "error", err)
			continue
		}
		slog.Debug("Loaded environment variables", "path", abs)
	}
}
