package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	envDBPath       = "NEURALMESH_DB_PATH"
	envArtifactsDir = "NEURALMESH_ARTIFACTS_DIR"

	defaultDBPath       = "neuralmesh.db"
	defaultArtifactsDir = "runs"
)

// loadEnvFile loads the nearest .env found walking up from the working
// directory. Variables already set in the environment win.
func loadEnvFile() error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}

	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			return godotenv.Load(envPath)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
