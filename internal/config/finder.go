package config

import (
	"os"
	"path/filepath"
)

// localConfigNames are tried in order in every directory
var localConfigNames = []string{".llmconv.yml", ".llmconv.yaml", ".llmconv.json", ".llmconv.toml"}

// FindLocalConfig returns the nearest .llmconv.* file in dir or one of its
// parents, or "" if there is none
func FindLocalConfig(dir string) string {
	for {
		if path := firstFile(dir, localConfigNames); path != "" {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}

		dir = parent
	}
}

// FindEnvFile returns the .env file in dir, or "" if there is none. Parents
// are not searched.
func FindEnvFile(dir string) string {
	return firstFile(dir, []string{".env"})
}

func firstFile(dir string, names []string) string {
	for _, name := range names {
		path := filepath.Join(dir, name)

		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path
		}
	}

	return ""
}
