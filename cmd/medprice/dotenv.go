package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// FindDotEnv returns the path of the nearest .env file in dir or one of its
// parents.
func FindDotEnv(dir string) (string, bool) {
	for {
		path := filepath.Join(dir, ".env")
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// LoadDotEnv loads the nearest .env file into the environment. Variables
// that are already set are left alone.
func LoadDotEnv(dir string) error {
	path, ok := FindDotEnv(dir)
	if !ok {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
