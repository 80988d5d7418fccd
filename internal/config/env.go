package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads the first existing .env file. Variables already set in the
// process environment are not overwritten.
func loadEnvFiles() (string, error) {
	for _, path := range envFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return "", err
		}
		return path, nil
	}
	return "", errors.New("no .env file found")
}
