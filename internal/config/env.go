package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Environment variables that override the config file.
const (
	EnvDBPath      = "TODO_DB_PATH"
	EnvLogLevel    = "TODO_LOG_LEVEL"
	EnvAuthLatency = "TODO_AUTH_LATENCY"
	EnvLanguage    = "TODO_LANGUAGE"
)

// DotenvPath is the .env file next to the config file.
func DotenvPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), ".env")
}

// LoadDotenv loads path into the environment. A missing file is not an error
// and variables already set are left alone.
func LoadDotenv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() {
	fromEnv(&c.DBPath, EnvDBPath)
	fromEnv(&c.LogLevel, EnvLogLevel)
	fromEnv(&c.AuthLatency, EnvAuthLatency)
	fromEnv(&c.Language, EnvLanguage)
}

func fromEnv(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}
