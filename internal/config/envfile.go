package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	// AppConfigDir is the directory name under XDG_CONFIG_HOME.
	AppConfigDir = "aicommit"
	// EnvFileName is the name of the key-value environment file.
	EnvFileName = ".env"
)

// ErrEnvFileNotFound is returned when an explicitly requested env file is missing.
var ErrEnvFileNotFound = errors.New("env file not found")

// ConfigDir returns the per-user configuration directory.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/aicommit.
func ConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, AppConfigDir)
}

// DefaultEnvFiles returns the env files consulted when none is given explicitly,
// highest precedence first: the repository's .env, then the per-user one.
func DefaultEnvFiles(repoRoot string) []string {
	var files []string
	if repoRoot != "" {
		files = append(files, filepath.Join(repoRoot, EnvFileName))
	}
	if dir := ConfigDir(); dir != "" {
		files = append(files, filepath.Join(dir, EnvFileName))
	}
	return files
}

// LoadEnvFiles loads each existing file into the process environment and
// returns the files that were read. Variables already present in the
// environment are never overwritten, so earlier files and the real
// environment take precedence. Missing files are skipped.
func LoadEnvFiles(paths ...string) ([]string, error) {
	var loaded []string
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return loaded, fmt.Errorf("checking %s: %w", p, err)
		}
		if err := godotenv.Load(p); err != nil {
			return loaded, fmt.Errorf("%w: parsing %s: %v", ErrInvalidValue, p, err)
		}
		loaded = append(loaded, p)
	}
	return loaded, nil
}

// LoadEnvFile loads a single, explicitly requested env file.
// Unlike LoadEnvFiles a missing file is an error.
func LoadEnvFile(path string) error {
	path = ExpandPath(path)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrEnvFileNotFound, path)
		}
		return fmt.Errorf("checking %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("%w: parsing %s: %v", ErrInvalidValue, path, err)
	}
	return nil
}
