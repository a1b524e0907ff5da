package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".storecrawl"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// ErrEnvFileNotFound is returned when an explicitly given dotenv file does not exist.
var ErrEnvFileNotFound = errors.New("env file not found")

// LoadConfigFile loads a YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers decide whether that is fatal based on whether the path
// was given explicitly.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .storecrawl in the current directory
// 3. Look for config.yaml in the XDG config directory
// 4. Look for .storecrawl in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if p := filepath.Join(XDGConfigDir(), "config.yaml"); fileExists(p) {
		return p
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadAPIKey loads the dotenv file at path into the process environment and
// returns the value of APIKeyEnv. Variables already set in the environment
// are not overridden.
//
// A missing file is only an error when explicit is true. The default .env is
// optional because the key may come from the real environment instead.
func LoadAPIKey(path string, explicit bool) (string, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			switch {
			case os.IsNotExist(err) && !explicit:
			case os.IsNotExist(err):
				return "", fmt.Errorf("%w: %s", ErrEnvFileNotFound, path)
			default:
				return "", fmt.Errorf("failed to load %s: %w", path, err)
			}
		}
	}
	return os.Getenv(APIKeyEnv), nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
