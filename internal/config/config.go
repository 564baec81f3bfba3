package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	apperrors "github.com/tessro/startify/internal/errors"
)

// EnvPrefix prefixes every environment override, e.g. STARTIFY_POLL_SNAPSHOT_INTERVAL.
const EnvPrefix = "STARTIFY_"

// Load reads configuration from standard locations with environment overrides.
// Search order: ~/.startifyrc, $XDG_CONFIG_HOME/startify/config.toml, ~/.config/startify/config.toml
func Load() (*Config, error) {
	return load(FindConfigFile(), false)
}

// LoadFrom reads configuration from a specific file path. Unlike Load, a
// missing file is an error.
func LoadFrom(path string) (*Config, error) {
	return load(path, true)
}

// LoadFile decodes a single file on top of the defaults, without .env or
// environment overrides. It is what config set edits.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrInvalidConfig, path, err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

func load(path string, required bool) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := Default()
	if path != "" {
		loaded, err := LoadFile(path)
		switch {
		case err == nil:
			cfg = loaded
		case !required && errors.Is(err, apperrors.ErrConfigNotFound):
		default:
			return nil, err
		}
	}

	cfg.ApplyDefaults()
	if err := applyEnvOverrides(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv exports the variables of a .env file without overriding ones
// already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// FindConfigFile returns the first existing config file path, or "" if none exists.
func FindConfigFile() string {
	for _, p := range searchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// DefaultPath is where config init writes a new file.
func DefaultPath() string {
	paths := searchPaths()
	if len(paths) == 0 {
		return ".startifyrc"
	}
	return paths[len(paths)-1]
}

func searchPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}

	paths := []string{
		filepath.Join(home, ".startifyrc"),
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	return append(paths, filepath.Join(xdgConfig, "startify", "config.toml"))
}
