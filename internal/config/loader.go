// Package config provides configuration management for circli.
//
// This file contains config loading functionality including:
// - config path detection
// - YAML or TOML file parsing
// - Environment variable overrides
// - Validation
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	clierrors "github.com/chazuruo/circli/internal/errors"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "CIRCLECI_CLI_CONFIG"

// DefaultConfigPath returns ~/.circleci/config.yml, or "" if the home
// directory cannot be determined.
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".circleci", "config.yml")
}

// DetectConfigPath returns the config file path to use.
//
// Search order:
// 1. $CIRCLECI_CLI_CONFIG
// 2. ~/.circleci/config.yml
//
// The returned file may not exist yet.
func DetectConfigPath() string {
	if p, ok := os.LookupEnv(EnvConfigPath); ok && p != "" {
		return expandHome(p)
	}
	return DefaultConfigPath()
}

// Load loads a config from the specified path.
// A missing file yields the defaults. After loading, applies environment
// variable overrides and validates.
func Load(path string) (*Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, &clierrors.ConfigError{Path: path, Err: fmt.Errorf("validation failed: %w", err)}
	}

	return cfg, nil
}

// LoadFile reads path without env overrides. Used when rewriting the file so
// environment values are never persisted.
func LoadFile(path string) (*Config, error) {
	return readFile(path)
}

// LoadWithDefaults loads the config from DetectConfigPath.
func LoadWithDefaults() (*Config, error) {
	path := DetectConfigPath()
	if path == "" {
		cfg := DefaultConfig()
		applyEnvOverrides(cfg)
		return cfg, nil
	}
	return Load(path)
}

func readFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, &clierrors.ConfigError{Path: path, Err: fmt.Errorf("failed to read config file: %w", err)}
	}

	if isTOML(path) {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, &clierrors.ConfigError{Path: path, Err: fmt.Errorf("failed to parse config file: %w", err)}
	}

	if cfg.APIToken != "" {
		cfg.TokenSource = TokenFromFile
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config.
//
// - CIRCLECI_TOKEN overrides apiToken
// - CIRCLECI_HOST overrides host
// - CIRCLECI_PROJECT_SLUG overrides defaultProjectSlug
// - CIRCLECI_AUTH_SCHEME overrides authScheme
// - CIRCLECI_OUTPUT overrides output
func applyEnvOverrides(c *Config) {
	applyString := func(key string, target *string) bool {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			*target = val
			return true
		}
		return false
	}

	if applyString("CIRCLECI_TOKEN", &c.APIToken) {
		c.TokenSource = TokenFromEnv
	}
	applyString("CIRCLECI_HOST", &c.Host)
	applyString("CIRCLECI_PROJECT_SLUG", &c.DefaultProjectSlug)
	applyString("CIRCLECI_AUTH_SCHEME", &c.AuthScheme)
	applyString("CIRCLECI_OUTPUT", &c.Output)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// expandHome expands a leading ~ to the home directory.
func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") || p == "~" {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(homeDir, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
