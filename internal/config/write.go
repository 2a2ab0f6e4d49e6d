package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	clierrors "github.com/chazuruo/circli/internal/errors"
)

// Write writes the config to path, as TOML when the path ends in .toml and
// YAML otherwise. The file holds a token, so it is created 0600.
func Write(path string, cfg *Config) error {
	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	if isTOML(path) {
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
	} else {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// settableKeys maps CLI key names to config fields.
var settableKeys = map[string]func(c *Config) *string{
	"api-token":            func(c *Config) *string { return &c.APIToken },
	"default-project-slug": func(c *Config) *string { return &c.DefaultProjectSlug },
	"host":                 func(c *Config) *string { return &c.Host },
	"auth-scheme":          func(c *Config) *string { return &c.AuthScheme },
	"output":               func(c *Config) *string { return &c.Output },
	"timeout":              func(c *Config) *string { return &c.Timeout },
}

// Keys returns the keys accepted by Set and Get, sorted.
func Keys() []string {
	keys := make([]string, 0, len(settableKeys))
	for k := range settableKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value of key.
func (c *Config) Get(key string) (string, error) {
	field, ok := settableKeys[key]
	if !ok {
		return "", clierrors.Invalid("config.get", "key", "unknown config key %q (valid: %v)", key, Keys())
	}
	return *field(c), nil
}

// Set updates key and validates the result. On error the config is unchanged.
func (c *Config) Set(key, value string) error {
	field, ok := settableKeys[key]
	if !ok {
		return clierrors.Invalid("config.set", "key", "unknown config key %q (valid: %v)", key, Keys())
	}

	target := field(c)
	old := *target
	*target = value
	if err := c.Validate(); err != nil {
		*target = old
		return &clierrors.ValidationError{Op: "config.set", Field: key, Err: err}
	}
	return nil
}

// SetValue loads path (without env overrides), sets key and writes it back.
func SetValue(path, key, value string) error {
	cfg, err := LoadFile(path)
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	return Write(path, cfg)
}
