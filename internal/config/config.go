// Package config provides configuration management for circli.
//
// The configuration is stored in YAML at ~/.circleci/config.yml, the same
// file and keys the CircleCI tooling uses. A path ending in .toml is read
// and written as TOML instead.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DefaultHost is the public CircleCI endpoint.
const DefaultHost = "https://circleci.com"

// Auth schemes accepted in authScheme.
const (
	AuthCircleToken = "circle-token"
	AuthBasic       = "basic"
	AuthBearer      = "bearer"
)

// Output formats accepted in output.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// Token sources recorded in Config.TokenSource.
const (
	TokenFromFlag = "flag"
	TokenFromEnv  = "env"
	TokenFromFile = "file"
)

// Config is the circli configuration.
type Config struct {
	// APIToken is the personal API token sent with every request.
	APIToken string `yaml:"apiToken,omitempty" toml:"api_token,omitempty"`

	// DefaultProjectSlug is used when a command needs a project and none was given.
	// Format: <vcs>/<org>/<repo>, e.g. gh/CircleCI-Public/api-preview-docs.
	DefaultProjectSlug string `yaml:"defaultProjectSlug,omitempty" toml:"default_project_slug,omitempty"`

	// Host is the CircleCI server root; /api/v2 is appended.
	Host string `yaml:"host,omitempty" toml:"host,omitempty"`

	// AuthScheme selects how the token is sent.
	// Valid values: "circle-token", "basic", "bearer".
	AuthScheme string `yaml:"authScheme,omitempty" toml:"auth_scheme,omitempty"`

	// Output is the default output format.
	// Valid values: "table", "json", "yaml".
	Output string `yaml:"output,omitempty" toml:"output,omitempty"`

	// Timeout bounds each HTTP exchange (e.g. "30s"). Empty means no timeout.
	Timeout string `yaml:"timeout,omitempty" toml:"timeout,omitempty"`

	// Telemetry wraps the HTTP transport with OpenTelemetry instrumentation.
	Telemetry bool `yaml:"telemetry,omitempty" toml:"telemetry,omitempty"`

	// TokenSource records where APIToken came from. Not persisted.
	TokenSource string `yaml:"-" toml:"-"`
}

// DefaultConfig returns a Config with all default values set.
func DefaultConfig() *Config {
	return &Config{
		Host:       DefaultHost,
		AuthScheme: AuthCircleToken,
		Output:     OutputTable,
	}
}

// BaseURL returns the v2 API root for the configured host.
func (c *Config) BaseURL() string {
	host := c.Host
	if host == "" {
		host = DefaultHost
	}
	return strings.TrimRight(host, "/") + "/api/v2"
}

// TimeoutDuration parses Timeout. An empty value yields zero.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("timeout cannot be negative: %s", c.Timeout)
	}
	return d, nil
}

// Validate checks the configuration for valid values.
// Returns a nil error if the config is valid, or an error describing the problem.
// An empty token is valid; commands that talk to the API check for it.
func (c *Config) Validate() error {
	if c.Host != "" {
		u, err := url.Parse(c.Host)
		if err != nil {
			return fmt.Errorf("host is not a valid URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
			return fmt.Errorf("host must be an absolute http(s) URL; got %q", c.Host)
		}
	}

	validSchemes := map[string]bool{
		"":              true,
		AuthCircleToken: true,
		AuthBasic:       true,
		AuthBearer:      true,
	}
	if !validSchemes[c.AuthScheme] {
		return fmt.Errorf("authScheme must be one of: circle-token, basic, bearer; got %q", c.AuthScheme)
	}

	validOutputs := map[string]bool{
		"":          true,
		OutputTable: true,
		OutputJSON:  true,
		OutputYAML:  true,
	}
	if !validOutputs[c.Output] {
		return fmt.Errorf("output must be one of: table, json, yaml; got %q", c.Output)
	}

	if c.DefaultProjectSlug != "" {
		if err := ValidateProjectSlug(c.DefaultProjectSlug); err != nil {
			return fmt.Errorf("defaultProjectSlug: %w", err)
		}
	}

	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}

	return nil
}

// ValidateProjectSlug checks the <vcs>/<org>/<repo> shape of a project slug.
func ValidateProjectSlug(slug string) error {
	parts := strings.Split(slug, "/")
	if len(parts) != 3 {
		return fmt.Errorf("project slug must look like <vcs>/<org>/<repo>; got %q", slug)
	}
	for _, p := range parts {
		if p == "" {
			return fmt.Errorf("project slug has an empty segment: %q", slug)
		}
	}
	return nil
}

// MaskedToken returns the token with all but the last four characters hidden.
func MaskedToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 4 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}
