package config

import (
	"testing"
	"time"
)

// TestDefaultConfig verifies that default values are correctly set.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"apiToken", cfg.APIToken, ""},
		{"defaultProjectSlug", cfg.DefaultProjectSlug, ""},
		{"host", cfg.Host, "https://circleci.com"},
		{"authScheme", cfg.AuthScheme, "circle-token"},
		{"output", cfg.Output, "table"},
		{"timeout", cfg.Timeout, ""},
		{"telemetry", cfg.Telemetry, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() returned error: %v", err)
	}
}

// TestBaseURL verifies the API root is derived from host.
func TestBaseURL(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"", "https://circleci.com/api/v2"},
		{"https://circleci.com", "https://circleci.com/api/v2"},
		{"https://circleci.example.com/", "https://circleci.example.com/api/v2"},
		{"http://127.0.0.1:8080", "http://127.0.0.1:8080/api/v2"},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			cfg := &Config{Host: tt.host}
			if got := cfg.BaseURL(); got != tt.want {
				t.Errorf("BaseURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestValidate covers the rejected values for each field.
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"relative host", func(c *Config) { c.Host = "circleci.com" }, true},
		{"ftp host", func(c *Config) { c.Host = "ftp://circleci.com" }, true},
		{"bad auth scheme", func(c *Config) { c.AuthScheme = "digest" }, true},
		{"basic auth scheme", func(c *Config) { c.AuthScheme = AuthBasic }, false},
		{"bad output", func(c *Config) { c.Output = "xml" }, true},
		{"yaml output", func(c *Config) { c.Output = OutputYAML }, false},
		{"good slug", func(c *Config) { c.DefaultProjectSlug = "gh/org/repo" }, false},
		{"short slug", func(c *Config) { c.DefaultProjectSlug = "gh/org" }, true},
		{"empty slug segment", func(c *Config) { c.DefaultProjectSlug = "gh//repo" }, true},
		{"good timeout", func(c *Config) { c.Timeout = "30s" }, false},
		{"bad timeout", func(c *Config) { c.Timeout = "soon" }, true},
		{"negative timeout", func(c *Config) { c.Timeout = "-1s" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestTimeoutDuration verifies timeout parsing.
func TestTimeoutDuration(t *testing.T) {
	cfg := &Config{Timeout: "1m30s"}
	d, err := cfg.TimeoutDuration()
	if err != nil {
		t.Fatalf("TimeoutDuration() returned error: %v", err)
	}
	if d != 90*time.Second {
		t.Errorf("TimeoutDuration() = %v, want 1m30s", d)
	}

	cfg.Timeout = ""
	if d, _ := cfg.TimeoutDuration(); d != 0 {
		t.Errorf("empty timeout = %v, want 0", d)
	}
}

// TestMaskedToken verifies only the last four characters survive.
func TestMaskedToken(t *testing.T) {
	tests := map[string]string{
		"":             "",
		"abc":          "****",
		"abcd":         "****",
		"CCIPAT_12345": "****2345",
	}
	for in, want := range tests {
		if got := MaskedToken(in); got != want {
			t.Errorf("MaskedToken(%q) = %q, want %q", in, got, want)
		}
	}
}
