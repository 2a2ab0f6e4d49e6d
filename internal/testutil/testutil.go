// Package testutil provides helper functions for testing.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// envVars are the variables that change how circli resolves its config.
var envVars = []string{
	"CIRCLECI_CLI_CONFIG",
	"CIRCLECI_TOKEN",
	"CIRCLECI_HOST",
	"CIRCLECI_PROJECT_SLUG",
	"CIRCLECI_AUTH_SCHEME",
	"CIRCLECI_OUTPUT",
	"CIRCLE_WORKFLOW_ID",
	"CIRCLE_BRANCH",
	"CIRCLE_PROJECT_USERNAME",
	"CIRCLE_PROJECT_REPONAME",
	"CIRCLE_USERNAME",
}

// TempDir creates a temporary directory and registers a cleanup function.
// The directory is automatically deleted when the test completes.
func TempDir(t *testing.T) string {
	t.Helper()

	dir, err := os.MkdirTemp("", "circli-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	t.Cleanup(func() {
		if err := os.RemoveAll(dir); err != nil {
			t.Errorf("failed to cleanup temp dir %s: %v", dir, err)
		}
	})

	return dir
}

// WriteConfig writes content to a config file named name in a temporary
// directory and returns its path.
func WriteConfig(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(TempDir(t), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	return path
}

// IsolateEnv clears every environment variable circli reads and points HOME
// at an empty directory, for the duration of the test.
func IsolateEnv(t *testing.T) {
	t.Helper()

	for _, key := range envVars {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("HOME", TempDir(t))
}
