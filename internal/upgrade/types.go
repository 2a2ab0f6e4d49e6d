// Package upgrade checks GitHub releases for a newer circli.
package upgrade

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Repository that publishes circli releases.
const (
	RepoOwner = "chazuruo"
	RepoName  = "circli"
)

// CheckResult compares the running version with the latest release.
type CheckResult struct {
	Current    string `json:"current" yaml:"current"`
	Latest     string `json:"latest" yaml:"latest"`
	URL        string `json:"url,omitempty" yaml:"url,omitempty"`
	Newer      bool   `json:"update_available" yaml:"update_available"`
	Prerelease bool   `json:"prerelease,omitempty" yaml:"prerelease,omitempty"`
}

// ParseVersion parses a release tag like "v1.2.3". Development builds
// ("dev", "unknown", or anything that is not semver) return nil.
func ParseVersion(v string) *semver.Version {
	v = strings.TrimSpace(v)
	if v == "" || v == "dev" || v == "unknown" {
		return nil
	}
	parsed, err := semver.NewVersion(v)
	if err != nil {
		return nil
	}
	return parsed
}
