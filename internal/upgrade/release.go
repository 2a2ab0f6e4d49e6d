package upgrade

import "github.com/Masterminds/semver/v3"

// Release represents a GitHub release.
type Release struct {
	TagName     string `json:"tag_name"`
	Name        string `json:"name"`
	HTMLURL     string `json:"html_url"`
	Draft       bool   `json:"draft"`
	Prerelease  bool   `json:"prerelease"`
	PublishedAt string `json:"published_at"`
}

// Version parses the release tag, or returns nil if it is not semver.
func (r *Release) Version() *semver.Version {
	return ParseVersion(r.TagName)
}

// IsNewer reports whether the release is newer than currentVersion. A
// development build is older than every release.
func (r *Release) IsNewer(currentVersion string) bool {
	latest := r.Version()
	if latest == nil {
		return false
	}
	current := ParseVersion(currentVersion)
	if current == nil {
		return true
	}
	return latest.GreaterThan(current)
}
