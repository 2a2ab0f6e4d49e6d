package upgrade

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"slices"

	clierrors "github.com/chazuruo/circli/internal/errors"
)

// ErrNoRelease is returned when the repository has no usable release.
var ErrNoRelease = errors.New("no suitable release found")

// Checker finds the newest published release of circli.
type Checker struct {
	// BaseURL is the GitHub API root.
	BaseURL string

	owner, repo string
	includePre  bool
	httpClient  *http.Client
}

// NewChecker returns a Checker for owner/repo. Prereleases count only when
// includePre is set.
func NewChecker(owner, repo string, includePre bool) *Checker {
	return &Checker{
		BaseURL:    "https://api.github.com",
		owner:      owner,
		repo:       repo,
		includePre: includePre,
		httpClient: http.DefaultClient,
	}
}

// SetHTTPClient replaces the client used for the release lookup.
func (c *Checker) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// CheckLatest returns the highest semver release. Drafts and tags that are
// not semver are skipped.
func (c *Checker) CheckLatest(ctx context.Context) (*Release, error) {
	const op = "version.check"
	releases, err := c.fetch(ctx, op)
	if err != nil {
		return nil, err
	}

	releases = slices.DeleteFunc(releases, func(r Release) bool {
		return r.Draft || r.Version() == nil || (r.Prerelease && !c.includePre)
	})
	if len(releases) == 0 {
		return nil, &clierrors.RequestError{Op: op, Err: ErrNoRelease}
	}
	latest := slices.MaxFunc(releases, func(a, b Release) int {
		return a.Version().Compare(b.Version())
	})
	return &latest, nil
}

func (c *Checker) fetch(ctx context.Context, op string) ([]Release, error) {
	url := c.BaseURL + "/repos/" + c.owner + "/" + c.repo + "/releases"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &clierrors.RequestError{Op: op, Err: err}
	}
	// A token only raises the rate limit.
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "circli-version-check")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &clierrors.RequestError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &clierrors.HTTPError{
			Method:     http.MethodGet,
			URL:        url,
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Body:       body,
			Message:    "GitHub release lookup failed",
		}
	}

	var releases []Release
	if err := json.NewDecoder(resp.Body).Decode(&releases); err != nil {
		return nil, &clierrors.RequestError{Op: op, Err: err}
	}
	return releases, nil
}

// Check compares currentVersion with the latest release.
func (c *Checker) Check(ctx context.Context, currentVersion string) (*CheckResult, error) {
	latest, err := c.CheckLatest(ctx)
	if err != nil {
		return nil, err
	}
	return &CheckResult{
		Current:    currentVersion,
		Latest:     latest.TagName,
		URL:        latest.HTMLURL,
		Newer:      latest.IsNewer(currentVersion),
		Prerelease: latest.Prerelease,
	}, nil
}
