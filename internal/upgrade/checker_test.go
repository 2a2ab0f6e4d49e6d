package upgrade

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clierrors "github.com/chazuruo/circli/internal/errors"
)

func releaseServer(t *testing.T, status int, releases []Release) *Checker {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/chazuruo/circli/releases", r.URL.Path)
		assert.Equal(t, "circli-version-check", r.Header.Get("User-Agent"))
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(releases)
	}))
	t.Cleanup(srv.Close)

	c := NewChecker(RepoOwner, RepoName, false)
	c.BaseURL = srv.URL
	c.SetHTTPClient(srv.Client())
	return c
}

func TestCheckLatest_PicksHighestStable(t *testing.T) {
	c := releaseServer(t, http.StatusOK, []Release{
		{TagName: "v1.10.0-rc.1", Prerelease: true},
		{TagName: "v1.9.0", HTMLURL: "https://github.com/chazuruo/circli/releases/tag/v1.9.0"},
		{TagName: "v1.10.0", Draft: true},
		{TagName: "nightly"},
		{TagName: "v1.2.0"},
	})

	r, err := c.CheckLatest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v1.9.0", r.TagName)
}

func TestCheckLatest_IncludePrerelease(t *testing.T) {
	c := releaseServer(t, http.StatusOK, []Release{
		{TagName: "v1.10.0-rc.1", Prerelease: true},
		{TagName: "v1.9.0"},
	})
	c.includePre = true

	r, err := c.CheckLatest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v1.10.0-rc.1", r.TagName)
}

func TestCheckLatest_Errors(t *testing.T) {
	c := releaseServer(t, http.StatusForbidden, nil)
	_, err := c.CheckLatest(context.Background())
	require.Error(t, err)
	assert.True(t, clierrors.IsHTTP(err))
	assert.Equal(t, clierrors.ExitFailure, clierrors.ExitCode(err))
	he, ok := clierrors.AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, he.Status)
	assert.Equal(t, "Forbidden", he.StatusText)

	c = releaseServer(t, http.StatusOK, []Release{{TagName: "nightly"}, {TagName: "v2.0.0", Draft: true}})
	_, err = c.CheckLatest(context.Background())
	assert.ErrorIs(t, err, ErrNoRelease)
}

func TestCheck(t *testing.T) {
	c := releaseServer(t, http.StatusOK, []Release{{TagName: "v0.4.0", HTMLURL: "https://example.com/v0.4.0"}})

	res, err := c.Check(context.Background(), "v0.3.2")
	require.NoError(t, err)
	assert.True(t, res.Newer)
	assert.Equal(t, "v0.4.0", res.Latest)
	assert.Equal(t, "https://example.com/v0.4.0", res.URL)

	res, err = c.Check(context.Background(), "0.4.0")
	require.NoError(t, err)
	assert.False(t, res.Newer)
}

func TestIsNewer(t *testing.T) {
	r := &Release{TagName: "v1.2.3"}
	assert.True(t, r.IsNewer("dev"))
	assert.True(t, r.IsNewer("v1.2.2"))
	assert.True(t, r.IsNewer("1.2.3-beta.1"))
	assert.False(t, r.IsNewer("v1.2.3"))
	assert.False(t, r.IsNewer("v1.10.0"))

	assert.False(t, (&Release{TagName: "latest"}).IsNewer("v1.0.0"))
}

func TestParseVersion(t *testing.T) {
	assert.Nil(t, ParseVersion("dev"))
	assert.Nil(t, ParseVersion(""))
	assert.Nil(t, ParseVersion("not-a-version"))
	v := ParseVersion("v2.1.0")
	require.NotNil(t, v)
	assert.Equal(t, uint64(2), v.Major())
}
