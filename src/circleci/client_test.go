package circleci

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cistat/src/provider"
)

const buildsJSON = `[
  {
    "build_num": 1203,
    "branch": "main",
    "vcs_revision": "abc1234def5678abc1234def5678abc1234def56",
    "status": "success",
    "outcome": "success",
    "lifecycle": "finished",
    "start_time": "2024-05-21T10:00:00.000Z",
    "stop_time": "2024-05-21T10:04:10.000Z",
    "build_url": "https://circleci.com/gh/acme/api/1203",
    "workflows": {"workflow_name": "build-and-test", "job_name": "test"}
  },
  {
    "build_num": 1202,
    "branch": "feature-x",
    "vcs_revision": "0123456789abcdef",
    "status": "",
    "outcome": "failed",
    "lifecycle": "finished",
    "start_time": "2024-05-21T09:50:00.000Z",
    "stop_time": "2024-05-21T09:55:00.000Z",
    "build_url": "https://circleci.com/gh/acme/api/1202"
  },
  {
    "build_num": 1204,
    "branch": "main",
    "vcs_revision": "fedcba9876543210",
    "status": "queued",
    "outcome": null,
    "lifecycle": "queued",
    "start_time": null,
    "stop_time": null,
    "queued_at": "2024-05-21T10:05:00.000Z",
    "build_url": "https://circleci.com/gh/acme/api/1204"
  }
]`

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewProviderWithSettings(provider.Settings{
		BaseURL:    server.URL,
		Token:      "circle-token",
		HTTPClient: server.Client(),
	})
}

func TestFetchRecentBuilds(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/project/gh/acme/api", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "circle-token", r.Header.Get("Circle-Token"))
		w.Write([]byte(buildsJSON))
	})

	ref := provider.ProjectRef{Kind: provider.KindCircleCI, Slug: "gh/acme/api"}
	raws, err := p.FetchRecentBuilds(context.Background(), ref, provider.DefaultLimit)
	require.NoError(t, err)
	require.Len(t, raws, 3)

	assert.Equal(t, "1203", raws[0].ID)
	assert.Equal(t, "success", raws[0].Status)
	assert.Equal(t, "build-and-test", raws[0].Pipeline)
	assert.Equal(t, "circleci:gh/acme/api", raws[0].Project)
	require.NotNil(t, raws[0].FinishedAt)

	// status falls back to outcome
	assert.Equal(t, "failed", raws[1].Status)
	assert.Empty(t, raws[1].Pipeline)

	// queued builds report their queue time as the start
	assert.Equal(t, "queued", raws[2].Status)
	require.NotNil(t, raws[2].StartedAt)
	assert.Equal(t, 5, raws[2].StartedAt.Minute())
	assert.Nil(t, raws[2].FinishedAt)
}

func TestFetchRecentBuilds_SingleBranch(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/project/gh/acme/api/tree/main", r.URL.Path)
		w.Write([]byte(buildsJSON))
	})

	ref := provider.ProjectRef{Kind: provider.KindCircleCI, Slug: "gh/acme/api", Branches: []string{"main"}}
	raws, err := p.FetchRecentBuilds(context.Background(), ref, 10)
	require.NoError(t, err)
	require.Len(t, raws, 2)
	for _, raw := range raws {
		assert.Equal(t, "main", raw.Branch)
	}
}

func TestFetchRecentBuilds_Rejected(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"You must log in first."}`, http.StatusUnauthorized)
	})

	ref := provider.ProjectRef{Kind: provider.KindCircleCI, Slug: "gh/acme/api"}
	_, err := p.FetchRecentBuilds(context.Background(), ref, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, provider.ErrProviderRejected))
	assert.Contains(t, err.Error(), "gh/acme/api")
}

func TestFetchRecentBuilds_Malformed(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message": "not a list"}`))
	})

	ref := provider.ProjectRef{Kind: provider.KindCircleCI, Slug: "gh/acme/api"}
	_, err := p.FetchRecentBuilds(context.Background(), ref, 10)
	assert.True(t, errors.Is(err, provider.ErrProviderUnavailable))
}

func TestRegistered(t *testing.T) {
	p, err := provider.New(provider.KindCircleCI, provider.Settings{Token: "x"})
	require.NoError(t, err)
	assert.Equal(t, provider.KindCircleCI, p.Kind())
}
