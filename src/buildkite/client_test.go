package buildkite

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
    "id": "f62a1b4d-10f9-4790-bc1c-e2c3a0c80983",
    "number": 4091,
    "state": "failed",
    "branch": "main",
    "commit": "abc1234def5678",
    "web_url": "https://buildkite.com/acme/deploy/builds/4091",
    "created_at": "2024-05-21T10:00:00Z",
    "started_at": "2024-05-21T10:00:05Z",
    "finished_at": "2024-05-21T10:06:00Z",
    "pipeline": {"slug": "deploy", "name": "Deploy"}
  },
  {
    "id": "0b461f65-e7be-4c80-888a-ef11d81fd971",
    "number": 4090,
    "state": "scheduled",
    "branch": "feature-x",
    "commit": "0123456789",
    "web_url": "https://buildkite.com/acme/deploy/builds/4090",
    "created_at": "2024-05-21T09:59:00Z",
    "started_at": null,
    "finished_at": null,
    "pipeline": {"slug": "deploy", "name": "Deploy"}
  }
]`

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewProviderWithSettings(provider.Settings{
		BaseURL:    server.URL,
		Token:      "bk-token",
		HTTPClient: server.Client(),
	})
}

func TestFetchRecentBuilds(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/organizations/acme/pipelines/deploy/builds", r.URL.Path)
		assert.Equal(t, "30", r.URL.Query().Get("per_page"))
		assert.Empty(t, r.URL.Query().Get("branch"))
		assert.Equal(t, "Bearer bk-token", r.Header.Get("Authorization"))
		w.Write([]byte(buildsJSON))
	})

	ref := provider.ProjectRef{Kind: provider.KindBuildkite, Slug: "acme/deploy"}
	raws, err := p.FetchRecentBuilds(context.Background(), ref, 30)
	require.NoError(t, err)
	require.Len(t, raws, 2)

	first := raws[0]
	assert.Equal(t, "4091", first.ID)
	assert.Equal(t, int64(4091), first.Number)
	assert.Equal(t, "buildkite:acme/deploy", first.Project)
	assert.Equal(t, "main", first.Branch)
	assert.Equal(t, "Deploy", first.Pipeline)
	assert.Equal(t, "failed", first.Status)
	require.NotNil(t, first.StartedAt)
	assert.Equal(t, 5, first.StartedAt.Second())
	require.NotNil(t, first.FinishedAt)

	// scheduled builds have no start time yet; creation time stands in
	second := raws[1]
	require.NotNil(t, second.StartedAt)
	assert.Equal(t, 59, second.StartedAt.Minute())
	assert.Nil(t, second.FinishedAt)
}

func TestFetchRecentBuilds_BranchFilter(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "main", r.URL.Query().Get("branch"))
		w.Write([]byte(buildsJSON))
	})

	ref := provider.ProjectRef{Kind: provider.KindBuildkite, Slug: "acme/deploy", Branches: []string{"main"}}
	raws, err := p.FetchRecentBuilds(context.Background(), ref, 10)
	require.NoError(t, err)
	require.Len(t, raws, 1)
	assert.Equal(t, "main", raws[0].Branch)
}

func TestFetchRecentBuilds_Errors(t *testing.T) {
	tests := []struct {
		name string
		code int
		want error
	}{
		{"unauthorized", http.StatusUnauthorized, provider.ErrProviderRejected},
		{"not found", http.StatusNotFound, provider.ErrProviderRejected},
		{"rate limited", http.StatusTooManyRequests, provider.ErrProviderUnavailable},
		{"server error", http.StatusInternalServerError, provider.ErrProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"message":"nope"}`, tt.code)
			})
			ref := provider.ProjectRef{Kind: provider.KindBuildkite, Slug: "acme/deploy"}
			_, err := p.FetchRecentBuilds(context.Background(), ref, 10)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestFetchRecentBuilds_InvalidInput(t *testing.T) {
	p := NewProvider("token")

	_, err := p.FetchRecentBuilds(context.Background(), provider.ProjectRef{Kind: provider.KindBuildkite, Slug: "acme"}, 10)
	assert.True(t, errors.Is(err, provider.ErrInvalidRef))

	_, err = p.FetchRecentBuilds(context.Background(), provider.ProjectRef{Kind: provider.KindBuildkite, Slug: "acme/deploy"}, 0)
	assert.True(t, errors.Is(err, provider.ErrConfiguration))
}

func TestRegistered(t *testing.T) {
	p, err := provider.New(provider.KindBuildkite, provider.Settings{Token: "x"})
	require.NoError(t, err)
	assert.Equal(t, provider.KindBuildkite, p.Kind())
}
