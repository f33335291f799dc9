package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cistat/src/status"
)

func sampleRecords() []status.BuildRecord {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	finished := started.Add(90 * time.Second)
	return []status.BuildRecord{
		{
			ID:         "42",
			Number:     42,
			Project:    "circleci:acme/api",
			Provider:   "circleci",
			Branch:     "main",
			Commit:     "abc1234",
			Status:     status.Passed,
			StartedAt:  &started,
			FinishedAt: &finished,
		},
		{
			ID:        "43",
			Number:    43,
			Project:   "circleci:acme/api",
			Provider:  "circleci",
			Branch:    "feature-x",
			Status:    status.Running,
			StartedAt: &finished,
		},
	}
}

// exerciseStore runs the behaviour every Store implementation shares.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	savedAt := time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)

	_, _, err := s.Load(ctx, "circleci:acme/api")
	assert.True(t, errors.Is(err, ErrNotFound), "Load() on empty store error = %v, want ErrNotFound", err)

	require.NoError(t, s.Save(ctx, "circleci:acme/api", sampleRecords(), savedAt))

	got, gotAt, err := s.Load(ctx, "circleci:acme/api")
	require.NoError(t, err)
	assert.True(t, gotAt.Equal(savedAt), "savedAt = %v, want %v", gotAt, savedAt)
	require.Len(t, got, 2)
	assert.Equal(t, "42", got[0].ID)
	assert.Equal(t, status.Passed, got[0].Status)
	assert.Equal(t, status.Running, got[1].Status)
	assert.Nil(t, got[1].FinishedAt)
	require.NotNil(t, got[0].FinishedAt)
	assert.True(t, got[0].FinishedAt.Equal(*sampleRecords()[0].FinishedAt))

	// Save replaces rather than appends
	require.NoError(t, s.Save(ctx, "circleci:acme/api", sampleRecords()[:1], savedAt.Add(time.Minute)))
	got, gotAt, err = s.Load(ctx, "circleci:acme/api")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.True(t, gotAt.Equal(savedAt.Add(time.Minute)))

	require.NoError(t, s.Save(ctx, "github:acme/web", nil, savedAt))
	projects, err := s.Projects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"circleci:acme/api", "github:acme/web"}, projects)

	require.NoError(t, s.Clear(ctx))
	projects, err = s.Projects(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	exerciseStore(t, s)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	records := sampleRecords()
	require.NoError(t, s.Save(ctx, "p", records, time.Now()))
	records[0].Branch = "mutated"

	got, _, err := s.Load(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, "main", got[0].Branch)

	got[0].Branch = "mutated again"
	again, _, err := s.Load(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, "main", again[0].Branch)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	exerciseStore(t, s)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")
	savedAt := time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "circleci:acme/api", sampleRecords(), savedAt))
	require.NoError(t, s.Close())

	// migrations already applied; reopening must not fail
	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	got, gotAt, err := s.Load(ctx, "circleci:acme/api")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.True(t, gotAt.Equal(savedAt))
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("CISTAT_TEST_POSTGRES")
	if dsn == "" {
		t.Skip("CISTAT_TEST_POSTGRES not set")
	}
	s, err := NewPostgresStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Clear(context.Background()))

	exerciseStore(t, s)
}

func TestOpen(t *testing.T) {
	for _, target := range []string{"", "memory"} {
		s, err := Open(target)
		require.NoError(t, err)
		_, ok := s.(*MemoryStore)
		assert.True(t, ok, "Open(%q) = %T, want *MemoryStore", target, s)
	}

	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()
	_, ok := s.(*SQLiteStore)
	assert.True(t, ok, "Open(%q) = %T, want *SQLiteStore", path, s)
}
