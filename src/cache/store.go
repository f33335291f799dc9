// Package cache persists the last known builds of each project so a restart
// or an unreachable provider still has something to show.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cistat/src/status"
)

// ErrNotFound is returned by Load when nothing is cached for a project.
var ErrNotFound = errors.New("no cached builds")

// Store defines the interface for the build cache.
type Store interface {
	// Load returns the cached records for project and when they were saved.
	Load(ctx context.Context, project string) ([]status.BuildRecord, time.Time, error)

	// Save replaces the cached records for project.
	Save(ctx context.Context, project string, records []status.BuildRecord, savedAt time.Time) error

	// Projects lists every cached project.
	Projects(ctx context.Context) ([]string, error)

	// Clear removes every cached entry.
	Clear(ctx context.Context) error

	// Close closes the store connection
	Close() error
}

// Open selects a store by target: "memory" or empty for an in-memory cache,
// a postgres:// or postgresql:// DSN for Postgres, anything else is a SQLite file path.
func Open(target string) (Store, error) {
	switch {
	case target == "" || target == "memory":
		return NewMemoryStore(), nil
	case strings.HasPrefix(target, "postgres://"), strings.HasPrefix(target, "postgresql://"):
		return NewPostgresStore(target)
	default:
		return NewSQLiteStore(target)
	}
}

func encode(records []status.BuildRecord) (string, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("failed to encode records: %w", err)
	}
	return string(data), nil
}

func decode(data string) ([]status.BuildRecord, error) {
	var records []status.BuildRecord
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}
	return records, nil
}
