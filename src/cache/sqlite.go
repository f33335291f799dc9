package cache

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"cistat/src/status"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore keeps the cache in a local SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (creating if needed) the cache file at path and applies migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	// a single connection avoids "database is locked" between watch cycles
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping cache: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// runMigrations applies all pending migrations embedded in the binary.
func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Load returns the cached records for project.
func (s *SQLiteStore) Load(ctx context.Context, project string) ([]status.BuildRecord, time.Time, error) {
	var data, savedText string
	err := s.db.QueryRowContext(ctx,
		`SELECT records, saved_at FROM project_builds WHERE project = ?`, project,
	).Scan(&data, &savedText)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, fmt.Errorf("%w: %s", ErrNotFound, project)
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to load cache: %w", err)
	}

	savedAt, err := time.Parse(time.RFC3339Nano, savedText)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to parse saved_at %q: %w", savedText, err)
	}

	records, err := decode(data)
	if err != nil {
		return nil, time.Time{}, err
	}
	return records, savedAt, nil
}

// Save replaces the cached records for project.
func (s *SQLiteStore) Save(ctx context.Context, project string, records []status.BuildRecord, savedAt time.Time) error {
	data, err := encode(records)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO project_builds (project, records, saved_at)
		VALUES (?, ?, ?)
		ON CONFLICT (project) DO UPDATE SET records = excluded.records, saved_at = excluded.saved_at
	`, project, data, savedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save cache: %w", err)
	}
	return nil
}

// Projects lists cached projects, sorted.
func (s *SQLiteStore) Projects(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT project FROM project_builds ORDER BY project`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache: %w", err)
	}
	defer rows.Close()

	var projects []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// Clear removes every entry.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM project_builds`); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
