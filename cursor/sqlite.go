package cursor

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore keeps one cursor row per feed in a sqlite database
type SQLiteStore struct {
	db   *sql.DB
	feed string
}

// NewSQLiteStore opens (and initializes) the database at dbPath; feed keys the row
func NewSQLiteStore(dbPath, feed string) (*SQLiteStore, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cursor directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cursor database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cursor schema: %w", err)
	}

	return &SQLiteStore{db: db, feed: feed}, nil
}

func (s *SQLiteStore) Read(ctx context.Context) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		"SELECT post_id FROM cursors WHERE feed = ?", s.feed,
	).Scan(&id)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cursor for '%s': %w", s.feed, err)
	}
	return id, true, nil
}

func (s *SQLiteStore) Write(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("refusing to write an empty cursor")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO cursors
		(feed, post_id, updated_at)
		VALUES (?, ?, ?)
	`, s.feed, id, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to write cursor for '%s': %w", s.feed, err)
	}
	return nil
}

// Close closes the cursor database
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
