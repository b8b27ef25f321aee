package store

import (
	"context"
	"errors"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS notes (
		id TEXT PRIMARY KEY,
		message TEXT NOT NULL,
		author TEXT,
		created_at INTEGER NOT NULL,
		ip_hash TEXT NOT NULL,
		user_agent TEXT,
		client_id TEXT
	);`,
	`CREATE INDEX IF NOT EXISTS idx_notes_created_at ON notes(created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_notes_ip_hash ON notes(ip_hash);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	return nil
}
