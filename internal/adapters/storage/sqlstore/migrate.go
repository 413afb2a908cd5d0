package sqlstore

import (
	"context"
	"fmt"
)

// schema is valid for both PostgreSQL and SQLite. created_at holds epoch
// milliseconds so cursor watermarks compare exactly.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS quotes (
		id         TEXT PRIMARY KEY,
		author     TEXT NOT NULL,
		quote      TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		version    INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE INDEX IF NOT EXISTS quotes_created_at_idx ON quotes (created_at)`,
}

// Migrate creates the quotes table and its index when missing.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}

	return nil
}
