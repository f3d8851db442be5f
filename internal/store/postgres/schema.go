package postgres

import (
	"context"
	"fmt"
)

// The unique slot constraint is deferred so a rebalance may pass through
// transient duplicates inside its transaction.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
    id         UUID PRIMARY KEY,
    board_id   UUID NOT NULL,
    title      TEXT NOT NULL,
    status     TEXT NOT NULL CHECK (status IN ('backlog', 'todo', 'doing', 'done')),
    ord        DOUBLE PRECISION NOT NULL CHECK (ord = ord AND ord NOT IN ('Infinity', '-Infinity')),
    owner_id   UUID NOT NULL,
    version    BIGINT NOT NULL DEFAULT 1,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT tasks_board_slot UNIQUE (board_id, status, ord) DEFERRABLE INITIALLY DEFERRED
)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_board ON tasks (board_id, status, ord)`,

	`CREATE TABLE IF NOT EXISTS audit_log (
    id         UUID PRIMARY KEY,
    board_id   UUID NOT NULL,
    actor_id   UUID NOT NULL,
    action     TEXT NOT NULL,
    task_id    UUID NOT NULL,
    details    JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_board ON audit_log (board_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_task ON audit_log (board_id, task_id, created_at DESC)`,
}

// Migrate creates the tables if they don't exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres.Store.Migrate: %w", err)
		}
	}
	return nil
}
