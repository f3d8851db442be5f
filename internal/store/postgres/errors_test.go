package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/gosuda/taskboard/internal/domain"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), domain.ErrNotFound},
		{"duplicate id", &pgconn.PgError{Code: "23505", ConstraintName: "tasks_pkey"}, domain.ErrConflict},
		{"slot taken at commit", fmt.Errorf("commit: %w", &pgconn.PgError{Code: "23505", ConstraintName: "tasks_board_slot"}), domain.ErrConflict},
		{"plan error kept", domain.ErrInvalidStatus, domain.ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, mapError(tt.err), tt.want)
		})
	}

	t.Run("other pg errors pass through", func(t *testing.T) {
		t.Parallel()

		pgErr := &pgconn.PgError{Code: "40001"}
		got := mapError(pgErr)
		var target *pgconn.PgError
		assert.True(t, errors.As(got, &target))
		assert.NotErrorIs(t, got, domain.ErrConflict)
	})
}

func TestSchema_DeclaresSlotConstraint(t *testing.T) {
	t.Parallel()

	assert.Contains(t, schema[0], "UNIQUE (board_id, status, ord) DEFERRABLE INITIALLY DEFERRED")
	assert.Contains(t, schema[0], "CHECK (status IN ('backlog', 'todo', 'doing', 'done'))")
}
