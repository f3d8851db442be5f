package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/taskboard/internal/domain"
)

const taskColumns = `id, board_id, title, status, ord, owner_id, version, created_at, updated_at`

const pgUniqueViolation = "23505"

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

// Create inserts t at the placement plan chooses and applies any sibling
// placements in the same transaction.
func (r *TaskRepo) Create(ctx context.Context, t *domain.Task, plan domain.PlanFunc) ([]*domain.Task, error) {
	var changed []*domain.Task

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockBoard(ctx, tx, t.BoardID); err != nil {
			return err
		}
		column, err := lockColumn(ctx, tx, t.BoardID, t.Status)
		if err != nil {
			return err
		}

		candidate := *t
		placements, err := plan(&candidate, column)
		if err != nil {
			return err
		}

		var own *domain.Placement
		rest := make([]domain.Placement, 0, len(placements))
		for i := range placements {
			if placements[i].TaskID == t.ID {
				own = &placements[i]
				continue
			}
			rest = append(rest, placements[i])
		}
		if own == nil {
			return fmt.Errorf("no placement for new task: %w", domain.ErrInvalidOrder)
		}

		inserted, err := scanTask(tx.QueryRow(ctx,
			`INSERT INTO tasks (id, board_id, title, status, ord, owner_id, version, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $8)
			 RETURNING `+taskColumns,
			t.ID, t.BoardID, t.Title, own.Status, own.Order, t.OwnerID,
			t.CreatedAt, t.UpdatedAt,
		))
		if err != nil {
			return fmt.Errorf("insert: %w", err)
		}

		siblings, err := applyPlacements(ctx, tx, t.BoardID, rest)
		if err != nil {
			return err
		}
		changed = append([]*domain.Task{inserted}, siblings...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("taskRepo.Create: %w", mapError(err))
	}

	return changed, nil
}

func (r *TaskRepo) GetByID(ctx context.Context, boardID, id uuid.UUID) (*domain.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE board_id = $1 AND id = $2`,
		boardID, id,
	))
	if err != nil {
		return nil, fmt.Errorf("taskRepo.GetByID: %w", mapError(err))
	}

	return t, nil
}

// listByBoardQuery reads the whole board. Snapshots are authoritative, so the
// result is never truncated.
const listByBoardQuery = `SELECT ` + taskColumns + `
		 FROM tasks WHERE board_id = $1
		 ORDER BY status, ord, id`

func (r *TaskRepo) ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.Task, error) {
	rows, err := r.pool.Query(ctx, listByBoardQuery, boardID)
	if err != nil {
		return nil, fmt.Errorf("taskRepo.ListByBoard: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows, "taskRepo.ListByBoard")
}

// Update writes the title. Status and order only change through Reposition.
func (r *TaskRepo) Update(ctx context.Context, t *domain.Task) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE tasks SET title = $1, version = version + 1, updated_at = now()
		 WHERE board_id = $2 AND id = $3
		 RETURNING version, updated_at`,
		t.Title, t.BoardID, t.ID,
	).Scan(&t.Version, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("taskRepo.Update: %w", mapError(err))
	}

	return nil
}

// Reposition serializes on the board lock, hands the locked destination
// column to plan and applies its placements in one transaction.
func (r *TaskRepo) Reposition(ctx context.Context, boardID, id uuid.UUID, status domain.Status, plan domain.PlanFunc) ([]*domain.Task, error) {
	var changed []*domain.Task

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockBoard(ctx, tx, boardID); err != nil {
			return err
		}

		task, err := scanTask(tx.QueryRow(ctx,
			`SELECT `+taskColumns+` FROM tasks WHERE board_id = $1 AND id = $2 FOR UPDATE`,
			boardID, id,
		))
		if err != nil {
			return err
		}
		column, err := lockColumn(ctx, tx, boardID, status)
		if err != nil {
			return err
		}

		placements, err := plan(task, column)
		if err != nil {
			return err
		}
		if len(placements) == 0 {
			return nil
		}

		changed, err = applyPlacements(ctx, tx, boardID, placements)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("taskRepo.Reposition: %w", mapError(err))
	}

	return changed, nil
}

// Delete removes a task and returns its last state.
func (r *TaskRepo) Delete(ctx context.Context, boardID, id uuid.UUID) (*domain.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx,
		`DELETE FROM tasks WHERE board_id = $1 AND id = $2 RETURNING `+taskColumns,
		boardID, id,
	))
	if err != nil {
		return nil, fmt.Errorf("taskRepo.Delete: %w", mapError(err))
	}

	return t, nil
}

// lockBoard takes a transaction-scoped advisory lock so placement decisions
// on one board never interleave.
func lockBoard(ctx context.Context, tx pgx.Tx, boardID uuid.UUID) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, boardID.String()); err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	return nil
}

func lockColumn(ctx context.Context, tx pgx.Tx, boardID uuid.UUID, status domain.Status) ([]*domain.Task, error) {
	rows, err := tx.Query(ctx,
		`SELECT `+taskColumns+`
		 FROM tasks WHERE board_id = $1 AND status = $2
		 ORDER BY ord, id
		 FOR UPDATE`,
		boardID, status,
	)
	if err != nil {
		return nil, fmt.Errorf("lock column: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows, "lock column")
}

func applyPlacements(ctx context.Context, tx pgx.Tx, boardID uuid.UUID, placements []domain.Placement) ([]*domain.Task, error) {
	if len(placements) == 0 {
		return nil, nil
	}

	batch := &pgx.Batch{}
	for _, p := range placements {
		batch.Queue(
			`UPDATE tasks SET status = $1, ord = $2, version = version + 1, updated_at = now()
			 WHERE board_id = $3 AND id = $4
			 RETURNING `+taskColumns,
			p.Status, p.Order, boardID, p.TaskID,
		)
	}

	br := tx.SendBatch(ctx, batch)
	defer br.Close()

	out := make([]*domain.Task, 0, len(placements))
	for _, p := range placements {
		t, err := scanTask(br.QueryRow())
		if err != nil {
			return nil, fmt.Errorf("place %s: %w", p.TaskID, err)
		}
		out = append(out, t)
	}
	if err := br.Close(); err != nil {
		return nil, fmt.Errorf("place: %w", err)
	}

	return out, nil
}

func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	if err := row.Scan(
		&t.ID, &t.BoardID, &t.Title, &t.Status, &t.Order, &t.OwnerID,
		&t.Version, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTasks(rows pgx.Rows, caller string) ([]*domain.Task, error) {
	var tasks []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return tasks, nil
}
