// Package memory holds in-process repositories used when the server runs
// without Postgres and as the store behind the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/taskboard/internal/domain"
)

// TaskRepo keeps tasks in a map. A single mutex serializes every mutation,
// which is the in-process counterpart of the Postgres board lock.
type TaskRepo struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task
}

func NewTaskRepo() *TaskRepo {
	return &TaskRepo{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (r *TaskRepo) Create(_ context.Context, t *domain.Task, plan domain.PlanFunc) ([]*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[t.ID]; ok {
		return nil, fmt.Errorf("memory.TaskRepo.Create: %w", domain.ErrConflict)
	}

	placements, err := plan(clone(t), r.column(t.BoardID, t.Status))
	if err != nil {
		return nil, fmt.Errorf("memory.TaskRepo.Create: %w", err)
	}

	inserted := clone(t)
	inserted.Version = 0
	changed, err := r.apply(t.BoardID, placements, inserted)
	if err != nil {
		return nil, fmt.Errorf("memory.TaskRepo.Create: %w", err)
	}
	return changed, nil
}

func (r *TaskRepo) GetByID(_ context.Context, boardID, id uuid.UUID) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok || t.BoardID != boardID {
		return nil, fmt.Errorf("memory.TaskRepo.GetByID: %w", domain.ErrNotFound)
	}
	return clone(t), nil
}

func (r *TaskRepo) ListByBoard(_ context.Context, boardID uuid.UUID) ([]*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Task
	for _, t := range r.tasks {
		if t.BoardID == boardID {
			out = append(out, clone(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Status != b.Status {
			return a.Status < b.Status
		}
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.ID.String() < b.ID.String()
	})
	return out, nil
}

func (r *TaskRepo) Update(_ context.Context, t *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.tasks[t.ID]
	if !ok || cur.BoardID != t.BoardID {
		return fmt.Errorf("memory.TaskRepo.Update: %w", domain.ErrNotFound)
	}
	cur.Title = t.Title
	cur.Version++
	cur.UpdatedAt = time.Now()

	*t = *clone(cur)
	return nil
}

func (r *TaskRepo) Reposition(_ context.Context, boardID, id uuid.UUID, status domain.Status, plan domain.PlanFunc) ([]*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.tasks[id]
	if !ok || cur.BoardID != boardID {
		return nil, fmt.Errorf("memory.TaskRepo.Reposition: %w", domain.ErrNotFound)
	}

	placements, err := plan(clone(cur), r.column(boardID, status))
	if err != nil {
		return nil, fmt.Errorf("memory.TaskRepo.Reposition: %w", err)
	}
	if len(placements) == 0 {
		return nil, nil
	}

	changed, err := r.apply(boardID, placements, nil)
	if err != nil {
		return nil, fmt.Errorf("memory.TaskRepo.Reposition: %w", err)
	}
	return changed, nil
}

func (r *TaskRepo) Delete(_ context.Context, boardID, id uuid.UUID) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok || t.BoardID != boardID {
		return nil, fmt.Errorf("memory.TaskRepo.Delete: %w", domain.ErrNotFound)
	}
	delete(r.tasks, id)
	return clone(t), nil
}

// column returns copies of the tasks in (boardID, status). Callers hold mu.
func (r *TaskRepo) column(boardID uuid.UUID, status domain.Status) []*domain.Task {
	var out []*domain.Task
	for _, t := range r.tasks {
		if t.BoardID == boardID && t.Status == status {
			out = append(out, clone(t))
		}
	}
	return out
}

// apply stages every placement, checks that no column ends up with two
// equal orders, then commits them all at once. inserted, when set, is a new
// task that the placements position. Callers hold mu.
func (r *TaskRepo) apply(boardID uuid.UUID, placements []domain.Placement, inserted *domain.Task) ([]*domain.Task, error) {
	now := time.Now()
	staged := make(map[uuid.UUID]*domain.Task, len(placements)+1)
	if inserted != nil {
		staged[inserted.ID] = inserted
	}

	changed := make([]*domain.Task, 0, len(placements))
	for _, p := range placements {
		if !p.Status.Valid() {
			return nil, domain.ErrInvalidStatus
		}
		t, ok := staged[p.TaskID]
		if !ok {
			cur, exists := r.tasks[p.TaskID]
			if !exists || cur.BoardID != boardID {
				return nil, fmt.Errorf("placement for %s: %w", p.TaskID, domain.ErrNotFound)
			}
			t = clone(cur)
			staged[t.ID] = t
		}
		t.Status = p.Status
		t.Order = p.Order
		t.Version++
		t.UpdatedAt = now
		changed = append(changed, t)
	}
	if inserted != nil && inserted.Version == 0 {
		return nil, fmt.Errorf("no placement for new task: %w", domain.ErrInvalidOrder)
	}

	if err := r.checkDistinct(boardID, staged); err != nil {
		return nil, err
	}
	for id, t := range staged {
		r.tasks[id] = t
	}

	changed = dedupe(changed)
	out := make([]*domain.Task, len(changed))
	for i, t := range changed {
		out[i] = clone(t)
	}
	return out, nil
}

// checkDistinct verifies that, with staged applied, no two tasks of the board
// share a (status, order) slot.
func (r *TaskRepo) checkDistinct(boardID uuid.UUID, staged map[uuid.UUID]*domain.Task) error {
	type slot struct {
		status domain.Status
		order  float64
	}
	taken := make(map[slot]uuid.UUID)
	claim := func(t *domain.Task) error {
		k := slot{status: t.Status, order: t.Order}
		if other, ok := taken[k]; ok && other != t.ID {
			return fmt.Errorf("order %v taken in %s: %w", t.Order, t.Status, domain.ErrConflict)
		}
		taken[k] = t.ID
		return nil
	}

	for id, t := range r.tasks {
		if t.BoardID != boardID {
			continue
		}
		if s, ok := staged[id]; ok {
			t = s
		}
		if err := claim(t); err != nil {
			return err
		}
	}
	for id, t := range staged {
		if _, ok := r.tasks[id]; ok {
			continue
		}
		if err := claim(t); err != nil {
			return err
		}
	}
	return nil
}

// dedupe keeps the last copy of each task, in first-seen order.
func dedupe(tasks []*domain.Task) []*domain.Task {
	last := make(map[uuid.UUID]*domain.Task, len(tasks))
	for _, t := range tasks {
		last[t.ID] = t
	}
	out := make([]*domain.Task, 0, len(last))
	for _, t := range tasks {
		if c, ok := last[t.ID]; ok {
			out = append(out, c)
			delete(last, t.ID)
		}
	}
	return out
}

func clone(t *domain.Task) *domain.Task {
	c := *t
	return &c
}
