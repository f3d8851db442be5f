package board_test

import (
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/taskboard/internal/board"
	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/ordering"
)

func task(status domain.Status, order float64) domain.Task {
	return domain.Task{ID: uuid.New(), Title: "t", Status: status, Order: order}
}

// applyPlacements returns tasks with the placements applied.
func applyPlacements(tasks []domain.Task, placements []domain.Placement) []domain.Task {
	out := make([]domain.Task, len(tasks))
	copy(out, tasks)
	for _, p := range placements {
		for i := range out {
			if out[i].ID == p.TaskID {
				out[i].Status = p.Status
				out[i].Order = p.Order
			}
		}
	}
	return out
}

func ptrs(tasks []domain.Task) []*domain.Task {
	out := make([]*domain.Task, len(tasks))
	for i := range tasks {
		out[i] = &tasks[i]
	}
	return out
}

// ---------------------------------------------------------------------------
// Columns
// ---------------------------------------------------------------------------

func TestColumns(t *testing.T) {
	t.Parallel()

	t.Run("groups in fixed column order and sorts by order", func(t *testing.T) {
		t.Parallel()

		b1 := task(domain.StatusBacklog, 20)
		b2 := task(domain.StatusBacklog, 10)
		d1 := task(domain.StatusDoing, 5)
		x := task(domain.StatusDone, 1)

		b := board.Columns([]domain.Task{b1, d1, b2, x})

		require.Len(t, b.Columns, 4)
		assert.Equal(t, domain.StatusBacklog, b.Columns[0].Status)
		assert.Equal(t, domain.StatusTodo, b.Columns[1].Status)
		assert.Equal(t, domain.StatusDoing, b.Columns[2].Status)
		assert.Equal(t, domain.StatusDone, b.Columns[3].Status)

		assert.Equal(t, []uuid.UUID{b2.ID, b1.ID}, b.Column(domain.StatusBacklog).IDs())
		assert.Empty(t, b.Column(domain.StatusTodo).Tasks)
		assert.Equal(t, []uuid.UUID{d1.ID}, b.Column(domain.StatusDoing).IDs())
		assert.Equal(t, 4, b.Len())
	})

	t.Run("unknown status dropped", func(t *testing.T) {
		t.Parallel()

		odd := task(domain.Status("archived"), 1)
		b := board.Columns([]domain.Task{odd})
		assert.Equal(t, 0, b.Len())
	})

	t.Run("equal orders compare by id", func(t *testing.T) {
		t.Parallel()

		a := domain.Task{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), Status: domain.StatusTodo, Order: 7}
		z := domain.Task{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), Status: domain.StatusTodo, Order: 7}

		first := board.Columns([]domain.Task{z, a})
		second := board.Columns([]domain.Task{a, z})
		assert.Equal(t, []uuid.UUID{a.ID, z.ID}, first.Column(domain.StatusTodo).IDs())
		assert.Equal(t, first.Column(domain.StatusTodo).IDs(), second.Column(domain.StatusTodo).IDs())
		assert.True(t, board.Less(&a, &z))
		assert.False(t, board.Less(&z, &a))
	})

	t.Run("find reports column index", func(t *testing.T) {
		t.Parallel()

		a := task(domain.StatusTodo, 1)
		c := task(domain.StatusTodo, 2)
		b := board.Columns([]domain.Task{c, a})

		got, idx, ok := b.Find(c.ID)
		require.True(t, ok)
		assert.Equal(t, c.ID, got.ID)
		assert.Equal(t, 1, idx)

		_, _, ok = b.Find(uuid.New())
		assert.False(t, ok)
	})
}

// ---------------------------------------------------------------------------
// PlanInsert
// ---------------------------------------------------------------------------

func TestPlanInsert(t *testing.T) {
	t.Parallel()

	t.Run("empty column gets initial rank", func(t *testing.T) {
		t.Parallel()

		id := uuid.New()
		plan := board.PlanInsert(board.Column{Status: domain.StatusDoing}, id, 0)

		assert.False(t, plan.Noop)
		assert.Equal(t, ordering.Initial(), plan.Request)
		assert.Equal(t, []domain.Placement{{TaskID: id, Status: domain.StatusDoing, Order: ordering.Initial()}}, plan.Placements)
	})

	t.Run("between 10 and 20 is strictly inside", func(t *testing.T) {
		t.Parallel()

		b := task(domain.StatusTodo, 10)
		c := task(domain.StatusTodo, 20)
		col := board.Columns([]domain.Task{b, c}).Column(domain.StatusTodo)

		plan := board.PlanInsert(col, uuid.New(), 1)

		assert.Greater(t, plan.Request, 10.0)
		assert.Less(t, plan.Request, 20.0)
		assert.Equal(t, 15.0, plan.Request)
	})

	t.Run("front and back use boundary ranks", func(t *testing.T) {
		t.Parallel()

		b := task(domain.StatusTodo, 10)
		c := task(domain.StatusTodo, 20)
		col := board.Columns([]domain.Task{b, c}).Column(domain.StatusTodo)

		front := board.PlanInsert(col, uuid.New(), 0)
		back := board.PlanInsert(col, uuid.New(), 2)
		clamped := board.PlanInsert(col, uuid.New(), 99)

		assert.Less(t, front.Request, 10.0)
		assert.Greater(t, back.Request, 20.0)
		assert.Equal(t, back.Request, clamped.Request)
	})

	t.Run("own slot is a noop", func(t *testing.T) {
		t.Parallel()

		a := task(domain.StatusTodo, 10)
		b := task(domain.StatusTodo, 20)
		col := board.Columns([]domain.Task{a, b}).Column(domain.StatusTodo)

		plan := board.PlanInsert(col, b.ID, 1)
		assert.True(t, plan.Noop)
		assert.Empty(t, plan.Placements)
	})

	t.Run("reorder within column excludes itself", func(t *testing.T) {
		t.Parallel()

		a := task(domain.StatusTodo, 10)
		b := task(domain.StatusTodo, 20)
		c := task(domain.StatusTodo, 30)
		col := board.Columns([]domain.Task{a, b, c}).Column(domain.StatusTodo)

		// Move c between a and b: after removal the slot is index 1.
		plan := board.PlanInsert(col, c.ID, 1)
		assert.Equal(t, 15.0, plan.Request)
	})

	t.Run("exhausted gap anchors on lower neighbour and rebalances", func(t *testing.T) {
		t.Parallel()

		lo := task(domain.StatusTodo, 1)
		hi := task(domain.StatusTodo, math.Nextafter(1, 2))
		moved := task(domain.StatusBacklog, 5)
		tasks := []domain.Task{lo, hi, moved}
		col := board.Columns(tasks).Column(domain.StatusTodo)

		plan := board.PlanInsert(col, moved.ID, 1)

		assert.Equal(t, lo.Order, plan.Request)
		require.Len(t, plan.Placements, 3)

		after := board.Columns(applyPlacements(tasks, plan.Placements)).Column(domain.StatusTodo)
		assert.Equal(t, []uuid.UUID{lo.ID, moved.ID, hi.ID}, after.IDs())
		assert.Equal(t, ordering.Spaced(3), []float64{after.Tasks[0].Order, after.Tasks[1].Order, after.Tasks[2].Order})
	})
}

// ---------------------------------------------------------------------------
// Resolve
// ---------------------------------------------------------------------------

func TestResolve(t *testing.T) {
	t.Parallel()

	t.Run("identical move is a noop", func(t *testing.T) {
		t.Parallel()

		a := task(domain.StatusTodo, 10)
		col := []domain.Task{a}

		got, err := board.Resolve(&col[0], ptrs(col), domain.StatusTodo, 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("free rank taken as requested", func(t *testing.T) {
		t.Parallel()

		a := task(domain.StatusTodo, 10)
		moved := task(domain.StatusBacklog, 3)

		got, err := board.Resolve(&moved, ptrs([]domain.Task{a}), domain.StatusTodo, 15)
		require.NoError(t, err)
		assert.Equal(t, []domain.Placement{{TaskID: moved.ID, Status: domain.StatusTodo, Order: 15}}, got)
	})

	t.Run("collision placed right after collider", func(t *testing.T) {
		t.Parallel()

		a := task(domain.StatusDoing, 10)
		x := task(domain.StatusDoing, 15)
		c := task(domain.StatusDoing, 20)
		y := task(domain.StatusBacklog, 1)

		got, err := board.Resolve(&y, ptrs([]domain.Task{a, x, c}), domain.StatusDoing, 15)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Greater(t, got[0].Order, 15.0)
		assert.Less(t, got[0].Order, 20.0)
	})

	t.Run("collision at the end appends", func(t *testing.T) {
		t.Parallel()

		a := task(domain.StatusDoing, 10)
		y := task(domain.StatusBacklog, 1)

		got, err := board.Resolve(&y, ptrs([]domain.Task{a}), domain.StatusDoing, 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Greater(t, got[0].Order, 10.0)
	})

	t.Run("exhausted gap rebalances whole column atomically", func(t *testing.T) {
		t.Parallel()

		lo := task(domain.StatusDoing, 1)
		hi := task(domain.StatusDoing, math.Nextafter(1, 2))
		moved := task(domain.StatusBacklog, 9)
		all := []domain.Task{lo, hi, moved}

		got, err := board.Resolve(&all[2], ptrs(all[:2]), domain.StatusDoing, lo.Order)
		require.NoError(t, err)
		require.Len(t, got, 3)

		after := board.Columns(applyPlacements(all, got)).Column(domain.StatusDoing)
		assert.Equal(t, []uuid.UUID{lo.ID, moved.ID, hi.ID}, after.IDs())
		for i, tk := range after.Tasks {
			assert.Equal(t, ordering.Step*float64(i+1), tk.Order)
		}
	})

	t.Run("out of bounds rank rebalances", func(t *testing.T) {
		t.Parallel()

		a := task(domain.StatusTodo, ordering.Step)
		moved := task(domain.StatusBacklog, 1)
		all := []domain.Task{a, moved}

		got, err := board.Resolve(&all[1], ptrs(all[:1]), domain.StatusTodo, -ordering.Limit*2)
		require.NoError(t, err)

		after := board.Columns(applyPlacements(all, got)).Column(domain.StatusTodo)
		assert.Equal(t, []uuid.UUID{moved.ID, a.ID}, after.IDs())
		// a shifts from Step to 2*Step.
		assert.Len(t, got, 2)
	})

	t.Run("rebalance skips tasks already in place", func(t *testing.T) {
		t.Parallel()

		a := task(domain.StatusTodo, ordering.Step)
		moved := task(domain.StatusBacklog, 1)
		all := []domain.Task{a, moved}

		got, err := board.Resolve(&all[1], ptrs(all[:1]), domain.StatusTodo, ordering.Limit*2)
		require.NoError(t, err)
		assert.Equal(t, []domain.Placement{{TaskID: moved.ID, Status: domain.StatusTodo, Order: 2 * ordering.Step}}, got)
	})

	t.Run("repeated collision resolves to current slot", func(t *testing.T) {
		t.Parallel()

		a := task(domain.StatusDoing, ordering.Step)
		y := task(domain.StatusDoing, 2*ordering.Step)
		col := []domain.Task{a, y}

		got, err := board.Resolve(&col[1], ptrs(col), domain.StatusDoing, a.Order)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("repeated out of bounds move resolves to current slot", func(t *testing.T) {
		t.Parallel()

		a := task(domain.StatusDoing, ordering.Step)
		y := task(domain.StatusDoing, 2*ordering.Step)
		col := []domain.Task{a, y}

		got, err := board.Resolve(&col[1], ptrs(col), domain.StatusDoing, 5e12)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		t.Parallel()

		moved := task(domain.StatusTodo, 1)
		_, err := board.Resolve(&moved, nil, domain.Status("archived"), 1)
		require.ErrorIs(t, err, domain.ErrInvalidStatus)
	})

	t.Run("rejects non finite order", func(t *testing.T) {
		t.Parallel()

		moved := task(domain.StatusTodo, 1)
		_, err := board.Resolve(&moved, nil, domain.StatusTodo, math.NaN())
		require.ErrorIs(t, err, domain.ErrInvalidOrder)
		_, err = board.Resolve(&moved, nil, domain.StatusTodo, math.Inf(-1))
		require.ErrorIs(t, err, domain.ErrInvalidOrder)
	})

	t.Run("two clients targeting the same slot both survive", func(t *testing.T) {
		t.Parallel()

		p := task(domain.StatusDoing, 10)
		q := task(domain.StatusDoing, 20)
		x := task(domain.StatusBacklog, 1)
		y := task(domain.StatusTodo, 1)
		all := []domain.Task{p, q, x, y}

		// Both clients planned against the same view.
		col := board.Columns(all).Column(domain.StatusDoing)
		planX := board.PlanInsert(col, x.ID, 1)
		planY := board.PlanInsert(col, y.ID, 1)
		require.Equal(t, planX.Request, planY.Request)

		// The store serializes them.
		doing := func() []*domain.Task {
			var out []*domain.Task
			for i := range all {
				if all[i].Status == domain.StatusDoing {
					out = append(out, &all[i])
				}
			}
			return out
		}
		got, err := board.Resolve(&all[2], doing(), domain.StatusDoing, planX.Request)
		require.NoError(t, err)
		all = applyPlacements(all, got)
		got, err = board.Resolve(&all[3], doing(), domain.StatusDoing, planY.Request)
		require.NoError(t, err)
		all = applyPlacements(all, got)

		after := board.Columns(all).Column(domain.StatusDoing)
		assert.Equal(t, []uuid.UUID{p.ID, x.ID, y.ID, q.ID}, after.IDs())
		seen := map[float64]bool{}
		for _, tk := range after.Tasks {
			assert.False(t, seen[tk.Order], "duplicate order %v", tk.Order)
			seen[tk.Order] = true
		}
	})
}

// ---------------------------------------------------------------------------
// Controller
// ---------------------------------------------------------------------------

type staticSource struct{ tasks []domain.Task }

func (s *staticSource) Tasks() []domain.Task { return s.tasks }

type gateFunc func() bool

func (g gateFunc) CanEdit() bool { return g() }

type recordingDispatcher struct {
	intents []board.Intent
	err     error
}

func (d *recordingDispatcher) Dispatch(in board.Intent) error {
	if d.err != nil {
		return d.err
	}
	d.intents = append(d.intents, in)
	return nil
}

func editable() gateFunc { return func() bool { return true } }

func TestController_MoveTo(t *testing.T) {
	t.Parallel()

	t.Run("dispatches move with planned order", func(t *testing.T) {
		t.Parallel()

		a := task(domain.StatusBacklog, 10)
		b := task(domain.StatusBacklog, 20)
		d := &recordingDispatcher{}
		c := board.NewController(&staticSource{tasks: []domain.Task{a, b}}, editable(), d)

		moved, err := c.MoveTo(a.ID, domain.StatusDoing, 0)
		require.NoError(t, err)
		assert.True(t, moved)
		require.Len(t, d.intents, 1)
		assert.Equal(t, board.IntentMove, d.intents[0].Kind)
		assert.Equal(t, a.ID, d.intents[0].TaskID)
		assert.Equal(t, domain.StatusDoing, d.intents[0].Status)
		assert.Equal(t, ordering.Initial(), d.intents[0].Order)
	})

	t.Run("same slot dispatches nothing", func(t *testing.T) {
		t.Parallel()

		a := task(domain.StatusBacklog, 10)
		d := &recordingDispatcher{}
		c := board.NewController(&staticSource{tasks: []domain.Task{a}}, editable(), d)

		moved, err := c.MoveTo(a.ID, domain.StatusBacklog, 0)
		require.NoError(t, err)
		assert.False(t, moved)
		assert.Empty(t, d.intents)
	})

	t.Run("read only viewer is refused", func(t *testing.T) {
		t.Parallel()

		a := task(domain.StatusBacklog, 10)
		d := &recordingDispatcher{}
		c := board.NewController(&staticSource{tasks: []domain.Task{a}}, gateFunc(func() bool { return false }), d)

		_, err := c.MoveTo(a.ID, domain.StatusDoing, 0)
		require.ErrorIs(t, err, board.ErrReadOnly)
		assert.Empty(t, d.intents)
	})

	t.Run("unknown task", func(t *testing.T) {
		t.Parallel()

		c := board.NewController(&staticSource{}, editable(), &recordingDispatcher{})
		_, err := c.MoveTo(uuid.New(), domain.StatusDoing, 0)
		require.ErrorIs(t, err, board.ErrUnknownTask)
	})

	t.Run("invalid column", func(t *testing.T) {
		t.Parallel()

		a := task(domain.StatusBacklog, 10)
		c := board.NewController(&staticSource{tasks: []domain.Task{a}}, editable(), &recordingDispatcher{})
		_, err := c.MoveTo(a.ID, domain.Status("nope"), 0)
		require.ErrorIs(t, err, domain.ErrInvalidStatus)
	})

	t.Run("dispatcher failure is wrapped", func(t *testing.T) {
		t.Parallel()

		a := task(domain.StatusBacklog, 10)
		boom := errors.New("offline")
		c := board.NewController(&staticSource{tasks: []domain.Task{a}}, editable(), &recordingDispatcher{err: boom})

		_, err := c.MoveTo(a.ID, domain.StatusDone, 0)
		require.ErrorIs(t, err, boom)
	})
}

func TestController_Delete(t *testing.T) {
	t.Parallel()

	t.Run("dispatches delete", func(t *testing.T) {
		t.Parallel()

		a := task(domain.StatusTodo, 1)
		d := &recordingDispatcher{}
		c := board.NewController(&staticSource{tasks: []domain.Task{a}}, editable(), d)

		deleted, err := c.Delete(a.ID)
		require.NoError(t, err)
		assert.True(t, deleted)
		require.Len(t, d.intents, 1)
		assert.Equal(t, board.IntentDelete, d.intents[0].Kind)
	})

	t.Run("already gone is a noop", func(t *testing.T) {
		t.Parallel()

		d := &recordingDispatcher{}
		c := board.NewController(&staticSource{}, editable(), d)

		deleted, err := c.Delete(uuid.New())
		require.NoError(t, err)
		assert.False(t, deleted)
		assert.Empty(t, d.intents)
	})

	t.Run("confirmation can decline", func(t *testing.T) {
		t.Parallel()

		a := task(domain.StatusTodo, 1)
		d := &recordingDispatcher{}
		c := board.NewController(&staticSource{tasks: []domain.Task{a}}, editable(), d)
		c.ConfirmDelete = func(domain.Task) bool { return false }

		_, err := c.Delete(a.ID)
		require.ErrorIs(t, err, board.ErrDeleteDeclined)
		assert.Empty(t, d.intents)
	})
}

func TestController_Create(t *testing.T) {
	t.Parallel()

	boardID := uuid.New()
	a := task(domain.StatusTodo, 10)
	d := &recordingDispatcher{}
	c := board.NewController(&staticSource{tasks: []domain.Task{a}}, editable(), d)

	created, err := c.Create(boardID, uuid.New(), "write docs", domain.StatusTodo)
	require.NoError(t, err)
	assert.Greater(t, created.Order, a.Order)
	assert.Equal(t, boardID, created.BoardID)
	require.Len(t, d.intents, 1)
	assert.Equal(t, board.IntentCreate, d.intents[0].Kind)
	assert.Equal(t, created.ID, d.intents[0].Task.ID)

	_, err = c.Create(boardID, uuid.New(), "   ", domain.StatusTodo)
	require.ErrorIs(t, err, domain.ErrInvalidTask)
}
