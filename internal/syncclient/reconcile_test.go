package syncclient_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/gosuda/taskboard/internal/board"
	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/syncclient"
)

var testBoardID = uuid.MustParse("0b0a8d4e-5f3c-4b4e-9d7e-2a6f1c3b9e10")

func task(title string, status domain.Status, order float64) domain.Task {
	return domain.Task{
		ID:      uuid.New(),
		BoardID: testBoardID,
		Title:   title,
		Status:  status,
		Order:   order,
		Version: 1,
	}
}

func bump(t domain.Task, status domain.Status, order float64) domain.Task {
	t.Status = status
	t.Order = order
	t.Version++
	return t
}

func event(typ domain.EventType, tasks ...domain.Task) domain.BoardEvent {
	ev := domain.BoardEvent{Type: typ, BoardID: testBoardID, Editable: true}
	for i := range tasks {
		ev.Tasks = append(ev.Tasks, &tasks[i])
	}
	if len(tasks) > 0 {
		ev.TaskID = tasks[0].ID
	}
	return ev
}

func titles(tasks []domain.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = string(t.Status) + ":" + t.Title
	}
	return out
}

var sortByID = cmpopts.SortSlices(func(a, b domain.Task) bool { return a.ID.String() < b.ID.String() })

func tasksOf(a syncclient.Authoritative) []domain.Task {
	out := make([]domain.Task, 0, len(a.Tasks))
	for _, t := range a.Tasks {
		out = append(out, t)
	}
	return out
}

// ---------------------------------------------------------------------------
// ApplyEvent
// ---------------------------------------------------------------------------

func TestApplyEvent_SnapshotReplaces(t *testing.T) {
	t.Parallel()

	a := task("a", domain.StatusTodo, 1024)
	b := task("b", domain.StatusDone, 1024)

	state := syncclient.ApplyEvent(syncclient.NewAuthoritative(), event(domain.EventSnapshot, a))
	state = syncclient.ApplyEvent(state, event(domain.EventSnapshot, b))

	if diff := cmp.Diff([]domain.Task{b}, tasksOf(state), sortByID); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyEvent_VersionWins(t *testing.T) {
	t.Parallel()

	a := task("a", domain.StatusTodo, 1024)
	moved := bump(a, domain.StatusDoing, 1024)
	state := syncclient.ApplyEvent(syncclient.NewAuthoritative(), event(domain.EventSnapshot, a))

	tests := []struct {
		name string
		ev   domain.BoardEvent
		want domain.Task
	}{
		{name: "newer version applies", ev: event(domain.EventTaskMoved, moved), want: moved},
		{name: "same version ignored", ev: event(domain.EventTaskMoved, bump(a, domain.StatusDone, 1)), want: moved},
	}

	for _, tt := range tests {
		state = syncclient.ApplyEvent(state, tt.ev)
		if diff := cmp.Diff(tt.want, state.Tasks[a.ID]); diff != "" {
			t.Errorf("%s (-want +got):\n%s", tt.name, diff)
		}
	}

	older := a
	older.Title = "older"
	state = syncclient.ApplyEvent(state, event(domain.EventTaskUpdated, older))
	assert.Equal(t, moved, state.Tasks[a.ID])
}

func TestApplyEvent_MultiRecordEventAppliesTogether(t *testing.T) {
	t.Parallel()

	a := task("a", domain.StatusTodo, 1)
	b := task("b", domain.StatusTodo, 1.0000000001)
	state := syncclient.ApplyEvent(syncclient.NewAuthoritative(), event(domain.EventSnapshot, a, b))

	ra := bump(a, domain.StatusTodo, 1024)
	rb := bump(b, domain.StatusTodo, 2048)
	state = syncclient.ApplyEvent(state, event(domain.EventTaskMoved, rb, ra))

	if diff := cmp.Diff([]domain.Task{ra, rb}, tasksOf(state), sortByID); diff != "" {
		t.Errorf("rebalance mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyEvent_DeleteTombstones(t *testing.T) {
	t.Parallel()

	a := task("a", domain.StatusTodo, 1024)
	state := syncclient.ApplyEvent(syncclient.NewAuthoritative(), event(domain.EventSnapshot, a))
	state = syncclient.ApplyEvent(state, event(domain.EventTaskDeleted, a))

	assert.Empty(t, state.Tasks)
	assert.Contains(t, state.Gone, a.ID)

	// Late events for the burned task do not bring it back.
	state = syncclient.ApplyEvent(state, event(domain.EventTaskMoved, bump(a, domain.StatusDone, 1)))
	state = syncclient.ApplyEvent(state, event(domain.EventSnapshot, a))
	assert.Empty(t, state.Tasks)
}

func TestApplyEvent_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	a := task("a", domain.StatusTodo, 1024)
	before := syncclient.ApplyEvent(syncclient.NewAuthoritative(), event(domain.EventSnapshot, a))
	_ = syncclient.ApplyEvent(before, event(domain.EventTaskDeleted, a))

	assert.Contains(t, before.Tasks, a.ID)
	assert.Empty(t, before.Gone)
}

// ---------------------------------------------------------------------------
// Reconcile
// ---------------------------------------------------------------------------

func TestReconcile(t *testing.T) {
	t.Parallel()

	a := task("a", domain.StatusTodo, 1024)
	b := task("b", domain.StatusTodo, 2048)
	c := task("c", domain.StatusDone, 1024)
	gone := task("gone", domain.StatusTodo, 4096)

	base := syncclient.ApplyEvent(syncclient.NewAuthoritative(), event(domain.EventSnapshot, a, b, c, gone))
	base = syncclient.ApplyEvent(base, event(domain.EventTaskDeleted, gone))

	fresh := task("fresh", domain.StatusBacklog, 1024)

	tests := []struct {
		name    string
		pending []board.Intent
		want    []string
	}{
		{
			name: "no pending renders authoritative",
			want: []string{"todo:a", "todo:b", "done:c"},
		},
		{
			name: "move overlays placement",
			pending: []board.Intent{{
				Kind: board.IntentMove, TaskID: b.ID, Status: domain.StatusTodo, Order: 512,
				Placements: []domain.Placement{{TaskID: b.ID, Status: domain.StatusTodo, Order: 512}},
			}},
			want: []string{"todo:b", "todo:a", "done:c"},
		},
		{
			name:    "delete hides task",
			pending: []board.Intent{{Kind: board.IntentDelete, TaskID: a.ID}},
			want:    []string{"todo:b", "done:c"},
		},
		{
			name: "create shows task",
			pending: []board.Intent{{
				Kind: board.IntentCreate, TaskID: fresh.ID, Task: fresh, Status: fresh.Status, Order: fresh.Order,
				Placements: []domain.Placement{{TaskID: fresh.ID, Status: fresh.Status, Order: fresh.Order}},
			}},
			want: []string{"backlog:fresh", "todo:a", "todo:b", "done:c"},
		},
		{
			name: "later intents apply on top of earlier ones",
			pending: []board.Intent{
				{
					Kind: board.IntentMove, TaskID: a.ID, Status: domain.StatusDoing, Order: 1024,
					Placements: []domain.Placement{{TaskID: a.ID, Status: domain.StatusDoing, Order: 1024}},
				},
				{Kind: board.IntentDelete, TaskID: a.ID},
			},
			want: []string{"todo:b", "done:c"},
		},
		{
			name: "move of a burned task is dropped",
			pending: []board.Intent{{
				Kind: board.IntentMove, TaskID: gone.ID, Status: domain.StatusDone, Order: 1,
				Placements: []domain.Placement{{TaskID: gone.ID, Status: domain.StatusDone, Order: 1}},
			}},
			want: []string{"todo:a", "todo:b", "done:c"},
		},
		{
			name: "create with a burned id is dropped",
			pending: []board.Intent{{
				Kind: board.IntentCreate, TaskID: gone.ID, Task: gone, Status: gone.Status, Order: gone.Order,
			}},
			want: []string{"todo:a", "todo:b", "done:c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := syncclient.Reconcile(base, tt.pending)
			assert.Equal(t, tt.want, titles(got))
		})
	}

	// Reconcile never writes through to the authoritative copy.
	assert.Equal(t, domain.StatusTodo, base.Tasks[b.ID].Status)
	assert.InDelta(t, 2048, base.Tasks[b.ID].Order, 0)
}

func TestConfirmAndBurned(t *testing.T) {
	t.Parallel()

	a := task("a", domain.StatusTodo, 1024)
	state := syncclient.ApplyEvent(syncclient.NewAuthoritative(), event(domain.EventSnapshot, a))

	moved := bump(a, domain.StatusDone, 1024)
	state = syncclient.Confirm(state, []domain.Task{moved})
	assert.Equal(t, moved, state.Tasks[a.ID])

	state = syncclient.Burned(state, a.ID)
	assert.Empty(t, state.Tasks)

	state = syncclient.Confirm(state, []domain.Task{bump(moved, domain.StatusTodo, 1)})
	assert.Empty(t, state.Tasks)
}
