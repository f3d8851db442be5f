// Package syncclient keeps a local copy of one board in step with the task
// store: it applies live events, overlays the caller's own pending mutations
// on top, and sends those mutations one at a time.
package syncclient

import (
	"sort"

	"github.com/google/uuid"

	"github.com/gosuda/taskboard/internal/board"
	"github.com/gosuda/taskboard/internal/domain"
)

// Authoritative is the client's copy of what the store has confirmed.
// Gone remembers burned IDs so a late event never brings a task back.
type Authoritative struct {
	Tasks map[uuid.UUID]domain.Task
	Gone  map[uuid.UUID]struct{}
}

// NewAuthoritative returns an empty state.
func NewAuthoritative() Authoritative {
	return Authoritative{
		Tasks: make(map[uuid.UUID]domain.Task),
		Gone:  make(map[uuid.UUID]struct{}),
	}
}

func (a Authoritative) clone() Authoritative {
	out := Authoritative{
		Tasks: make(map[uuid.UUID]domain.Task, len(a.Tasks)),
		Gone:  make(map[uuid.UUID]struct{}, len(a.Gone)),
	}
	for id, t := range a.Tasks {
		out.Tasks[id] = t
	}
	for id := range a.Gone {
		out.Gone[id] = struct{}{}
	}
	return out
}

// ApplyEvent folds one store event into a copy of a. A snapshot replaces the
// task set. Other events upsert their records unless the held copy is at the
// same or a newer version.
func ApplyEvent(a Authoritative, ev domain.BoardEvent) Authoritative {
	out := a.clone()

	switch ev.Type {
	case domain.EventSnapshot:
		out.Tasks = make(map[uuid.UUID]domain.Task, len(ev.Tasks))
		for _, t := range ev.Tasks {
			if t == nil {
				continue
			}
			if _, gone := out.Gone[t.ID]; gone {
				continue
			}
			out.Tasks[t.ID] = *t
		}
	case domain.EventTaskDeleted:
		out.burn(ev.TaskID)
		for _, t := range ev.Tasks {
			if t != nil {
				out.burn(t.ID)
			}
		}
	default:
		for _, t := range ev.Tasks {
			if t != nil {
				out.upsert(*t)
			}
		}
	}
	return out
}

// Confirm applies records returned by a successful mutation.
func Confirm(a Authoritative, tasks []domain.Task) Authoritative {
	out := a.clone()
	for _, t := range tasks {
		out.upsert(t)
	}
	return out
}

// Burned records a confirmed delete.
func Burned(a Authoritative, id uuid.UUID) Authoritative {
	out := a.clone()
	out.burn(id)
	return out
}

func (a Authoritative) upsert(t domain.Task) {
	if _, gone := a.Gone[t.ID]; gone {
		return
	}
	if held, ok := a.Tasks[t.ID]; ok && held.Version >= t.Version {
		return
	}
	a.Tasks[t.ID] = t
}

func (a Authoritative) burn(id uuid.UUID) {
	if id == uuid.Nil {
		return
	}
	delete(a.Tasks, id)
	a.Gone[id] = struct{}{}
}

// Reconcile renders the authoritative set with the pending intents applied in
// the order they were issued. The result is sorted by (status, order, id).
func Reconcile(a Authoritative, pending []board.Intent) []domain.Task {
	view := make(map[uuid.UUID]domain.Task, len(a.Tasks)+len(pending))
	for id, t := range a.Tasks {
		view[id] = t
	}

	for _, in := range pending {
		switch in.Kind {
		case board.IntentCreate:
			if _, gone := a.Gone[in.TaskID]; gone {
				continue
			}
			if _, ok := view[in.TaskID]; !ok {
				view[in.TaskID] = in.Task
			}
			place(view, in.Placements)
		case board.IntentMove:
			place(view, in.Placements)
		case board.IntentDelete:
			delete(view, in.TaskID)
		}
	}

	out := make([]domain.Task, 0, len(view))
	for _, t := range view {
		out = append(out, t)
	}
	sortView(out)
	return out
}

func sortView(tasks []domain.Task) {
	rank := make(map[domain.Status]int, len(domain.Statuses()))
	for i, s := range domain.Statuses() {
		rank[s] = i
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Status != tasks[j].Status {
			return rank[tasks[i].Status] < rank[tasks[j].Status]
		}
		return board.Less(&tasks[i], &tasks[j])
	})
}

func place(view map[uuid.UUID]domain.Task, placements []domain.Placement) {
	for _, p := range placements {
		t, ok := view[p.TaskID]
		if !ok {
			continue
		}
		t.Status = p.Status
		t.Order = p.Order
		view[p.TaskID] = t
	}
}
