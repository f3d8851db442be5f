// Package board projects the flat task collection into ordered columns and
// turns user intents ("put task X in column Y at position N") into concrete
// order values.
package board

import (
	"sort"

	"github.com/google/uuid"

	"github.com/gosuda/taskboard/internal/domain"
)

// Column is the ordered sequence of tasks sharing one status.
type Column struct {
	Status domain.Status `json:"status"`
	Tasks  []domain.Task `json:"tasks"`
}

// Board holds every column in render order. Columns are recomputed from the
// task set and never stored.
type Board struct {
	Columns []Column `json:"columns"`
}

// Columns groups tasks by status and sorts each column by (order, id).
// Tasks whose status is not a board column are dropped.
func Columns(tasks []domain.Task) Board {
	statuses := domain.Statuses()
	index := make(map[domain.Status]int, len(statuses))
	b := Board{Columns: make([]Column, len(statuses))}
	for i, s := range statuses {
		index[s] = i
		b.Columns[i] = Column{Status: s, Tasks: make([]domain.Task, 0)}
	}

	for _, t := range tasks {
		i, ok := index[t.Status]
		if !ok {
			continue
		}
		b.Columns[i].Tasks = append(b.Columns[i].Tasks, t)
	}
	for i := range b.Columns {
		SortTasks(b.Columns[i].Tasks)
	}
	return b
}

// Column returns the column for s, or an empty column when s is unknown.
func (b Board) Column(s domain.Status) Column {
	for _, c := range b.Columns {
		if c.Status == s {
			return c
		}
	}
	return Column{Status: s}
}

// Find locates a task and its index within its column.
func (b Board) Find(id uuid.UUID) (domain.Task, int, bool) {
	for _, c := range b.Columns {
		for i, t := range c.Tasks {
			if t.ID == id {
				return t, i, true
			}
		}
	}
	return domain.Task{}, -1, false
}

// Len returns the number of tasks on the board.
func (b Board) Len() int {
	n := 0
	for _, c := range b.Columns {
		n += len(c.Tasks)
	}
	return n
}

// IDs returns the task IDs of the column in render order.
func (c Column) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(c.Tasks))
	for i, t := range c.Tasks {
		ids[i] = t.ID
	}
	return ids
}

// Less orders tasks by rank, breaking ties by ID so no two distinct tasks
// ever compare equal.
func Less(a, b *domain.Task) bool {
	if a.Order != b.Order {
		return a.Order < b.Order
	}
	return a.ID.String() < b.ID.String()
}

// SortTasks sorts a column in render order.
func SortTasks(tasks []domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return Less(&tasks[i], &tasks[j])
	})
}

func sortTaskPtrs(tasks []*domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return Less(tasks[i], tasks[j])
	})
}
