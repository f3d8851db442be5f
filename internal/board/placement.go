package board

import (
	"sort"

	"github.com/google/uuid"

	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/ordering"
)

// Plan is the client-side result of planning an insert.
//
// Request is the order sent to the task store. When the neighbour gap could
// not be split, Request is an anchor the store resolves by rebalancing, and
// Placements holds the optimistic rebalanced column for local rendering.
type Plan struct {
	Request    float64
	Placements []domain.Placement
	Noop       bool
}

// PlanInsert computes where taskID lands when inserted at index in col.
// index counts positions after the task has been removed from col, so
// dropping a task onto its own slot is a no-op.
func PlanInsert(col Column, taskID uuid.UUID, index int) Plan {
	rest := make([]domain.Task, 0, len(col.Tasks))
	current := -1
	for i, t := range col.Tasks {
		if t.ID == taskID {
			current = i
			continue
		}
		rest = append(rest, t)
	}
	index = max(0, min(index, len(rest)))

	if current >= 0 && current == index {
		return Plan{Request: col.Tasks[current].Order, Noop: true}
	}

	single := func(order float64) Plan {
		return Plan{
			Request:    order,
			Placements: []domain.Placement{{TaskID: taskID, Status: col.Status, Order: order}},
		}
	}

	var (
		request float64
		err     error
	)
	switch {
	case len(rest) == 0:
		return single(ordering.Initial())
	case index == 0:
		if request, err = ordering.Before(rest[0].Order); err == nil {
			return single(request)
		}
		request = rest[0].Order - ordering.Step
	case index == len(rest):
		if request, err = ordering.After(rest[len(rest)-1].Order); err == nil {
			return single(request)
		}
		request = rest[len(rest)-1].Order + ordering.Step
	default:
		if request, err = ordering.Between(rest[index-1].Order, rest[index].Order); err == nil {
			return single(request)
		}
		// Colliding with the lower neighbour asks the store to place the
		// task right after it, which forces a rebalance there too.
		request = rest[index-1].Order
	}

	ids := make([]uuid.UUID, 0, len(rest)+1)
	for _, t := range rest[:index] {
		ids = append(ids, t.ID)
	}
	ids = append(ids, taskID)
	for _, t := range rest[index:] {
		ids = append(ids, t.ID)
	}
	return Plan{Request: request, Placements: spaced(col.Status, ids)}
}

// Resolve is the store-side placement policy. It decides the final
// placements for moving task into column at the requested order:
//
//   - the resolved slot is the one the task already holds: no placements
//   - requested order free and in bounds: a single placement
//   - requested order taken by another task: placed right after that task
//   - no room left (gap exhausted or out of bounds): the whole column is
//     rebalanced with the task at its slot, as one placement set
func Resolve(task *domain.Task, column []*domain.Task, status domain.Status, requested float64) ([]domain.Placement, error) {
	if !status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	if !domain.ValidOrder(requested) {
		return nil, domain.ErrInvalidOrder
	}

	others := make([]*domain.Task, 0, len(column))
	inColumn := false
	for _, t := range column {
		if t.ID == task.ID {
			inColumn = true
			continue
		}
		others = append(others, t)
	}
	if inColumn && task.Status == status && task.Order == requested {
		return nil, nil
	}
	sortTaskPtrs(others)

	p := sort.Search(len(others), func(i int) bool { return others[i].Order > requested })
	order := requested
	ok := ordering.InBounds(order)
	if p > 0 && others[p-1].Order == requested {
		var err error
		if p < len(others) {
			order, err = ordering.Between(requested, others[p].Order)
		} else {
			order, err = ordering.After(requested)
		}
		ok = err == nil
	}
	if ok {
		if inColumn && task.Status == status && task.Order == order {
			return nil, nil
		}
		return []domain.Placement{{TaskID: task.ID, Status: status, Order: order}}, nil
	}

	final := make([]*domain.Task, 0, len(others)+1)
	final = append(final, others[:p]...)
	final = append(final, task)
	final = append(final, others[p:]...)

	ranks := ordering.Spaced(len(final))
	placements := make([]domain.Placement, 0, len(final))
	for i, t := range final {
		if t.Status == status && t.Order == ranks[i] {
			continue
		}
		placements = append(placements, domain.Placement{TaskID: t.ID, Status: status, Order: ranks[i]})
	}
	if len(placements) == 0 {
		return nil, nil
	}
	return placements, nil
}

func spaced(status domain.Status, ids []uuid.UUID) []domain.Placement {
	ranks := ordering.Spaced(len(ids))
	out := make([]domain.Placement, len(ids))
	for i, id := range ids {
		out[i] = domain.Placement{TaskID: id, Status: status, Order: ranks[i]}
	}
	return out
}
