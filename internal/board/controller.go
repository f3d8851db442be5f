package board

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/gosuda/taskboard/internal/domain"
)

var (
	ErrReadOnly       = errors.New("board: viewer may not edit this board")
	ErrUnknownTask    = errors.New("board: task is not on the board")
	ErrDeleteDeclined = errors.New("board: delete declined")
)

type IntentKind int

const (
	IntentCreate IntentKind = iota + 1
	IntentMove
	IntentDelete
)

func (k IntentKind) String() string {
	switch k {
	case IntentCreate:
		return "create"
	case IntentMove:
		return "move"
	case IntentDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Intent is a mutation request handed to the dispatcher. Placements describe
// the optimistic local outcome; Order is what the task store is asked for.
type Intent struct {
	Kind       IntentKind
	TaskID     uuid.UUID
	Task       domain.Task // create only
	Status     domain.Status
	Order      float64
	Placements []domain.Placement
}

// Source supplies the current reconciled task set.
type Source interface {
	Tasks() []domain.Task
}

// Gate is the capability check supplied by the identity collaborator.
type Gate interface {
	CanEdit() bool
}

// Dispatcher accepts intents without blocking on the store round trip.
type Dispatcher interface {
	Dispatch(in Intent) error
}

// Controller turns user intents into dispatched mutations.
type Controller struct {
	source   Source
	gate     Gate
	dispatch Dispatcher

	// ConfirmDelete, when set, may decline a delete before it is dispatched.
	ConfirmDelete func(domain.Task) bool
}

// NewController creates a Controller over a task source, a capability gate,
// and a dispatcher.
func NewController(source Source, gate Gate, dispatch Dispatcher) *Controller {
	return &Controller{source: source, gate: gate, dispatch: dispatch}
}

// Board returns the current column projection.
func (c *Controller) Board() Board {
	return Columns(c.source.Tasks())
}

// CanEdit reports whether intents would be accepted.
func (c *Controller) CanEdit() bool {
	return c.gate.CanEdit()
}

// MoveTo places a task at index within the status column. It reports false
// without dispatching when the task already sits there.
func (c *Controller) MoveTo(taskID uuid.UUID, status domain.Status, index int) (bool, error) {
	if !c.gate.CanEdit() {
		return false, ErrReadOnly
	}
	if !status.Valid() {
		return false, fmt.Errorf("board.Controller.MoveTo: %w", domain.ErrInvalidStatus)
	}

	b := c.Board()
	if _, _, ok := b.Find(taskID); !ok {
		return false, fmt.Errorf("board.Controller.MoveTo: %w", ErrUnknownTask)
	}

	plan := PlanInsert(b.Column(status), taskID, index)
	if plan.Noop {
		return false, nil
	}

	err := c.dispatch.Dispatch(Intent{
		Kind:       IntentMove,
		TaskID:     taskID,
		Status:     status,
		Order:      plan.Request,
		Placements: plan.Placements,
	})
	if err != nil {
		return false, fmt.Errorf("board.Controller.MoveTo: %w", err)
	}
	return true, nil
}

// Delete dispatches a delete intent. A task that is already gone is not an
// error and dispatches nothing.
func (c *Controller) Delete(taskID uuid.UUID) (bool, error) {
	if !c.gate.CanEdit() {
		return false, ErrReadOnly
	}

	t, _, ok := c.Board().Find(taskID)
	if !ok {
		return false, nil
	}
	if c.ConfirmDelete != nil && !c.ConfirmDelete(t) {
		return false, ErrDeleteDeclined
	}

	if err := c.dispatch.Dispatch(Intent{Kind: IntentDelete, TaskID: taskID, Status: t.Status}); err != nil {
		return false, fmt.Errorf("board.Controller.Delete: %w", err)
	}
	return true, nil
}

// Create appends a new task to the bottom of the status column.
func (c *Controller) Create(boardID, ownerID uuid.UUID, title string, status domain.Status) (domain.Task, error) {
	if !c.gate.CanEdit() {
		return domain.Task{}, ErrReadOnly
	}

	t, err := domain.NewTask(uuid.New(), boardID, ownerID, title, status)
	if err != nil {
		return domain.Task{}, fmt.Errorf("board.Controller.Create: %w", err)
	}

	col := c.Board().Column(t.Status)
	plan := PlanInsert(col, t.ID, len(col.Tasks))
	t.Order = plan.Request
	for _, p := range plan.Placements {
		if p.TaskID == t.ID {
			t.Order = p.Order
		}
	}

	err = c.dispatch.Dispatch(Intent{
		Kind:       IntentCreate,
		TaskID:     t.ID,
		Task:       *t,
		Status:     t.Status,
		Order:      plan.Request,
		Placements: plan.Placements,
	})
	if err != nil {
		return domain.Task{}, fmt.Errorf("board.Controller.Create: %w", err)
	}
	return *t, nil
}
