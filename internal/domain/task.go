package domain

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusBacklog Status = "backlog"
	StatusTodo    Status = "todo"
	StatusDoing   Status = "doing"
	StatusDone    Status = "done"
)

// Statuses lists the board columns in render order.
func Statuses() []Status {
	return []Status{StatusBacklog, StatusTodo, StatusDoing, StatusDone}
}

// Valid reports whether s is one of the fixed board columns.
func (s Status) Valid() bool {
	switch s {
	case StatusBacklog, StatusTodo, StatusDoing, StatusDone:
		return true
	default:
		return false
	}
}

// ParseStatus normalizes and validates a column key.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

// ValidOrder reports whether an order value can be stored and compared.
func ValidOrder(order float64) bool {
	return !math.IsNaN(order) && !math.IsInf(order, 0)
}

type Task struct {
	ID        uuid.UUID `json:"id"`
	BoardID   uuid.UUID `json:"board_id"`
	Title     string    `json:"title"`
	Status    Status    `json:"status"`
	Order     float64   `json:"order"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTask creates a Task with validated required fields. Order is assigned by
// the placement policy when the task is stored.
func NewTask(id, boardID, ownerID uuid.UUID, title string, status Status) (*Task, error) {
	if boardID == uuid.Nil {
		return nil, errors.New("task: board ID is required")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrInvalidTask
	}
	if status == "" {
		status = StatusBacklog
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if id == uuid.Nil {
		id = uuid.New()
	}
	now := time.Now()
	return &Task{
		ID:        id,
		BoardID:   boardID,
		Title:     title,
		Status:    status,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Placement is one (status, order) assignment produced by the placement policy.
type Placement struct {
	TaskID uuid.UUID `json:"task_id"`
	Status Status    `json:"status"`
	Order  float64   `json:"order"`
}

// PlanFunc decides the placements for a task given the locked destination
// column. The column may contain the task itself when it is already there.
// Returning no placements leaves the store untouched.
type PlanFunc func(task *Task, column []*Task) ([]Placement, error)

type TaskRepository interface {
	// Create inserts t using the placements returned by plan, atomically with
	// any sibling rebalancing the plan requires.
	Create(ctx context.Context, t *Task, plan PlanFunc) ([]*Task, error)
	GetByID(ctx context.Context, boardID, id uuid.UUID) (*Task, error)
	ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*Task, error)
	// Update persists explicit edits. Status and order are never written here.
	Update(ctx context.Context, t *Task) error
	// Reposition locks the destination column, runs plan and applies the
	// result in one transaction. It returns the tasks that changed.
	Reposition(ctx context.Context, boardID, id uuid.UUID, status Status, plan PlanFunc) ([]*Task, error)
	Delete(ctx context.Context, boardID, id uuid.UUID) (*Task, error)
}
