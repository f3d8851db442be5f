package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/taskstore"
)

// TaskService abstracts the task store for handler testing.
// *taskstore.Service satisfies this interface.
type TaskService interface {
	List(ctx context.Context, boardID uuid.UUID) ([]*domain.Task, error)
	Get(ctx context.Context, boardID, id uuid.UUID) (*domain.Task, error)
	Create(ctx context.Context, boardID, actorID uuid.UUID, in taskstore.CreateInput) (*domain.Task, []*domain.Task, error)
	Move(ctx context.Context, boardID, actorID, id uuid.UUID, status domain.Status, order float64) (*taskstore.MoveResult, error)
	Update(ctx context.Context, boardID, actorID, id uuid.UUID, title string) (*domain.Task, error)
	Delete(ctx context.Context, boardID, actorID, id uuid.UUID) error
	AuditTrail(ctx context.Context, boardID uuid.UUID, limit, offset int) ([]*domain.AuditEntry, error)
	TaskHistory(ctx context.Context, boardID, taskID uuid.UUID) ([]*domain.AuditEntry, error)
}
