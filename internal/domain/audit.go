package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Audit actions recorded by the task store.
const (
	AuditTaskCreated = "task.created"
	AuditTaskUpdated = "task.updated"
	AuditTaskMoved   = "task.moved"
	AuditTaskBurned  = "task.burned"
)

type AuditEntry struct {
	ID        uuid.UUID      `json:"id"`
	BoardID   uuid.UUID      `json:"board_id"`
	ActorID   uuid.UUID      `json:"actor_id"`
	Action    string         `json:"action"`
	TaskID    uuid.UUID      `json:"task_id"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type AuditRepository interface {
	Record(ctx context.Context, entry *AuditEntry) error
	ListByBoard(ctx context.Context, boardID uuid.UUID, limit, offset int) ([]*AuditEntry, error)
	ListByTask(ctx context.Context, boardID, taskID uuid.UUID) ([]*AuditEntry, error)
}
