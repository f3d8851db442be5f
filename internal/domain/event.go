package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventSnapshot    EventType = "snapshot"
	EventTaskCreated EventType = "task_created"
	EventTaskUpdated EventType = "task_updated"
	EventTaskMoved   EventType = "task_moved"
	EventTaskDeleted EventType = "task_deleted"
)

// BoardEvent is a real-time board update. Tasks carries every record changed
// by one mutation (a move plus any rebalanced siblings) so observers apply
// them together. A snapshot carries the full task set of the board.
type BoardEvent struct {
	Type     EventType `json:"type"`
	BoardID  uuid.UUID `json:"board_id"`
	TaskID   uuid.UUID `json:"task_id,omitempty"`
	ActorID  uuid.UUID `json:"actor_id,omitempty"`
	Tasks    []*Task   `json:"tasks,omitempty"`
	Editable bool      `json:"editable,omitempty"`
	At       time.Time `json:"at"`
}
