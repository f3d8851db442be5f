// Package taskstore is the canonical owner of task records. Every mutation
// runs the placement policy under the repository's column lock, then fans the
// changed records out to all subscribers of the board.
package taskstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskboard/internal/board"
	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/ordering"
	redisstore "github.com/gosuda/taskboard/internal/store/redis"
)

// PubSub abstracts the board event fan-out.
type PubSub interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// Notifier is told about every task that went into the burn barrel.
type Notifier interface {
	TaskBurned(ctx context.Context, actorID uuid.UUID, t *domain.Task) error
}

type CreateInput struct {
	ID     uuid.UUID
	Title  string
	Status domain.Status
	Order  *float64
}

type MoveResult struct {
	Task    *domain.Task
	Tasks   []*domain.Task
	Changed bool
}

type Service struct {
	tasks    domain.TaskRepository
	audit    domain.AuditRepository
	pubsub   PubSub
	notifier Notifier
}

// NewService wires the store. audit and notifier may be nil.
func NewService(tasks domain.TaskRepository, audit domain.AuditRepository, pubsub PubSub, notifier Notifier) *Service {
	return &Service{
		tasks:    tasks,
		audit:    audit,
		pubsub:   pubsub,
		notifier: notifier,
	}
}

// List returns every task on the board.
func (s *Service) List(ctx context.Context, boardID uuid.UUID) ([]*domain.Task, error) {
	tasks, err := s.tasks.ListByBoard(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("taskstore.Service.List: %w", err)
	}
	return tasks, nil
}

// Get returns one task.
func (s *Service) Get(ctx context.Context, boardID, id uuid.UUID) (*domain.Task, error) {
	t, err := s.tasks.GetByID(ctx, boardID, id)
	if err != nil {
		return nil, fmt.Errorf("taskstore.Service.Get: %w", err)
	}
	return t, nil
}

// Create stores a new task. The caller may propose the ID so an optimistic
// copy can be matched with the stored record. Without an order the task is
// appended to its column.
func (s *Service) Create(ctx context.Context, boardID, actorID uuid.UUID, in CreateInput) (*domain.Task, []*domain.Task, error) {
	t, err := domain.NewTask(in.ID, boardID, actorID, in.Title, in.Status)
	if err != nil {
		return nil, nil, fmt.Errorf("taskstore.Service.Create: %w", err)
	}
	if in.Order != nil && !domain.ValidOrder(*in.Order) {
		return nil, nil, fmt.Errorf("taskstore.Service.Create: %w", domain.ErrInvalidOrder)
	}

	plan := func(task *domain.Task, column []*domain.Task) ([]domain.Placement, error) {
		requested := appendOrder(column)
		if in.Order != nil {
			requested = *in.Order
		}
		return board.Resolve(task, column, task.Status, requested)
	}

	changed, err := s.tasks.Create(ctx, t, plan)
	if err != nil {
		return nil, nil, fmt.Errorf("taskstore.Service.Create: %w", err)
	}
	created := find(changed, t.ID)
	if created == nil {
		created = t
	}

	s.publish(ctx, &domain.BoardEvent{
		Type:    domain.EventTaskCreated,
		BoardID: boardID,
		TaskID:  t.ID,
		ActorID: actorID,
		Tasks:   changed,
	})
	s.record(ctx, boardID, actorID, domain.AuditTaskCreated, t.ID, map[string]any{
		"title":  created.Title,
		"status": created.Status,
		"order":  created.Order,
	})

	return created, changed, nil
}

// Move places a task at (status, order). The requested order is a hint: a
// taken slot lands the task right after its occupant and an exhausted gap
// rebalances the column. Repeating a move that already holds is a no-op.
func (s *Service) Move(ctx context.Context, boardID, actorID, id uuid.UUID, status domain.Status, order float64) (*MoveResult, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("taskstore.Service.Move: %w", domain.ErrInvalidStatus)
	}
	if !domain.ValidOrder(order) {
		return nil, fmt.Errorf("taskstore.Service.Move: %w", domain.ErrInvalidOrder)
	}

	var from domain.Status
	plan := func(task *domain.Task, column []*domain.Task) ([]domain.Placement, error) {
		from = task.Status
		return board.Resolve(task, column, status, order)
	}

	changed, err := s.tasks.Reposition(ctx, boardID, id, status, plan)
	if err != nil {
		return nil, fmt.Errorf("taskstore.Service.Move: %w", err)
	}

	if len(changed) == 0 {
		current, getErr := s.tasks.GetByID(ctx, boardID, id)
		if getErr != nil {
			return nil, fmt.Errorf("taskstore.Service.Move: %w", getErr)
		}
		return &MoveResult{Task: current}, nil
	}

	moved := find(changed, id)
	s.publish(ctx, &domain.BoardEvent{
		Type:    domain.EventTaskMoved,
		BoardID: boardID,
		TaskID:  id,
		ActorID: actorID,
		Tasks:   changed,
	})
	details := map[string]any{
		"from":      from,
		"to":        status,
		"requested": order,
	}
	if moved != nil {
		details["order"] = moved.Order
	}
	if len(changed) > 1 {
		details["rebalanced"] = len(changed) - 1
	}
	s.record(ctx, boardID, actorID, domain.AuditTaskMoved, id, details)

	return &MoveResult{Task: moved, Tasks: changed, Changed: true}, nil
}

// Update edits the task title. Status and order are only changed by Move.
func (s *Service) Update(ctx context.Context, boardID, actorID, id uuid.UUID, title string) (*domain.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("taskstore.Service.Update: %w", domain.ErrInvalidTask)
	}

	t, err := s.tasks.GetByID(ctx, boardID, id)
	if err != nil {
		return nil, fmt.Errorf("taskstore.Service.Update: %w", err)
	}
	if t.Title == title {
		return t, nil
	}

	old := t.Title
	t.Title = title
	if err := s.tasks.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("taskstore.Service.Update: %w", err)
	}

	s.publish(ctx, &domain.BoardEvent{
		Type:    domain.EventTaskUpdated,
		BoardID: boardID,
		TaskID:  id,
		ActorID: actorID,
		Tasks:   []*domain.Task{t},
	})
	s.record(ctx, boardID, actorID, domain.AuditTaskUpdated, id, map[string]any{
		"old_title": old,
		"title":     title,
	})

	return t, nil
}

// Delete removes a task for good. Deleting a task that is already gone is
// not an error and emits nothing.
func (s *Service) Delete(ctx context.Context, boardID, actorID, id uuid.UUID) error {
	t, err := s.tasks.Delete(ctx, boardID, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("taskstore.Service.Delete: %w", err)
	}

	s.publish(ctx, &domain.BoardEvent{
		Type:    domain.EventTaskDeleted,
		BoardID: boardID,
		TaskID:  id,
		ActorID: actorID,
		Tasks:   []*domain.Task{t},
	})
	s.record(ctx, boardID, actorID, domain.AuditTaskBurned, id, map[string]any{
		"title":  t.Title,
		"status": t.Status,
	})

	if s.notifier != nil {
		if err := s.notifier.TaskBurned(ctx, actorID, t); err != nil {
			log.Warn().Err(err).Str("task_id", id.String()).Msg("taskstore.Service.Delete: notify burn")
		}
	}

	return nil
}

// Subscribe returns the raw event stream of a board.
func (s *Service) Subscribe(ctx context.Context, boardID uuid.UUID) (<-chan []byte, func(), error) {
	ch, cleanup, err := s.pubsub.Subscribe(ctx, redisstore.BoardChannel(boardID))
	if err != nil {
		return nil, nil, fmt.Errorf("taskstore.Service.Subscribe: %w", err)
	}
	return ch, cleanup, nil
}

// AuditTrail returns the most recent audit entries of a board.
func (s *Service) AuditTrail(ctx context.Context, boardID uuid.UUID, limit, offset int) ([]*domain.AuditEntry, error) {
	if s.audit == nil {
		return nil, nil
	}
	entries, err := s.audit.ListByBoard(ctx, boardID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("taskstore.Service.AuditTrail: %w", err)
	}
	return entries, nil
}

// TaskHistory returns the audit entries of one task.
func (s *Service) TaskHistory(ctx context.Context, boardID, taskID uuid.UUID) ([]*domain.AuditEntry, error) {
	if s.audit == nil {
		return nil, nil
	}
	entries, err := s.audit.ListByTask(ctx, boardID, taskID)
	if err != nil {
		return nil, fmt.Errorf("taskstore.Service.TaskHistory: %w", err)
	}
	return entries, nil
}

// publish runs after the mutation committed, so failures are logged only.
func (s *Service) publish(ctx context.Context, ev *domain.BoardEvent) {
	ev.At = time.Now()
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("type", string(ev.Type)).Msg("taskstore: marshal event")
		return
	}
	channel := redisstore.BoardChannel(ev.BoardID)
	if err := s.pubsub.Publish(ctx, channel, payload); err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("taskstore: publish event")
	}
}

func (s *Service) record(ctx context.Context, boardID, actorID uuid.UUID, action string, taskID uuid.UUID, details map[string]any) {
	if s.audit == nil {
		return
	}
	entry := &domain.AuditEntry{
		ID:        uuid.New(),
		BoardID:   boardID,
		ActorID:   actorID,
		Action:    action,
		TaskID:    taskID,
		Details:   details,
		CreatedAt: time.Now(),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		log.Warn().Err(err).Str("action", action).Str("task_id", taskID.String()).Msg("taskstore: record audit")
	}
}

// appendOrder is the order requested for a task added to the end of column.
// When the tail has no headroom left, an out-of-bounds order makes Resolve
// rebalance.
func appendOrder(column []*domain.Task) float64 {
	if len(column) == 0 {
		return ordering.Initial()
	}
	last := column[0].Order
	for _, t := range column[1:] {
		last = max(last, t.Order)
	}
	next, err := ordering.After(last)
	if err != nil {
		return 2 * ordering.Limit
	}
	return next
}

func find(tasks []*domain.Task, id uuid.UUID) *domain.Task {
	for _, t := range tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}
