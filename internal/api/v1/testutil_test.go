package v1_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/server/middleware"
	"github.com/gosuda/taskboard/internal/taskstore"
)

// ---------------------------------------------------------------------------
// Context helpers: inject team/user/role into context for DoCtx
// ---------------------------------------------------------------------------

func roleCtx(teamID, userID uuid.UUID, role string) context.Context {
	return middleware.WithIdentity(context.Background(), teamID, userID, role)
}

func globalScope(t *testing.T, boardID uuid.UUID) middleware.BoardScope {
	t.Helper()

	scope, err := middleware.NewBoardScope(middleware.ScopeGlobal, boardID)
	require.NoError(t, err)
	return scope
}

func teamScope(t *testing.T) middleware.BoardScope {
	t.Helper()

	scope, err := middleware.NewBoardScope(middleware.ScopeTeam, uuid.Nil)
	require.NoError(t, err)
	return scope
}

// ---------------------------------------------------------------------------
// Mock TaskService
// ---------------------------------------------------------------------------

type mockTaskService struct {
	listFunc        func(ctx context.Context, boardID uuid.UUID) ([]*domain.Task, error)
	getFunc         func(ctx context.Context, boardID, id uuid.UUID) (*domain.Task, error)
	createFunc      func(ctx context.Context, boardID, actorID uuid.UUID, in taskstore.CreateInput) (*domain.Task, []*domain.Task, error)
	moveFunc        func(ctx context.Context, boardID, actorID, id uuid.UUID, status domain.Status, order float64) (*taskstore.MoveResult, error)
	updateFunc      func(ctx context.Context, boardID, actorID, id uuid.UUID, title string) (*domain.Task, error)
	deleteFunc      func(ctx context.Context, boardID, actorID, id uuid.UUID) error
	auditTrailFunc  func(ctx context.Context, boardID uuid.UUID, limit, offset int) ([]*domain.AuditEntry, error)
	taskHistoryFunc func(ctx context.Context, boardID, taskID uuid.UUID) ([]*domain.AuditEntry, error)
}

func (m *mockTaskService) List(ctx context.Context, boardID uuid.UUID) ([]*domain.Task, error) {
	return m.listFunc(ctx, boardID)
}

func (m *mockTaskService) Get(ctx context.Context, boardID, id uuid.UUID) (*domain.Task, error) {
	return m.getFunc(ctx, boardID, id)
}

func (m *mockTaskService) Create(ctx context.Context, boardID, actorID uuid.UUID, in taskstore.CreateInput) (*domain.Task, []*domain.Task, error) {
	return m.createFunc(ctx, boardID, actorID, in)
}

func (m *mockTaskService) Move(ctx context.Context, boardID, actorID, id uuid.UUID, status domain.Status, order float64) (*taskstore.MoveResult, error) {
	return m.moveFunc(ctx, boardID, actorID, id, status, order)
}

func (m *mockTaskService) Update(ctx context.Context, boardID, actorID, id uuid.UUID, title string) (*domain.Task, error) {
	return m.updateFunc(ctx, boardID, actorID, id, title)
}

func (m *mockTaskService) Delete(ctx context.Context, boardID, actorID, id uuid.UUID) error {
	return m.deleteFunc(ctx, boardID, actorID, id)
}

func (m *mockTaskService) AuditTrail(ctx context.Context, boardID uuid.UUID, limit, offset int) ([]*domain.AuditEntry, error) {
	return m.auditTrailFunc(ctx, boardID, limit, offset)
}

func (m *mockTaskService) TaskHistory(ctx context.Context, boardID, taskID uuid.UUID) ([]*domain.AuditEntry, error) {
	return m.taskHistoryFunc(ctx, boardID, taskID)
}
