package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/server/middleware"
	"github.com/gosuda/taskboard/internal/taskstore"
)

type ListTasksInput struct {
	BoardID uuid.UUID `path:"boardID" doc:"Board ID"`
}

type ListTasksOutput struct {
	Body []*domain.Task
}

type GetTaskInput struct {
	BoardID uuid.UUID `path:"boardID" doc:"Board ID"`
	ID      uuid.UUID `path:"id" doc:"Task ID"`
}

type TaskDetail struct {
	Task    *domain.Task         `json:"task"`
	History []*domain.AuditEntry `json:"history"`
}

type GetTaskOutput struct {
	Body *TaskDetail
}

type CreateTaskInput struct {
	BoardID uuid.UUID `path:"boardID" doc:"Board ID"`
	Body    struct {
		ID     *uuid.UUID `json:"id,omitempty" doc:"Client-proposed task ID"`
		Title  string     `json:"title" minLength:"1" maxLength:"500" doc:"Task title"`
		Status string     `json:"status,omitempty" enum:"backlog,todo,doing,done" doc:"Column, backlog when omitted"`
		Order  *float64   `json:"order,omitempty" doc:"Requested order, end of column when omitted"`
	}
}

// Mutation carries the primary task plus every record the mutation changed,
// rebalanced siblings included.
type Mutation struct {
	Task    *domain.Task   `json:"task"`
	Tasks   []*domain.Task `json:"tasks"`
	Changed bool           `json:"changed"`
}

type MutationOutput struct {
	Body *Mutation
}

type UpdateTaskInput struct {
	BoardID uuid.UUID `path:"boardID" doc:"Board ID"`
	ID      uuid.UUID `path:"id" doc:"Task ID"`
	Body    struct {
		Title string `json:"title" minLength:"1" maxLength:"500" doc:"Task title"`
	}
}

type UpdateTaskOutput struct {
	Body *domain.Task
}

type MoveTaskInput struct {
	BoardID uuid.UUID `path:"boardID" doc:"Board ID"`
	ID      uuid.UUID `path:"id" doc:"Task ID"`
	Body    struct {
		Status string  `json:"status" enum:"backlog,todo,doing,done" doc:"Target column"`
		Order  float64 `json:"order" doc:"Requested order within the column"`
	}
}

type DeleteTaskInput struct {
	BoardID uuid.UUID `path:"boardID" doc:"Board ID"`
	ID      uuid.UUID `path:"id" doc:"Task ID"`
}

func RegisterTaskRoutes(api huma.API, svc TaskService, scope middleware.BoardScope) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/boards/{boardID}/tasks",
		Summary:     "List every task on a board",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *ListTasksInput) (*ListTasksOutput, error) {
		if err := readBoard(ctx, scope, input.BoardID); err != nil {
			return nil, err
		}

		tasks, err := svc.List(ctx, input.BoardID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list tasks", err)
		}
		if tasks == nil {
			tasks = make([]*domain.Task, 0)
		}

		return &ListTasksOutput{Body: tasks}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/boards/{boardID}/tasks/{id}",
		Summary:     "Get a task and its history",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *GetTaskInput) (*GetTaskOutput, error) {
		if err := readBoard(ctx, scope, input.BoardID); err != nil {
			return nil, err
		}

		t, err := svc.Get(ctx, input.BoardID, input.ID)
		if err != nil {
			return nil, storeError(err, "failed to get task")
		}
		history, err := svc.TaskHistory(ctx, input.BoardID, input.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to load task history", err)
		}
		if history == nil {
			history = make([]*domain.AuditEntry, 0)
		}

		return &GetTaskOutput{Body: &TaskDetail{Task: t, History: history}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/boards/{boardID}/tasks",
		Summary:       "Add a task to a column",
		Tags:          []string{"Tasks"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateTaskInput) (*MutationOutput, error) {
		actorID, err := editBoard(ctx, scope, input.BoardID)
		if err != nil {
			return nil, err
		}

		in := taskstore.CreateInput{
			Title:  input.Body.Title,
			Status: domain.Status(input.Body.Status),
			Order:  input.Body.Order,
		}
		if input.Body.ID != nil {
			in.ID = *input.Body.ID
		}

		t, changed, err := svc.Create(ctx, input.BoardID, actorID, in)
		if err != nil {
			return nil, storeError(err, "failed to create task")
		}

		return &MutationOutput{Body: &Mutation{Task: t, Tasks: changed, Changed: true}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/boards/{boardID}/tasks/{id}",
		Summary:     "Rename a task",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *UpdateTaskInput) (*UpdateTaskOutput, error) {
		actorID, err := editBoard(ctx, scope, input.BoardID)
		if err != nil {
			return nil, err
		}

		t, err := svc.Update(ctx, input.BoardID, actorID, input.ID, input.Body.Title)
		if err != nil {
			return nil, storeError(err, "failed to update task")
		}

		return &UpdateTaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-task",
		Method:      http.MethodPut,
		Path:        "/boards/{boardID}/tasks/{id}/position",
		Summary:     "Move a task to a column and order",
		Description: "Idempotent. A taken order places the task right after the task holding it.",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *MoveTaskInput) (*MutationOutput, error) {
		actorID, err := editBoard(ctx, scope, input.BoardID)
		if err != nil {
			return nil, err
		}

		res, err := svc.Move(ctx, input.BoardID, actorID, input.ID, domain.Status(input.Body.Status), input.Body.Order)
		if err != nil {
			return nil, storeError(err, "failed to move task")
		}
		tasks := res.Tasks
		if tasks == nil {
			tasks = make([]*domain.Task, 0)
		}

		return &MutationOutput{Body: &Mutation{Task: res.Task, Tasks: tasks, Changed: res.Changed}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/boards/{boardID}/tasks/{id}",
		Summary:       "Burn a task",
		Description:   "Deleting a task that is already gone succeeds.",
		Tags:          []string{"Tasks"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *DeleteTaskInput) (*struct{}, error) {
		actorID, err := editBoard(ctx, scope, input.BoardID)
		if err != nil {
			return nil, err
		}

		if err := svc.Delete(ctx, input.BoardID, actorID, input.ID); err != nil {
			return nil, storeError(err, "failed to delete task")
		}

		return nil, nil
	})
}
