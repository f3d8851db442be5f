package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/taskboard/internal/board"
	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/server/middleware"
)

type GetBoardInput struct {
	BoardID uuid.UUID `path:"boardID" doc:"Board ID"`
}

type BoardBody struct {
	BoardID uuid.UUID      `json:"board_id"`
	CanEdit bool           `json:"can_edit" doc:"Whether the caller may move, add or burn tasks"`
	Columns []board.Column `json:"columns"`
}

type GetBoardOutput struct {
	Body *BoardBody
}

type ListAuditInput struct {
	BoardID uuid.UUID `path:"boardID" doc:"Board ID"`
	Limit   int       `query:"limit" minimum:"1" maximum:"200" default:"50" doc:"Maximum number of entries"`
	Offset  int       `query:"offset" minimum:"0" doc:"Entries to skip"`
}

type ListAuditOutput struct {
	Body []*domain.AuditEntry
}

func RegisterBoardRoutes(api huma.API, svc TaskService, scope middleware.BoardScope) {
	huma.Register(api, huma.Operation{
		OperationID: "get-default-board",
		Method:      http.MethodGet,
		Path:        "/board",
		Summary:     "Get the board the caller lands on",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, _ *struct{}) (*GetBoardOutput, error) {
		boardID, ok := scope.BoardFor(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("no board for this caller")
		}
		return loadBoard(ctx, svc, boardID)
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/boards/{boardID}",
		Summary:     "Get the kanban board",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *GetBoardInput) (*GetBoardOutput, error) {
		if err := readBoard(ctx, scope, input.BoardID); err != nil {
			return nil, err
		}
		return loadBoard(ctx, svc, input.BoardID)
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-board-audit",
		Method:      http.MethodGet,
		Path:        "/boards/{boardID}/audit",
		Summary:     "List recent board mutations",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *ListAuditInput) (*ListAuditOutput, error) {
		if err := readBoard(ctx, scope, input.BoardID); err != nil {
			return nil, err
		}

		entries, err := svc.AuditTrail(ctx, input.BoardID, input.Limit, input.Offset)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list audit entries", err)
		}
		if entries == nil {
			entries = make([]*domain.AuditEntry, 0)
		}

		return &ListAuditOutput{Body: entries}, nil
	})
}

func loadBoard(ctx context.Context, svc TaskService, boardID uuid.UUID) (*GetBoardOutput, error) {
	tasks, err := svc.List(ctx, boardID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list tasks for board", err)
	}

	flat := make([]domain.Task, len(tasks))
	for i, t := range tasks {
		flat[i] = *t
	}

	return &GetBoardOutput{Body: &BoardBody{
		BoardID: boardID,
		CanEdit: middleware.CanEdit(ctx),
		Columns: board.Columns(flat).Columns,
	}}, nil
}
