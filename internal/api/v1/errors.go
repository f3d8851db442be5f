package v1

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/server/middleware"
)

// readBoard rejects callers whose scope does not include boardID.
func readBoard(ctx context.Context, scope middleware.BoardScope, boardID uuid.UUID) error {
	if !scope.Allows(ctx, boardID) {
		return huma.Error403Forbidden("board not accessible")
	}
	return nil
}

// editBoard additionally requires an edit-capable role and returns the actor.
func editBoard(ctx context.Context, scope middleware.BoardScope, boardID uuid.UUID) (uuid.UUID, error) {
	if err := readBoard(ctx, scope, boardID); err != nil {
		return uuid.Nil, err
	}
	if !middleware.CanEdit(ctx) {
		return uuid.Nil, huma.Error403Forbidden("read-only access to this board")
	}
	actorID, _ := middleware.UserIDFromContext(ctx)
	return actorID, nil
}

func storeError(err error, msg string) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound("task not found")
	case errors.Is(err, domain.ErrConflict):
		return huma.Error409Conflict(msg, err)
	case errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidOrder),
		errors.Is(err, domain.ErrInvalidTask):
		return huma.Error400BadRequest(msg, err)
	default:
		return huma.Error500InternalServerError(msg, err)
	}
}
