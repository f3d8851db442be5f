package middleware

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

const (
	ScopeGlobal = "global"
	ScopeTeam   = "team"
)

// BoardScope decides which board IDs a caller may open. In global scope
// every caller shares one board; in team scope a board belongs to the team
// of the same ID.
type BoardScope struct {
	Mode     string
	SharedID uuid.UUID
}

func NewBoardScope(mode string, sharedID uuid.UUID) (BoardScope, error) {
	switch mode {
	case ScopeGlobal:
		if sharedID == uuid.Nil {
			return BoardScope{}, fmt.Errorf("middleware.NewBoardScope: global scope needs a board ID")
		}
	case ScopeTeam:
	default:
		return BoardScope{}, fmt.Errorf("middleware.NewBoardScope: unknown scope %q", mode)
	}
	return BoardScope{Mode: mode, SharedID: sharedID}, nil
}

// Allows reports whether the caller in ctx may open boardID.
func (s BoardScope) Allows(ctx context.Context, boardID uuid.UUID) bool {
	switch s.Mode {
	case ScopeGlobal:
		return boardID == s.SharedID
	case ScopeTeam:
		teamID, ok := TeamIDFromContext(ctx)
		return ok && teamID != uuid.Nil && teamID == boardID
	default:
		return false
	}
}

// BoardFor returns the board a caller lands on by default.
func (s BoardScope) BoardFor(ctx context.Context) (uuid.UUID, bool) {
	if s.Mode == ScopeGlobal {
		return s.SharedID, true
	}
	teamID, ok := TeamIDFromContext(ctx)
	return teamID, ok && teamID != uuid.Nil
}
