package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/server/middleware"
)

// Feed is the task store surface the hub needs: the board's current task set
// and its live event stream. *taskstore.Service satisfies it.
type Feed interface {
	List(ctx context.Context, boardID uuid.UUID) ([]*domain.Task, error)
	Subscribe(ctx context.Context, boardID uuid.UUID) (<-chan []byte, func(), error)
}

// Hub serves board subscriptions over WebSocket.
type Hub struct {
	feed  Feed
	scope middleware.BoardScope

	// PingInterval keeps idle connections alive through proxies. Zero disables pings.
	PingInterval time.Duration
	// OriginPatterns lists the cross-origin hosts allowed to connect, in the
	// form accepted by websocket.AcceptOptions.
	OriginPatterns []string
}

// NewHub creates a new WebSocket hub.
func NewHub(feed Feed, scope middleware.BoardScope) *Hub {
	return &Hub{feed: feed, scope: scope, PingInterval: 30 * time.Second}
}

// ServeBoard streams one board to a viewer: a snapshot event first, then every
// live event. The subscription is opened before the snapshot is read so no
// event committed in between is lost. Clients apply events by version. If the
// feed ends the subscription first, the socket closes with StatusTryAgainLater.
func (h *Hub) ServeBoard(w http.ResponseWriter, r *http.Request) {
	boardID, err := uuid.Parse(chi.URLParam(r, "boardID"))
	if err != nil {
		http.Error(w, "invalid board id", http.StatusBadRequest)
		return
	}
	if !h.scope.Allows(r.Context(), boardID) {
		http.Error(w, "board not accessible", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.OriginPatterns})
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	// Viewers never send; CloseRead handles control frames and cancels ctx
	// when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	messages, cleanup, err := h.feed.Subscribe(ctx, boardID)
	if err != nil {
		log.Error().Err(err).Str("board_id", boardID.String()).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	tasks, err := h.feed.List(ctx, boardID)
	if err != nil {
		log.Error().Err(err).Str("board_id", boardID.String()).Msg("websocket snapshot")
		_ = conn.Close(websocket.StatusInternalError, "snapshot failed")
		return
	}
	if tasks == nil {
		tasks = make([]*domain.Task, 0)
	}
	snapshot := domain.BoardEvent{
		Type:     domain.EventSnapshot,
		BoardID:  boardID,
		Tasks:    tasks,
		Editable: middleware.CanEdit(ctx),
		At:       time.Now(),
	}
	if err := wsjson.Write(ctx, conn, snapshot); err != nil {
		log.Debug().Err(err).Msg("websocket write snapshot")
		return
	}

	var ping <-chan time.Time
	if h.PingInterval > 0 {
		ticker := time.NewTicker(h.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case <-ping:
			if err := conn.Ping(ctx); err != nil {
				log.Debug().Err(err).Msg("websocket ping")
				return
			}
		case msg, msgOK := <-messages:
			if !msgOK {
				// The feed dropped this subscriber, usually for lagging. Events
				// may be missing, so the client has to reconnect for a snapshot.
				log.Warn().Str("board_id", boardID.String()).Msg("websocket event stream interrupted")
				_ = conn.Close(websocket.StatusTryAgainLater, "event stream interrupted, resubscribe")
				return
			}
			if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
				log.Debug().Err(writeErr).Msg("websocket write")
				return
			}
		}
	}
}
