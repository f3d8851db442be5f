package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/taskboard/internal/api/v1"
	"github.com/gosuda/taskboard/internal/api/ws"
	"github.com/gosuda/taskboard/internal/server/middleware"
	"github.com/gosuda/taskboard/internal/taskstore"
)

func registerAPIRoutes(api huma.API, tasks *taskstore.Service, scope middleware.BoardScope) {
	v1.RegisterBoardRoutes(api, tasks, scope)
	v1.RegisterTaskRoutes(api, tasks, scope)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/boards/{boardID}", hub.ServeBoard)
}
