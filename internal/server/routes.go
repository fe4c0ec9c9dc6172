package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/kanloop/kanloop/internal/api/v1"
	"github.com/kanloop/kanloop/internal/api/ws"
	"github.com/kanloop/kanloop/internal/store/postgres"
)

func registerAPIRoutes(api huma.API, store *postgres.Store, pub v1.Publisher) {
	v1.RegisterBoardRoutes(api, store, pub)
	v1.RegisterListRoutes(api, store, pub)
	v1.RegisterCardRoutes(api, store, pub)
}

func registerWSRoutes(r chi.Router, handler *ws.Handler) {
	r.Get("/board", handler.Serve)
}
