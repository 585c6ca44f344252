package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all selection routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/selection", func(r chi.Router) {
		r.Post("/solve", h.HandleSolve)
		r.Post("/compare", h.HandleCompare)
		r.Get("/runs", h.HandleListRuns)
		r.Get("/runs/{id}", h.HandleGetRun)
		r.Delete("/runs/{id}", h.HandleDeleteRun)
	})
}
