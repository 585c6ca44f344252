package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all universe routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/universe", func(r chi.Router) {
		r.Get("/", h.HandleGetUniverse)
		r.Get("/assets", h.HandleGetAssets)
		r.Get("/assets/{symbol}/stats", h.HandleGetAssetStats)
		r.Get("/stats", h.HandleGetStats)
		r.Post("/regenerate", h.HandleRegenerate)
	})
}
