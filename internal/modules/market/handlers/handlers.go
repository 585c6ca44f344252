// Package handlers provides HTTP handlers for the synthetic asset universe.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/eigenfolio/eigenfolio/internal/config"
	"github.com/eigenfolio/eigenfolio/internal/modules/market"
)

// Handler handles market HTTP requests
type Handler struct {
	service *market.Service
	cfg     *config.Config
	log     zerolog.Logger
}

// NewHandler creates a new market handler
func NewHandler(service *market.Service, cfg *config.Config, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		cfg:     cfg,
		log:     log.With().Str("handler", "market").Logger(),
	}
}

// universeParams reads num_assets/seed query overrides, falling back to the
// configured defaults.
func (h *Handler) universeParams(r *http.Request) (int, int64, error) {
	numAssets := h.cfg.NumAssets
	seed := h.cfg.Seed

	if raw := r.URL.Query().Get("num_assets"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return 0, 0, errInvalidParam("num_assets")
		}
		numAssets = parsed
	}
	if raw := r.URL.Query().Get("seed"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, 0, errInvalidParam("seed")
		}
		seed = parsed
	}
	return numAssets, seed, nil
}

type paramError string

func errInvalidParam(name string) paramError { return paramError(name) }

func (e paramError) Error() string { return string(e) + " must be a valid integer" }

// HandleGetUniverse handles GET /api/universe
func (h *Handler) HandleGetUniverse(w http.ResponseWriter, r *http.Request) {
	numAssets, seed, err := h.universeParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	universe, err := h.service.GetUniverse(numAssets, seed)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to obtain universe")
		http.Error(w, "Failed to obtain universe", http.StatusInternalServerError)
		return
	}

	h.writeUniverse(w, universe)
}

// HandleGetAssets handles GET /api/universe/assets
func (h *Handler) HandleGetAssets(w http.ResponseWriter, r *http.Request) {
	universe := h.service.Active()
	if universe == nil {
		http.Error(w, "No universe generated yet", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"seed":   universe.Seed,
			"assets": universe.Assets,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetAssetStats handles GET /api/universe/assets/{symbol}/stats
func (h *Handler) HandleGetAssetStats(w http.ResponseWriter, r *http.Request) {
	universe := h.service.Active()
	if universe == nil {
		http.Error(w, "No universe generated yet", http.StatusNotFound)
		return
	}

	symbol := chi.URLParam(r, "symbol")
	for i := range universe.Stats {
		if universe.Stats[i].Symbol == symbol {
			h.writeJSON(w, http.StatusOK, map[string]interface{}{
				"data": universe.Stats[i],
				"metadata": map[string]interface{}{
					"timestamp": time.Now().Format(time.RFC3339),
				},
			})
			return
		}
	}

	http.Error(w, "Unknown symbol", http.StatusNotFound)
}

// HandleRegenerate handles POST /api/universe/regenerate
func (h *Handler) HandleRegenerate(w http.ResponseWriter, r *http.Request) {
	numAssets, seed, err := h.universeParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	universe, err := h.service.Regenerate(numAssets, seed)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to regenerate universe")
		http.Error(w, "Failed to regenerate universe", http.StatusInternalServerError)
		return
	}

	h.writeUniverse(w, universe)
}

// HandleGetStats handles GET /api/universe/stats
func (h *Handler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	universe := h.service.Active()
	if universe == nil {
		http.Error(w, "No universe generated yet", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"seed":  universe.Seed,
			"stats": universe.Stats,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeUniverse(w http.ResponseWriter, universe *market.Universe) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"seed":             universe.Seed,
			"periods":          universe.Periods,
			"assets":           universe.Assets,
			"expected_returns": universe.ExpectedReturns,
			"covariance":       universe.CovarianceRows(),
			"generated_at":     universe.GeneratedAt,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
