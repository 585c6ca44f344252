package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigenfolio/eigenfolio/internal/config"
	"github.com/eigenfolio/eigenfolio/internal/database"
	"github.com/eigenfolio/eigenfolio/internal/modules/market"
)

func setupTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)

	db, err := database.New(database.Config{
		Path:    fmt.Sprintf("file:universe_h_%s?mode=memory&cache=shared", t.Name()),
		Profile: database.ProfileCache,
		Name:    "universe",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := market.NewRepository(db.Conn(), log)
	require.NoError(t, repo.InitSchema())

	cfg := &config.Config{NumAssets: 4, Budget: 2, RiskAversion: 0.5, Seed: 42}
	handler := NewHandler(market.NewService(repo, log), cfg, log)

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		handler.RegisterRoutes(r)
	})
	return router
}

func TestHandleGetUniverse(t *testing.T) {
	router := setupTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/universe", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	data := response["data"].(map[string]interface{})

	assert.Equal(t, float64(42), data["seed"])
	assert.Len(t, data["assets"], 4)
	assert.Len(t, data["expected_returns"], 4)
	assert.Len(t, data["covariance"], 4)
}

func TestHandleGetUniverse_QueryOverrides(t *testing.T) {
	router := setupTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/universe?num_assets=6&seed=9", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, float64(9), data["seed"])
	assert.Len(t, data["assets"], 6)
}

func TestHandleGetUniverse_BadParams(t *testing.T) {
	router := setupTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/universe?num_assets=-1", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/universe?seed=abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGetStats(t *testing.T) {
	router := setupTestRouter(t)

	// No universe yet.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/universe/stats", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Generate, then stats exist.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/api/universe/regenerate", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/universe/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	data := response["data"].(map[string]interface{})
	stats := data["stats"].([]interface{})
	require.Len(t, stats, 4)

	first := stats[0].(map[string]interface{})
	assert.Contains(t, first, "annualized_volatility")
	assert.Contains(t, first, "rsi_14")
}

func TestHandleGetAssets(t *testing.T) {
	router := setupTestRouter(t)

	// No universe yet.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/universe/assets", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/api/universe/regenerate", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/universe/assets", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	data := response["data"].(map[string]interface{})
	assert.Len(t, data["assets"], 4)
}

func TestHandleGetAssetStats(t *testing.T) {
	router := setupTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/api/universe/regenerate", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/universe/assets/SYN00/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "SYN00", data["symbol"])
	assert.Contains(t, data, "annualized_return")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/universe/assets/NOPE/stats", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
