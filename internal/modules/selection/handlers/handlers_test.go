package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigenfolio/eigenfolio/internal/config"
	"github.com/eigenfolio/eigenfolio/internal/database"
	"github.com/eigenfolio/eigenfolio/internal/modules/market"
	"github.com/eigenfolio/eigenfolio/internal/modules/selection"
	"github.com/eigenfolio/eigenfolio/internal/modules/settings"
)

func setupTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)

	newDB := func(name string, profile database.DatabaseProfile) *database.DB {
		db, err := database.New(database.Config{
			Path:    fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, t.Name()),
			Profile: profile,
			Name:    name,
		})
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		return db
	}

	marketRepo := market.NewRepository(newDB("universe", database.ProfileCache).Conn(), log)
	require.NoError(t, marketRepo.InitSchema())
	runsRepo := selection.NewRepository(newDB("runs", database.ProfileRuns).Conn(), log)
	require.NoError(t, runsRepo.InitSchema())
	settingsRepo := settings.NewRepository(newDB("config", database.ProfileStandard).Conn(), log)
	require.NoError(t, settingsRepo.InitSchema())

	cfg := &config.Config{NumAssets: 4, Budget: 2, RiskAversion: 0.5, Seed: 42}
	service := selection.NewService(
		cfg,
		market.NewService(marketRepo, log),
		runsRepo,
		settingsRepo,
		selection.NewBroadcaster(),
		log,
	)

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		NewHandler(service, log).RegisterRoutes(r)
	})
	return router
}

func TestHandleSolve(t *testing.T) {
	router := setupTestRouter(t)

	body, _ := json.Marshal(map[string]interface{}{"solver": "exact"})
	req := httptest.NewRequest("POST", "/api/selection/solve", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	require.Contains(t, response, "data")

	data := response["data"].(map[string]interface{})
	assert.Equal(t, "exact", data["solver"])
	assert.NotEmpty(t, data["id"])
	assert.Contains(t, data, "eigenvalue")
	assert.Contains(t, data, "interpretation")
}

func TestHandleSolve_EmptyBodyUsesDefaults(t *testing.T) {
	router := setupTestRouter(t)

	req := httptest.NewRequest("POST", "/api/selection/solve", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleSolve_RejectsBadSolver(t *testing.T) {
	router := setupTestRouter(t)

	req := httptest.NewRequest("POST", "/api/selection/solve", strings.NewReader(`{"solver":"annealer"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSolve_RejectsInvalidJSON(t *testing.T) {
	router := setupTestRouter(t)

	req := httptest.NewRequest("POST", "/api/selection/solve", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunLifecycleOverHTTP(t *testing.T) {
	router := setupTestRouter(t)

	// Solve.
	req := httptest.NewRequest("POST", "/api/selection/solve", strings.NewReader(`{"solver":"exact"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var solveResp map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&solveResp))
	runID := solveResp["data"].(map[string]interface{})["id"].(string)

	// List.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/selection/runs", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var listResp map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&listResp))
	listData := listResp["data"].(map[string]interface{})
	assert.Equal(t, float64(1), listData["count"])

	// Get.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/selection/runs/"+runID, nil))
	require.Equal(t, http.StatusOK, w.Code)

	// Delete, then Get returns 404.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/selection/runs/"+runID, nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/selection/runs/"+runID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleListRuns_BadLimit(t *testing.T) {
	router := setupTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/selection/runs?limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
