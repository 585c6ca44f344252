package selection

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigenfolio/eigenfolio/internal/config"
	"github.com/eigenfolio/eigenfolio/internal/database"
	"github.com/eigenfolio/eigenfolio/internal/modules/market"
	"github.com/eigenfolio/eigenfolio/internal/modules/settings"
	"github.com/eigenfolio/eigenfolio/internal/modules/solvers"
)

func testDB(t *testing.T, name string, profile database.DatabaseProfile) *database.DB {
	t.Helper()
	db, err := database.New(database.Config{
		Path:    fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, t.Name()),
		Profile: profile,
		Name:    name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testSelectionService(t *testing.T) *Service {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)

	universeDB := testDB(t, "universe", database.ProfileCache)
	runsDB := testDB(t, "runs", database.ProfileRuns)
	configDB := testDB(t, "config", database.ProfileStandard)

	marketRepo := market.NewRepository(universeDB.Conn(), log)
	require.NoError(t, marketRepo.InitSchema())
	marketSvc := market.NewService(marketRepo, log)

	runsRepo := NewRepository(runsDB.Conn(), log)
	require.NoError(t, runsRepo.InitSchema())

	settingsRepo := settings.NewRepository(configDB.Conn(), log)
	require.NoError(t, settingsRepo.InitSchema())

	cfg := &config.Config{
		NumAssets:    4,
		Budget:       2,
		RiskAversion: 0.5,
		Penalty:      0,
		Seed:         42,
	}

	return NewService(cfg, marketSvc, runsRepo, settingsRepo, NewBroadcaster(), log)
}

func TestService_SolveExact(t *testing.T) {
	svc := testSelectionService(t)

	run, err := svc.Solve(context.Background(), SolveRequest{Solver: solvers.SolverExact})
	require.NoError(t, err)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, solvers.SolverExact, run.Solver)
	assert.Equal(t, 4, run.NumAssets)
	assert.Equal(t, 2, run.Budget)
	assert.Greater(t, run.Penalty, 0.0, "auto penalty resolved")
	assert.True(t, run.Converged)

	require.NotNil(t, run.Interpretation)
	require.NotNil(t, run.Interpretation.TopCandidate)
	require.NotNil(t, run.Interpretation.BestFeasible)
	assert.True(t, run.Interpretation.BestFeasible.Feasible)
	assert.Equal(t, 2, run.Interpretation.BestFeasible.Selected)
	assert.Len(t, run.Interpretation.BestFeasible.Symbols, 2)

	// Exact solver's single candidate is the feasible optimum.
	assert.Equal(t, run.Interpretation.TopCandidate.Bitstring, run.Interpretation.BestFeasible.Bitstring)
	assert.InDelta(t, run.Eigenvalue, run.Interpretation.BestFeasible.Objective, 1e-9)
}

func TestService_SolveDefaultsToExact(t *testing.T) {
	svc := testSelectionService(t)

	run, err := svc.Solve(context.Background(), SolveRequest{})
	require.NoError(t, err)
	assert.Equal(t, solvers.SolverExact, run.Solver)
}

func TestService_SolveValidation(t *testing.T) {
	svc := testSelectionService(t)
	ctx := context.Background()

	_, err := svc.Solve(ctx, SolveRequest{Solver: "annealer"})
	assert.Error(t, err)

	bad := 10
	_, err = svc.Solve(ctx, SolveRequest{Budget: &bad})
	assert.Error(t, err, "budget above universe size")

	negative := -0.1
	_, err = svc.Solve(ctx, SolveRequest{RiskAversion: &negative})
	assert.Error(t, err)
}

func TestService_SolveOverrides(t *testing.T) {
	svc := testSelectionService(t)

	assets, budget := 5, 1
	seed := int64(7)
	run, err := svc.Solve(context.Background(), SolveRequest{
		Solver:    solvers.SolverExact,
		NumAssets: &assets,
		Budget:    &budget,
		Seed:      &seed,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, run.NumAssets)
	assert.Equal(t, 1, run.Budget)
	assert.Equal(t, int64(7), run.Seed)
	assert.Equal(t, 1, run.Interpretation.BestFeasible.Selected)
}

func TestService_VQEPublishesProgress(t *testing.T) {
	svc := testSelectionService(t)

	ch, cancel := svc.broadcaster.Subscribe()
	defer cancel()

	run, err := svc.Solve(context.Background(), SolveRequest{Solver: solvers.SolverVQE})
	require.NoError(t, err)

	select {
	case ev := <-ch:
		assert.Equal(t, run.ID, ev.RunID)
		assert.Equal(t, solvers.SolverVQE, ev.Solver)
	default:
		t.Fatal("expected at least one progress event")
	}
}

func TestService_RunPersistenceRoundTrip(t *testing.T) {
	svc := testSelectionService(t)

	run, err := svc.Solve(context.Background(), SolveRequest{Solver: solvers.SolverQAOA})
	require.NoError(t, err)

	loaded, err := svc.GetRun(run.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, run.Solver, loaded.Solver)
	assert.InDelta(t, run.Eigenvalue, loaded.Eigenvalue, 1e-12)
	require.NotNil(t, loaded.Result)
	assert.Len(t, loaded.Result.Distribution, len(run.Result.Distribution))
	require.NotNil(t, loaded.Interpretation)
	assert.Equal(t, run.Interpretation.TopCandidate.Bitstring, loaded.Interpretation.TopCandidate.Bitstring)
	// Symbols re-attached from the still-active universe.
	assert.Equal(t, run.Interpretation.TopCandidate.Symbols, loaded.Interpretation.TopCandidate.Symbols)

	runs, err := svc.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Nil(t, runs[0].Result, "list omits distributions")

	require.NoError(t, svc.DeleteRun(run.ID))
	gone, err := svc.GetRun(run.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestService_CompareRunsAllSolvers(t *testing.T) {
	svc := testSelectionService(t)

	results, err := svc.Compare(context.Background(), SolveRequest{})
	require.NoError(t, err)
	require.Len(t, results, 3)

	exact := results[solvers.SolverExact]
	for name, run := range results {
		assert.Equal(t, name, run.Solver)
		// Variational results can't beat the exact ground energy.
		assert.GreaterOrEqual(t, run.Eigenvalue, exact.Eigenvalue-1e-9)
	}

	count, err := svc.repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
