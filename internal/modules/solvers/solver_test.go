package solvers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/eigenfolio/eigenfolio/internal/modules/qubo"
	"github.com/eigenfolio/eigenfolio/internal/quantum"
)

// testHamiltonian builds a small portfolio operator with a known feasible
// ground state.
func testHamiltonian(t *testing.T) (*quantum.Hamiltonian, *qubo.QUBO) {
	t.Helper()

	returns := []float64{0.15, 0.05, 0.12, 0.08}
	cov := mat.NewSymDense(4, []float64{
		0.10, 0.02, 0.01, 0.00,
		0.02, 0.06, 0.01, 0.01,
		0.01, 0.01, 0.09, 0.02,
		0.00, 0.01, 0.02, 0.07,
	})

	q, err := qubo.BuildPortfolioQUBO(returns, cov, 0.5, 2, 0)
	require.NoError(t, err)
	return q.ToHamiltonian(), q
}

func TestExactSolver_FindsGroundState(t *testing.T) {
	h, q := testHamiltonian(t)

	res, err := NewExactSolver().ComputeMinimumEigenvalue(context.Background(), h)
	require.NoError(t, err)

	assert.Equal(t, SolverExact, res.Solver)
	assert.True(t, res.Converged)
	require.Len(t, res.Distribution, 1)
	assert.InDelta(t, 1.0, res.Distribution[0].Probability, 1e-12)

	// Cross-check against brute force on the objective itself.
	best := q.EvaluateState(0)
	for state := 1; state < 1<<4; state++ {
		if e := q.EvaluateState(state); e < best {
			best = e
		}
	}
	assert.InDelta(t, best, res.Eigenvalue, 1e-10)
	assert.Equal(t, 2, quantum.OnesCount(res.Distribution[0].State))
}

func TestExactSolver_RespectsContext(t *testing.T) {
	h, _ := testHamiltonian(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExactSolver().ComputeMinimumEigenvalue(ctx, h)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVQESolver_RespectsVariationalBound(t *testing.T) {
	h, _ := testHamiltonian(t)

	exact, err := NewExactSolver().ComputeMinimumEigenvalue(context.Background(), h)
	require.NoError(t, err)

	vqe := NewVQESolver(DefaultVQEConfig(42))
	res, err := vqe.ComputeMinimumEigenvalue(context.Background(), h)
	require.NoError(t, err)

	assert.Equal(t, SolverVQE, res.Solver)
	// A variational eigenvalue can never undercut the true ground energy.
	assert.GreaterOrEqual(t, res.Eigenvalue, exact.Eigenvalue-1e-9)
	assert.Greater(t, res.Evaluations, 0)
	assert.Len(t, res.Parameters, vqe.NumParameters(h.NumQubits))

	total := 0.0
	for _, sp := range res.Distribution {
		total += sp.Probability
	}
	assert.InDelta(t, 1.0, total, 1e-2, "distribution mass after flooring")
}

func TestVQESolver_Deterministic(t *testing.T) {
	h, _ := testHamiltonian(t)
	cfg := DefaultVQEConfig(7)
	cfg.Restarts = 1
	cfg.MaxIterations = 100

	a, err := NewVQESolver(cfg).ComputeMinimumEigenvalue(context.Background(), h)
	require.NoError(t, err)
	b, err := NewVQESolver(cfg).ComputeMinimumEigenvalue(context.Background(), h)
	require.NoError(t, err)

	assert.Equal(t, a.Eigenvalue, b.Eigenvalue)
	assert.Equal(t, a.Parameters, b.Parameters)
}

func TestQAOASolver_RespectsVariationalBound(t *testing.T) {
	h, _ := testHamiltonian(t)

	exact, err := NewExactSolver().ComputeMinimumEigenvalue(context.Background(), h)
	require.NoError(t, err)

	res, err := NewQAOASolver(DefaultQAOAConfig(42)).ComputeMinimumEigenvalue(context.Background(), h)
	require.NoError(t, err)

	assert.Equal(t, SolverQAOA, res.Solver)
	assert.GreaterOrEqual(t, res.Eigenvalue, exact.Eigenvalue-1e-9)
	assert.Greater(t, res.Evaluations, 0)
	assert.Len(t, res.Parameters, 2*DefaultQAOAConfig(42).Layers)
}

func TestQAOASolver_EmitsProgress(t *testing.T) {
	h, _ := testHamiltonian(t)

	cfg := DefaultQAOAConfig(1)
	cfg.Restarts = 1
	cfg.MaxIterations = 50
	var events []IterationEvent
	cfg.OnIteration = func(ev IterationEvent) {
		events = append(events, ev)
	}

	_, err := NewQAOASolver(cfg).ComputeMinimumEigenvalue(context.Background(), h)
	require.NoError(t, err)

	require.NotEmpty(t, events)
	assert.Equal(t, SolverQAOA, events[0].Solver)
	for _, ev := range events {
		assert.GreaterOrEqual(t, ev.Energy, ev.BestEnergy)
	}
}

func TestSolvers_CancelBetweenRestarts(t *testing.T) {
	h, _ := testHamiltonian(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewVQESolver(DefaultVQEConfig(1)).ComputeMinimumEigenvalue(ctx, h)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = NewQAOASolver(DefaultQAOAConfig(1)).ComputeMinimumEigenvalue(ctx, h)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDistributionFromProbabilities_SortsAndFloors(t *testing.T) {
	probs := []float64{0.1, 0.00001, 0.6, 0.29999}
	energies := []float64{1, 2, 3, 4}

	dist := distributionFromProbabilities(probs, energies, 2, 1e-3)
	require.Len(t, dist, 3)
	assert.Equal(t, 2, dist[0].State)
	assert.Equal(t, 3, dist[1].State)
	assert.Equal(t, 0, dist[2].State)
	assert.Equal(t, "01", dist[0].Bitstring)
}
