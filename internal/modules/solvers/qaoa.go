package solvers

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/optimize"

	"github.com/eigenfolio/eigenfolio/internal/quantum"
)

// QAOAConfig controls the quantum approximate optimization backend.
type QAOAConfig struct {
	// Layers is the QAOA depth p; the circuit has 2p parameters (γ, β per
	// layer).
	Layers int
	// Restarts is how many independent random starts to try.
	Restarts int
	// MaxIterations caps the optimizer per restart.
	MaxIterations int
	// Seed makes parameter initialization deterministic.
	Seed int64
	// DistributionFloor drops states below this probability from results.
	DistributionFloor float64
	// OnIteration, when set, receives optimizer progress events.
	OnIteration ProgressFunc
}

// DefaultQAOAConfig mirrors the defaults used by the selection service.
func DefaultQAOAConfig(seed int64) QAOAConfig {
	return QAOAConfig{
		Layers:            3,
		Restarts:          3,
		MaxIterations:     400,
		Seed:              seed,
		DistributionFloor: 1e-4,
	}
}

// QAOASolver alternates cost-phase and transverse-mixer layers on a uniform
// superposition and optimizes the layer angles. The cost unitary is applied
// as a single diagonal phase pass since every operator term is Pauli-Z.
type QAOASolver struct {
	cfg QAOAConfig
}

// NewQAOASolver returns a QAOA backend with the given configuration.
func NewQAOASolver(cfg QAOAConfig) *QAOASolver {
	if cfg.Layers < 1 {
		cfg.Layers = 1
	}
	if cfg.Restarts < 1 {
		cfg.Restarts = 1
	}
	if cfg.MaxIterations < 1 {
		cfg.MaxIterations = 200
	}
	if cfg.DistributionFloor <= 0 {
		cfg.DistributionFloor = 1e-4
	}
	return &QAOASolver{cfg: cfg}
}

func (s *QAOASolver) Name() string { return SolverQAOA }

// prepareState builds the QAOA state for parameters laid out as
// [γ1…γp, β1…βp].
func (s *QAOASolver) prepareState(numQubits int, params, energies []float64) (*quantum.StateVector, error) {
	sv, err := quantum.NewStateVector(numQubits)
	if err != nil {
		return nil, err
	}
	for q := 0; q < numQubits; q++ {
		sv.ApplyH(q)
	}
	p := s.cfg.Layers
	for layer := 0; layer < p; layer++ {
		sv.ApplyPhaseDiagonal(params[layer], energies)
		beta := params[p+layer]
		for q := 0; q < numQubits; q++ {
			sv.ApplyRX(q, 2*beta)
		}
	}
	return sv, nil
}

// ComputeMinimumEigenvalue optimizes the 2p layer angles with Nelder-Mead,
// restarting from fresh random points and keeping the best run.
func (s *QAOASolver) ComputeMinimumEigenvalue(ctx context.Context, h *quantum.Hamiltonian) (*Result, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}

	energies := h.Energies()
	numParams := 2 * s.cfg.Layers
	rng := rand.New(rand.NewSource(s.cfg.Seed))

	var (
		bestEnergy = math.Inf(1)
		bestParams []float64
		totalIters int
		totalEvals int
		converged  bool
	)

	for restart := 0; restart < s.cfg.Restarts; restart++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		initial := make([]float64, numParams)
		for i := 0; i < s.cfg.Layers; i++ {
			initial[i] = rng.Float64() * math.Pi                  // γ
			initial[s.cfg.Layers+i] = rng.Float64() * math.Pi / 2 // β
		}

		evals := 0
		runBest := math.Inf(1)
		problem := optimize.Problem{
			Func: func(params []float64) float64 {
				evals++
				sv, err := s.prepareState(h.NumQubits, params, energies)
				if err != nil {
					return math.Inf(1)
				}
				energy := sv.ExpectationDiagonal(energies)
				if energy < runBest {
					runBest = energy
				}
				if s.cfg.OnIteration != nil {
					s.cfg.OnIteration(IterationEvent{
						Solver:     SolverQAOA,
						Iteration:  evals,
						Energy:     energy,
						BestEnergy: runBest,
					})
				}
				return energy
			},
		}

		settings := &optimize.Settings{
			MajorIterations: s.cfg.MaxIterations,
			Converger: &optimize.FunctionConverge{
				Absolute:   1e-10,
				Iterations: 50,
			},
		}

		result, err := optimize.Minimize(problem, initial, settings, &optimize.NelderMead{})
		if err != nil && result == nil {
			return nil, fmt.Errorf("qaoa optimization failed: %w", err)
		}

		totalEvals += evals
		if result != nil {
			totalIters += result.Stats.MajorIterations
			if isSuccessStatus(result.Status) {
				converged = true
			}
			if result.F < bestEnergy {
				bestEnergy = result.F
				bestParams = append([]float64(nil), result.X...)
			}
		}
	}

	if bestParams == nil {
		return nil, fmt.Errorf("qaoa produced no usable result after %d restarts", s.cfg.Restarts)
	}

	sv, err := s.prepareState(h.NumQubits, bestParams, energies)
	if err != nil {
		return nil, err
	}

	return &Result{
		Solver:       SolverQAOA,
		Eigenvalue:   bestEnergy,
		Distribution: distributionFromProbabilities(sv.Probabilities(), energies, h.NumQubits, s.cfg.DistributionFloor),
		Iterations:   totalIters,
		Evaluations:  totalEvals,
		Converged:    converged,
		Parameters:   bestParams,
	}, nil
}
