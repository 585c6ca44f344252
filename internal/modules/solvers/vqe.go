package solvers

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/optimize"

	"github.com/eigenfolio/eigenfolio/internal/quantum"
)

// VQEConfig controls the variational quantum eigensolver backend.
type VQEConfig struct {
	// Reps is the number of entangling blocks in the RY ansatz. The circuit
	// has Reps+1 rotation layers, so Reps*n + n parameters total.
	Reps int
	// Restarts is how many independent random starts to try; the best run
	// wins. Must be at least 1.
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

// DefaultVQEConfig mirrors the defaults used by the selection service.
func DefaultVQEConfig(seed int64) VQEConfig {
	return VQEConfig{
		Reps:              2,
		Restarts:          3,
		MaxIterations:     400,
		Seed:              seed,
		DistributionFloor: 1e-4,
	}
}

// VQESolver minimizes ⟨ψ(θ)|H|ψ(θ)⟩ over the parameters of a hardware-
// efficient RY ansatz: alternating layers of per-qubit RY rotations and a
// linear CX entangler chain.
type VQESolver struct {
	cfg VQEConfig
}

// NewVQESolver returns a VQE backend with the given configuration.
func NewVQESolver(cfg VQEConfig) *VQESolver {
	if cfg.Reps < 1 {
		cfg.Reps = 1
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
	return &VQESolver{cfg: cfg}
}

func (s *VQESolver) Name() string { return SolverVQE }

// NumParameters is the ansatz parameter count for n qubits.
func (s *VQESolver) NumParameters(numQubits int) int {
	return numQubits * (s.cfg.Reps + 1)
}

// prepareAnsatz applies the RY ansatz for the given parameters to a fresh
// |0…0⟩ register.
func (s *VQESolver) prepareAnsatz(numQubits int, params []float64) (*quantum.StateVector, error) {
	sv, err := quantum.NewStateVector(numQubits)
	if err != nil {
		return nil, err
	}
	idx := 0
	for layer := 0; layer <= s.cfg.Reps; layer++ {
		for q := 0; q < numQubits; q++ {
			sv.ApplyRY(q, params[idx])
			idx++
		}
		if layer < s.cfg.Reps {
			for q := 0; q < numQubits-1; q++ {
				sv.ApplyCX(q, q+1)
			}
		}
	}
	return sv, nil
}

// ComputeMinimumEigenvalue runs Nelder-Mead over the ansatz parameters,
// restarting from fresh random points and keeping the best run.
func (s *VQESolver) ComputeMinimumEigenvalue(ctx context.Context, h *quantum.Hamiltonian) (*Result, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}

	energies := h.Energies()
	numParams := s.NumParameters(h.NumQubits)
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
		for i := range initial {
			initial[i] = rng.Float64() * 2 * math.Pi
		}

		evals := 0
		runBest := math.Inf(1)
		problem := optimize.Problem{
			Func: func(params []float64) float64 {
				evals++
				sv, err := s.prepareAnsatz(h.NumQubits, params)
				if err != nil {
					return math.Inf(1)
				}
				energy := sv.ExpectationDiagonal(energies)
				if energy < runBest {
					runBest = energy
				}
				if s.cfg.OnIteration != nil {
					s.cfg.OnIteration(IterationEvent{
						Solver:     SolverVQE,
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
			return nil, fmt.Errorf("vqe optimization failed: %w", err)
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
		return nil, fmt.Errorf("vqe produced no usable result after %d restarts", s.cfg.Restarts)
	}

	sv, err := s.prepareAnsatz(h.NumQubits, bestParams)
	if err != nil {
		return nil, err
	}

	return &Result{
		Solver:       SolverVQE,
		Eigenvalue:   bestEnergy,
		Distribution: distributionFromProbabilities(sv.Probabilities(), energies, h.NumQubits, s.cfg.DistributionFloor),
		Iterations:   totalIters,
		Evaluations:  totalEvals,
		Converged:    converged,
		Parameters:   bestParams,
	}, nil
}

// isSuccessStatus mirrors the statuses the optimizer reports on a normal
// finish; anything else (iteration limit, failure) counts as not converged.
func isSuccessStatus(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.FunctionConvergence, optimize.GradientThreshold:
		return true
	default:
		return false
	}
}
