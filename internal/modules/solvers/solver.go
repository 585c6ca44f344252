// Package solvers provides the minimum-eigensolver backends used for
// portfolio selection: exact diagonalization for ground truth, plus VQE and
// QAOA variational routines running on the internal statevector engine.
package solvers

import (
	"context"
	"sort"

	"github.com/eigenfolio/eigenfolio/internal/quantum"
)

// Solver name constants as stored on runs and reported over the API.
const (
	SolverExact = "exact"
	SolverVQE   = "vqe"
	SolverQAOA  = "qaoa"
)

// StateProbability is one entry of an eigenstate distribution.
type StateProbability struct {
	State       int     `json:"state"`
	Bitstring   string  `json:"bitstring"`
	Probability float64 `json:"probability"`
	Energy      float64 `json:"energy"`
}

// IterationEvent reports optimizer progress. Solvers invoke the registered
// callback synchronously, so handlers must be fast.
type IterationEvent struct {
	Solver     string  `json:"solver"`
	Iteration  int     `json:"iteration"`
	Energy     float64 `json:"energy"`
	BestEnergy float64 `json:"best_energy"`
}

// Result is the outcome of a minimum-eigenvalue computation.
type Result struct {
	Solver       string             `json:"solver"`
	Eigenvalue   float64            `json:"eigenvalue"`
	Distribution []StateProbability `json:"distribution"`
	Iterations   int                `json:"iterations"`
	Evaluations  int                `json:"evaluations"`
	Converged    bool               `json:"converged"`
	Parameters   []float64          `json:"parameters,omitempty"`
}

// MinimumEigensolver computes the minimum eigenvalue of a diagonal operator
// and the probability distribution of the state that attains it.
type MinimumEigensolver interface {
	Name() string
	ComputeMinimumEigenvalue(ctx context.Context, h *quantum.Hamiltonian) (*Result, error)
}

// ProgressFunc receives per-iteration events from the variational solvers.
type ProgressFunc func(IterationEvent)

// distributionFromProbabilities builds the sorted eigenstate distribution,
// dropping states below the probability floor so tiny amplitudes don't bloat
// API responses and stored blobs.
func distributionFromProbabilities(probs, energies []float64, numQubits int, floor float64) []StateProbability {
	dist := make([]StateProbability, 0, 16)
	for state, p := range probs {
		if p < floor {
			continue
		}
		dist = append(dist, StateProbability{
			State:       state,
			Bitstring:   quantum.Bitstring(state, numQubits),
			Probability: p,
			Energy:      energies[state],
		})
	}
	sort.Slice(dist, func(i, j int) bool {
		return dist[i].Probability > dist[j].Probability
	})
	return dist
}
