// Package selection orchestrates portfolio selection end to end: it takes
// the synthetic universe, builds the penalized binary objective, maps it to
// a diagonal Pauli operator, runs the requested minimum-eigensolver backend,
// interprets the resulting eigenstate distribution back into portfolios, and
// records the whole run in runs.db.
package selection

import (
	"time"

	"github.com/eigenfolio/eigenfolio/internal/modules/solvers"
)

// SolveRequest is the API payload for a selection run. Zero values fall back
// to the configured defaults (nil pointers distinguish "omitted" from "0").
type SolveRequest struct {
	Solver       string   `json:"solver"`
	NumAssets    *int     `json:"num_assets,omitempty"`
	Budget       *int     `json:"budget,omitempty"`
	RiskAversion *float64 `json:"risk_aversion,omitempty"`
	Penalty      *float64 `json:"penalty,omitempty"`
	Seed         *int64   `json:"seed,omitempty"`
}

// Candidate is one portfolio read off the eigenstate distribution, with its
// objective value recomputed from the binary problem rather than trusted
// from the solver.
type Candidate struct {
	Bitstring   string   `json:"bitstring"`
	Symbols     []string `json:"symbols"`
	Probability float64  `json:"probability"`
	Objective   float64  `json:"objective"`
	Selected    int      `json:"selected"`
	Feasible    bool     `json:"feasible"`
}

// Interpretation is the decoded view of a solver result.
type Interpretation struct {
	Candidates   []Candidate `json:"candidates"`
	TopCandidate *Candidate  `json:"top_candidate,omitempty"`
	BestFeasible *Candidate  `json:"best_feasible,omitempty"`
}

// Run is a persisted selection run.
type Run struct {
	ID           string    `json:"id"`
	Solver       string    `json:"solver"`
	NumAssets    int       `json:"num_assets"`
	Budget       int       `json:"budget"`
	RiskAversion float64   `json:"risk_aversion"`
	Penalty      float64   `json:"penalty"`
	Seed         int64     `json:"seed"`
	Eigenvalue   float64   `json:"eigenvalue"`
	Iterations   int       `json:"iterations"`
	Evaluations  int       `json:"evaluations"`
	Converged    bool      `json:"converged"`
	DurationMS   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`

	Result         *solvers.Result `json:"result,omitempty"`
	Interpretation *Interpretation `json:"interpretation,omitempty"`
}
