package selection

import (
	"github.com/eigenfolio/eigenfolio/internal/modules/qubo"
	"github.com/eigenfolio/eigenfolio/internal/modules/solvers"
	"github.com/eigenfolio/eigenfolio/internal/quantum"
)

// Interpret decodes a solver result against the binary problem it came from.
// Each distribution entry becomes a candidate portfolio with its objective
// recomputed via the QUBO (never read off the operator energy), feasibility
// checked against the budget, and symbols resolved from the universe order.
// Candidates keep the distribution's probability-descending order.
func Interpret(result *solvers.Result, problem *qubo.QUBO, symbols []string) *Interpretation {
	interp := &Interpretation{
		Candidates: make([]Candidate, 0, len(result.Distribution)),
	}

	for _, sp := range result.Distribution {
		selected := quantum.OnesCount(sp.State)
		candidate := Candidate{
			Bitstring:   sp.Bitstring,
			Probability: sp.Probability,
			Objective:   problem.EvaluateState(sp.State),
			Selected:    selected,
			Feasible:    selected == problem.Budget,
		}
		for i := 0; i < problem.NumAssets; i++ {
			if sp.State&(1<<i) != 0 && i < len(symbols) {
				candidate.Symbols = append(candidate.Symbols, symbols[i])
			}
		}
		interp.Candidates = append(interp.Candidates, candidate)
	}

	if len(interp.Candidates) > 0 {
		top := interp.Candidates[0]
		interp.TopCandidate = &top
	}
	for i := range interp.Candidates {
		c := interp.Candidates[i]
		if !c.Feasible {
			continue
		}
		if interp.BestFeasible == nil || c.Objective < interp.BestFeasible.Objective {
			best := c
			interp.BestFeasible = &best
		}
	}

	return interp
}
