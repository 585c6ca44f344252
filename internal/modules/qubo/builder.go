// Package qubo builds the quadratic unconstrained binary formulation of the
// portfolio-selection problem and converts it to an Ising-type operator the
// solver backends can diagonalize or optimize against.
//
// The objective being minimized over x ∈ {0,1}^n is
//
//	f(x) = q·xᵀΣx − μᵀx + λ(1ᵀx − B)²
//
// where μ are expected returns, Σ the return covariance, q the risk-aversion
// weight, B the budget (number of assets to pick) and λ the penalty weight
// enforcing the budget as a soft constraint.
package qubo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// QUBO is the expanded problem in coefficient form:
//
//	f(x) = Σ_i Linear[i]·x_i + Σ_{i<j} Quadratic[i][j]·x_i·x_j + Offset
//
// Quadratic is upper-triangular; entries with j <= i are zero.
type QUBO struct {
	NumAssets int
	Budget    int
	Linear    []float64
	Quadratic [][]float64
	Offset    float64

	RiskAversion float64
	Penalty      float64
}

// BuildPortfolioQUBO expands the portfolio objective into QUBO coefficients.
// A penalty <= 0 requests automatic scaling: λ is set above the largest
// single-asset swing in the unconstrained objective so that violating the
// budget by one asset always costs more than any return/risk gain.
func BuildPortfolioQUBO(returns []float64, covariance *mat.SymDense, riskAversion float64, budget int, penalty float64) (*QUBO, error) {
	n := len(returns)
	if n < 1 {
		return nil, fmt.Errorf("need at least one asset, got %d", n)
	}
	if covariance == nil || covariance.SymmetricDim() != n {
		return nil, fmt.Errorf("covariance must be %dx%d", n, n)
	}
	if budget < 0 || budget > n {
		return nil, fmt.Errorf("budget %d outside [0,%d]", budget, n)
	}
	if riskAversion < 0 {
		return nil, fmt.Errorf("risk aversion must be non-negative, got %f", riskAversion)
	}

	if penalty <= 0 {
		penalty = autoPenalty(returns, covariance, riskAversion)
	}

	q := &QUBO{
		NumAssets:    n,
		Budget:       budget,
		Linear:       make([]float64, n),
		Quadratic:    make([][]float64, n),
		RiskAversion: riskAversion,
		Penalty:      penalty,
	}
	for i := range q.Quadratic {
		q.Quadratic[i] = make([]float64, n)
	}

	// λ(Σx_i − B)² expands to λB² − 2λB·Σx_i + λ·Σx_i + 2λ·Σ_{i<j}x_i x_j,
	// using x_i² = x_i for binaries.
	for i := 0; i < n; i++ {
		q.Linear[i] = -returns[i] + penalty*float64(1-2*budget) + riskAversion*covariance.At(i, i)
		for j := i + 1; j < n; j++ {
			q.Quadratic[i][j] = 2*riskAversion*covariance.At(i, j) + 2*penalty
		}
	}
	q.Offset = penalty * float64(budget*budget)

	return q, nil
}

// autoPenalty picks λ larger than the biggest per-asset contribution to the
// unconstrained objective, so the budget constraint dominates.
func autoPenalty(returns []float64, covariance *mat.SymDense, riskAversion float64) float64 {
	n := len(returns)
	maxSwing := 0.0
	for i := 0; i < n; i++ {
		swing := math.Abs(returns[i]) + riskAversion*math.Abs(covariance.At(i, i))
		for j := 0; j < n; j++ {
			if j != i {
				swing += riskAversion * math.Abs(covariance.At(i, j))
			}
		}
		if swing > maxSwing {
			maxSwing = swing
		}
	}
	if maxSwing == 0 {
		return 1.0
	}
	return 2.0 * maxSwing
}

// Evaluate computes f(x) for a selection vector. len(x) must equal NumAssets;
// each entry is treated as binary (non-zero means selected).
func (q *QUBO) Evaluate(x []int) (float64, error) {
	if len(x) != q.NumAssets {
		return 0, fmt.Errorf("selection vector has %d entries, want %d", len(x), q.NumAssets)
	}
	value := q.Offset
	for i := 0; i < q.NumAssets; i++ {
		if x[i] == 0 {
			continue
		}
		value += q.Linear[i]
		for j := i + 1; j < q.NumAssets; j++ {
			if x[j] != 0 {
				value += q.Quadratic[i][j]
			}
		}
	}
	return value, nil
}

// EvaluateState evaluates the objective for a basis-state index where bit i
// is the selection of asset i.
func (q *QUBO) EvaluateState(state int) float64 {
	value := q.Offset
	for i := 0; i < q.NumAssets; i++ {
		if state&(1<<i) == 0 {
			continue
		}
		value += q.Linear[i]
		for j := i + 1; j < q.NumAssets; j++ {
			if state&(1<<j) != 0 {
				value += q.Quadratic[i][j]
			}
		}
	}
	return value
}
