package qubo

import (
	"github.com/eigenfolio/eigenfolio/internal/quantum"
)

// ToHamiltonian maps the binary problem onto a diagonal Pauli-Z operator via
// the substitution x_i = (1 − z_i)/2, so that the energy of every
// computational basis state equals the QUBO objective of the corresponding
// selection (bit i set means asset i selected).
func (q *QUBO) ToHamiltonian() *quantum.Hamiltonian {
	n := q.NumAssets

	// Constant part: offset + Σa_i/2 + Σ_{i<j} b_ij/4.
	constant := q.Offset
	for i := 0; i < n; i++ {
		constant += q.Linear[i] / 2
		for j := i + 1; j < n; j++ {
			constant += q.Quadratic[i][j] / 4
		}
	}

	// Single-Z weights: h_i = −(a_i/2 + (1/4)·Σ_{j≠i} b_ij).
	h := make([]float64, n)
	for i := 0; i < n; i++ {
		coupling := 0.0
		for j := 0; j < n; j++ {
			if j > i {
				coupling += q.Quadratic[i][j]
			} else if j < i {
				coupling += q.Quadratic[j][i]
			}
		}
		h[i] = -(q.Linear[i]/2 + coupling/4)
	}

	ham := &quantum.Hamiltonian{
		NumQubits: n,
		Offset:    constant,
	}
	for i := 0; i < n; i++ {
		if h[i] != 0 {
			ham.Terms = append(ham.Terms, quantum.PauliTerm{Coefficient: h[i], Qubits: []int{i}})
		}
	}
	// Pair couplings: J_ij = b_ij/4.
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if coeff := q.Quadratic[i][j] / 4; coeff != 0 {
				ham.Terms = append(ham.Terms, quantum.PauliTerm{Coefficient: coeff, Qubits: []int{i, j}})
			}
		}
	}

	return ham
}
