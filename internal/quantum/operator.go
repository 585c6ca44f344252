// Package quantum implements the minimal statevector machinery the solver
// backends need: an Ising-type (diagonal) Hamiltonian represented as a
// weighted sum of Pauli-Z terms, and a dense statevector with the handful of
// gates the ansätze use. It is deliberately not a general-purpose circuit
// simulator: there is no measurement collapse, no noise, and the gate set is
// limited to H, RX, RY and CX.
package quantum

import (
	"fmt"
	"strings"
)

// MaxQubits bounds the dense statevector size (2^24 amplitudes ≈ 256MB).
const MaxQubits = 24

// PauliTerm is a single weighted Pauli-Z product acting on a subset of qubits.
// An empty Qubits slice denotes the identity term.
type PauliTerm struct {
	Coefficient float64 `json:"coefficient"`
	Qubits      []int   `json:"qubits"`
}

// Label renders the term in the conventional "Z0*Z3" style, "I" for identity.
func (t PauliTerm) Label() string {
	if len(t.Qubits) == 0 {
		return "I"
	}
	parts := make([]string, len(t.Qubits))
	for i, q := range t.Qubits {
		parts[i] = fmt.Sprintf("Z%d", q)
	}
	return strings.Join(parts, "*")
}

// Hamiltonian is a weighted sum of Pauli-Z products plus a scalar offset.
// All terms commute, so the operator is diagonal in the computational basis
// and its full spectrum can be evaluated state by state.
type Hamiltonian struct {
	NumQubits int
	Terms     []PauliTerm
	Offset    float64
}

// Validate checks the operator is well formed.
func (h *Hamiltonian) Validate() error {
	if h.NumQubits < 1 {
		return fmt.Errorf("hamiltonian needs at least 1 qubit, got %d", h.NumQubits)
	}
	if h.NumQubits > MaxQubits {
		return fmt.Errorf("hamiltonian on %d qubits exceeds the %d-qubit statevector limit", h.NumQubits, MaxQubits)
	}
	for _, term := range h.Terms {
		for _, q := range term.Qubits {
			if q < 0 || q >= h.NumQubits {
				return fmt.Errorf("term %s references qubit %d outside [0,%d)", term.Label(), q, h.NumQubits)
			}
		}
	}
	return nil
}

// Energies evaluates the diagonal of the Hamiltonian: one energy per
// computational basis state. Bit i of the state index is the value of qubit i,
// and Z contributes +1 for |0⟩ and −1 for |1⟩.
func (h *Hamiltonian) Energies() []float64 {
	dim := 1 << h.NumQubits
	energies := make([]float64, dim)

	for state := 0; state < dim; state++ {
		energy := h.Offset
		for _, term := range h.Terms {
			sign := 1.0
			for _, q := range term.Qubits {
				if state&(1<<q) != 0 {
					sign = -sign
				}
			}
			energy += term.Coefficient * sign
		}
		energies[state] = energy
	}

	return energies
}

// Bitstring renders a basis state index as a selection bitstring in qubit
// order: character i is the value of qubit i ("asset i selected" in the
// portfolio encoding).
func Bitstring(state int, numQubits int) string {
	var b strings.Builder
	b.Grow(numQubits)
	for q := 0; q < numQubits; q++ {
		if state&(1<<q) != 0 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// StateFromBitstring is the inverse of Bitstring.
func StateFromBitstring(bits string) (int, error) {
	if len(bits) > MaxQubits {
		return 0, fmt.Errorf("bitstring longer than %d qubits", MaxQubits)
	}
	state := 0
	for i := 0; i < len(bits); i++ {
		switch bits[i] {
		case '1':
			state |= 1 << i
		case '0':
			// nothing
		default:
			return 0, fmt.Errorf("invalid character %q in bitstring", bits[i])
		}
	}
	return state, nil
}

// OnesCount returns the Hamming weight of a basis state (number of selected
// assets in the portfolio encoding).
func OnesCount(state int) int {
	count := 0
	for state > 0 {
		count += state & 1
		state >>= 1
	}
	return count
}
