package quantum

import (
	"fmt"
	"math"
	"math/cmplx"
)

// StateVector holds the 2^n complex amplitudes of an n-qubit register.
// Qubit i corresponds to bit i of the amplitude index (little-endian).
type StateVector struct {
	NumQubits  int
	Amplitudes []complex128
}

// NewStateVector returns the register initialized to |00…0⟩.
func NewStateVector(numQubits int) (*StateVector, error) {
	if numQubits < 1 {
		return nil, fmt.Errorf("statevector needs at least 1 qubit, got %d", numQubits)
	}
	if numQubits > MaxQubits {
		return nil, fmt.Errorf("statevector on %d qubits exceeds the %d-qubit limit", numQubits, MaxQubits)
	}
	amps := make([]complex128, 1<<numQubits)
	amps[0] = 1
	return &StateVector{NumQubits: numQubits, Amplitudes: amps}, nil
}

// forEachPair visits every amplitude pair (i0, i1) that differs only in the
// target bit, with i0 having the bit clear. Single-qubit gates are 2x2
// rotations over these pairs.
func (sv *StateVector) forEachPair(target int, fn func(i0, i1 int)) {
	bit := 1 << target
	dim := len(sv.Amplitudes)
	for i := 0; i < dim; i++ {
		if i&bit == 0 {
			fn(i, i|bit)
		}
	}
}

// ApplyH applies the Hadamard gate to the target qubit.
func (sv *StateVector) ApplyH(target int) {
	inv := complex(1/math.Sqrt2, 0)
	sv.forEachPair(target, func(i0, i1 int) {
		a0 := sv.Amplitudes[i0]
		a1 := sv.Amplitudes[i1]
		sv.Amplitudes[i0] = inv * (a0 + a1)
		sv.Amplitudes[i1] = inv * (a0 - a1)
	})
}

// ApplyRY applies a Y-axis rotation by theta to the target qubit.
func (sv *StateVector) ApplyRY(target int, theta float64) {
	c := complex(math.Cos(theta/2), 0)
	s := complex(math.Sin(theta/2), 0)
	sv.forEachPair(target, func(i0, i1 int) {
		a0 := sv.Amplitudes[i0]
		a1 := sv.Amplitudes[i1]
		sv.Amplitudes[i0] = c*a0 - s*a1
		sv.Amplitudes[i1] = s*a0 + c*a1
	})
}

// ApplyRX applies an X-axis rotation by theta to the target qubit.
func (sv *StateVector) ApplyRX(target int, theta float64) {
	c := complex(math.Cos(theta/2), 0)
	s := complex(0, -math.Sin(theta/2))
	sv.forEachPair(target, func(i0, i1 int) {
		a0 := sv.Amplitudes[i0]
		a1 := sv.Amplitudes[i1]
		sv.Amplitudes[i0] = c*a0 + s*a1
		sv.Amplitudes[i1] = s*a0 + c*a1
	})
}

// ApplyCX applies a controlled-NOT: the target amplitude pairs swap whenever
// the control bit is set.
func (sv *StateVector) ApplyCX(control, target int) {
	cbit := 1 << control
	sv.forEachPair(target, func(i0, i1 int) {
		if i0&cbit != 0 {
			sv.Amplitudes[i0], sv.Amplitudes[i1] = sv.Amplitudes[i1], sv.Amplitudes[i0]
		}
	})
}

// ApplyPhaseDiagonal multiplies each amplitude by exp(-i*gamma*E) where E is
// the precomputed diagonal energy of that basis state. This is the cost-layer
// unitary of QAOA applied in a single pass.
func (sv *StateVector) ApplyPhaseDiagonal(gamma float64, energies []float64) {
	for i := range sv.Amplitudes {
		sv.Amplitudes[i] *= cmplx.Exp(complex(0, -gamma*energies[i]))
	}
}

// ExpectationDiagonal returns ⟨ψ|H|ψ⟩ for a diagonal H given its precomputed
// per-basis-state energies.
func (sv *StateVector) ExpectationDiagonal(energies []float64) float64 {
	expectation := 0.0
	for i, amp := range sv.Amplitudes {
		p := real(amp)*real(amp) + imag(amp)*imag(amp)
		expectation += p * energies[i]
	}
	return expectation
}

// Probabilities returns |amplitude|^2 per basis state.
func (sv *StateVector) Probabilities() []float64 {
	probs := make([]float64, len(sv.Amplitudes))
	for i, amp := range sv.Amplitudes {
		probs[i] = real(amp)*real(amp) + imag(amp)*imag(amp)
	}
	return probs
}

// Norm returns the 2-norm of the state. Stays at 1 under unitary gates, so a
// drift here signals a bug rather than expected numerical behavior.
func (sv *StateVector) Norm() float64 {
	sum := 0.0
	for _, amp := range sv.Amplitudes {
		sum += real(amp)*real(amp) + imag(amp)*imag(amp)
	}
	return math.Sqrt(sum)
}
