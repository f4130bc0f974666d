package allocator

import (
	"context"
	"fmt"

	"github.com/vk/qcdist/internal/circuit"
	"github.com/vk/qcdist/internal/distribution"
	"github.com/vk/qcdist/internal/qnet"
)

// Allocator produces an initial distribution of a circuit onto a network.
// Implementations never return an invalid distribution; they fail with
// qnet.ErrInfeasibleNetwork when the circuit cannot fit. Randomised
// allocators carry an explicit seed and are bit-reproducible.
type Allocator interface {
	Allocate(ctx context.Context, hc *circuit.HypergraphCircuit, net *qnet.ServerNetwork) (*distribution.Distribution, error)
}

// checkFeasible verifies the network has enough qubit slots for the
// circuit.
func checkFeasible(hc *circuit.HypergraphCircuit, net *qnet.ServerNetwork) error {
	if !net.CanPlace(hc.NQubits()) {
		return fmt.Errorf("%d qubits exceed total capacity %d: %w",
			hc.NQubits(), net.TotalCapacity(), qnet.ErrInfeasibleNetwork)
	}
	return nil
}
