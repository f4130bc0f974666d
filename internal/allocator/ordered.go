package allocator

import (
	"context"
	"slices"

	"github.com/vk/qcdist/internal/circuit"
	"github.com/vk/qcdist/internal/ctxlog"
	"github.com/vk/qcdist/internal/distribution"
	"github.com/vk/qcdist/internal/placement"
	"github.com/vk/qcdist/internal/qnet"
)

// Ordered greedily assigns qubit vertices to servers in a fixed priority
// order: descending hypergraph degree, ties broken by ascending vertex id.
// Servers fill in ascending id order. Gate vertices land on the server of
// their first qubit. Deterministic, fast, low quality baseline.
type Ordered struct{}

// NewOrdered returns the ordered allocator.
func NewOrdered() *Ordered {
	return &Ordered{}
}

// Allocate implements the Allocator interface.
func (a *Ordered) Allocate(ctx context.Context, hc *circuit.HypergraphCircuit, net *qnet.ServerNetwork) (*distribution.Distribution, error) {
	logger := ctxlog.FromContext(ctx)
	if err := checkFeasible(hc, net); err != nil {
		return nil, err
	}

	qubits := slices.Clone(hc.QubitVertices())
	slices.SortFunc(qubits, func(a, b int) int {
		if d := hc.Degree(b) - hc.Degree(a); d != 0 {
			return d
		}
		return a - b
	})

	assignment := make(map[int]int, len(hc.Vertices()))
	remaining := make(map[int]int)
	for _, s := range net.Servers() {
		remaining[s] = net.QubitCapacity(s)
	}
	for _, q := range qubits {
		for _, s := range net.Servers() {
			if remaining[s] > 0 {
				assignment[q] = s
				remaining[s]--
				break
			}
		}
	}
	for _, v := range hc.GateVertices() {
		q0, _, err := hc.GateQubits(v)
		if err != nil {
			return nil, err
		}
		assignment[v] = assignment[q0]
	}

	d, err := distribution.New(hc, placement.New(assignment), net)
	if err != nil {
		return nil, err
	}
	logger.Debug("Ordered allocation complete.", "qubits", len(qubits), "servers", len(net.Servers()))
	return d, nil
}
