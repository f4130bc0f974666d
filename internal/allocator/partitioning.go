package allocator

import (
	"context"
	"fmt"

	"github.com/vk/qcdist/internal/circuit"
	"github.com/vk/qcdist/internal/ctxlog"
	"github.com/vk/qcdist/internal/distribution"
	"github.com/vk/qcdist/internal/placement"
	"github.com/vk/qcdist/internal/qnet"
	"github.com/vk/qcdist/internal/solver"
)

// Partitioning delegates the placement of qubit vertices to an external
// min-k-cut solver: qubit vertices weigh one against the per-server
// capacities, gate vertices weigh nothing, and each hyperedge contributes
// its weight to the cut objective. Gate vertices are then placed by a
// secondary rule on whichever of their qubits' servers is cheaper, and a
// repair pass fixes any capacity violations the solver's imbalance
// tolerance let through.
type Partitioning struct {
	Solver  solver.Partitioner
	Epsilon float64
}

// NewPartitioning returns a partitioning allocator backed by the given
// solver.
func NewPartitioning(s solver.Partitioner) *Partitioning {
	return &Partitioning{Solver: s, Epsilon: 0.03}
}

// Allocate implements the Allocator interface.
func (a *Partitioning) Allocate(ctx context.Context, hc *circuit.HypergraphCircuit, net *qnet.ServerNetwork) (*distribution.Distribution, error) {
	logger := ctxlog.FromContext(ctx)
	if err := checkFeasible(hc, net); err != nil {
		return nil, err
	}

	servers := net.Servers()
	vertices := hc.Vertices()
	// Vertex ids may be any integers as far as the solver is concerned;
	// compact them to 0..n-1.
	index := make(map[int]int, len(vertices))
	for i, v := range vertices {
		index[v] = i
	}

	indices, flat := hc.CSR()
	problem := &solver.Problem{
		Blocks:           len(servers),
		BlockWeights:     make([]int, len(servers)),
		VertexWeights:    make([]int, len(vertices)),
		HyperedgeIndices: indices,
		Hyperedges:       make([]int, len(flat)),
		EdgeWeights:      make([]int, len(hc.Hyperedges())),
		Epsilon:          a.Epsilon,
	}
	for i, s := range servers {
		problem.BlockWeights[i] = net.QubitCapacity(s)
	}
	for i, v := range vertices {
		if hc.IsQubitVertex(v) {
			problem.VertexWeights[i] = 1
		}
	}
	for i, v := range flat {
		problem.Hyperedges[i] = index[v]
	}
	for i, e := range hc.Hyperedges() {
		problem.EdgeWeights[i] = e.Weight
	}

	blocks, err := a.Solver.Partition(ctx, problem)
	if err != nil {
		return nil, fmt.Errorf("partitioner failed: %w (%w)", err, qnet.ErrInfeasibleNetwork)
	}

	assignment := make(map[int]int, len(vertices))
	for i, v := range vertices {
		if hc.IsQubitVertex(v) {
			assignment[v] = servers[blocks[i]]
		}
	}
	// Secondary rule: a gate goes to whichever endpoint's server hosts
	// more of its neighbourhood, preferring the first qubit on a tie.
	for _, v := range hc.GateVertices() {
		q0, q1, err := hc.GateQubits(v)
		if err != nil {
			return nil, err
		}
		assignment[v] = pickGateServer(hc, assignment, v, assignment[q0], assignment[q1])
	}

	if err := makeValid(hc, net, assignment); err != nil {
		return nil, err
	}
	d, err := distribution.New(hc, placement.New(assignment), net)
	if err != nil {
		return nil, err
	}
	logger.Debug("Partitioning allocation complete.", "blocks", len(servers))
	return d, nil
}

// pickGateServer counts how many of the gate's hyperedge neighbours sit on
// each candidate server and takes the busier one.
func pickGateServer(hc *circuit.HypergraphCircuit, assignment map[int]int, v, s0, s1 int) int {
	if s0 == s1 {
		return s0
	}
	count0, count1 := 0, 0
	for _, e := range hc.IncidentHyperedges(v) {
		for _, u := range e.Vertices {
			if u == v {
				continue
			}
			if s, ok := assignment[u]; ok {
				if s == s0 {
					count0++
				} else if s == s1 {
					count1++
				}
			}
		}
	}
	if count1 > count0 {
		return s1
	}
	return s0
}

// makeValid repairs capacity violations by moving qubits off overfull
// servers onto the emptiest server with room, smallest id first.
func makeValid(hc *circuit.HypergraphCircuit, net *qnet.ServerNetwork, assignment map[int]int) error {
	used := make(map[int]int)
	for _, q := range hc.QubitVertices() {
		used[assignment[q]]++
	}
	for _, s := range net.Servers() {
		for used[s] > net.QubitCapacity(s) {
			q, ok := lastQubitOn(hc, assignment, s)
			if !ok {
				return fmt.Errorf("server %d overfull with no movable qubit: %w", s, qnet.ErrInfeasibleNetwork)
			}
			target, ok := roomiestServer(net, used)
			if !ok {
				return fmt.Errorf("no spare capacity while repairing server %d: %w", s, qnet.ErrInfeasibleNetwork)
			}
			assignment[q] = target
			used[s]--
			used[target]++
		}
	}
	return nil
}

func lastQubitOn(hc *circuit.HypergraphCircuit, assignment map[int]int, s int) (int, bool) {
	qubits := hc.QubitVertices()
	for i := len(qubits) - 1; i >= 0; i-- {
		if assignment[qubits[i]] == s {
			return qubits[i], true
		}
	}
	return 0, false
}

func roomiestServer(net *qnet.ServerNetwork, used map[int]int) (int, bool) {
	best, bestRoom := -1, 0
	for _, s := range net.Servers() {
		room := net.QubitCapacity(s) - used[s]
		if room > bestRoom {
			best, bestRoom = s, room
		}
	}
	return best, best != -1
}
