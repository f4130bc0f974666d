package allocator

import (
	"context"

	"github.com/vk/qcdist/internal/circuit"
	"github.com/vk/qcdist/internal/ctxlog"
	"github.com/vk/qcdist/internal/distribution"
	"github.com/vk/qcdist/internal/placement"
	"github.com/vk/qcdist/internal/qnet"
)

// Routing places qubits by walking the network breadth-first from the
// lowest server id and filling capacity along the way, so consecutive
// qubits land on nearby servers. Each gate vertex then follows its busier
// qubit, keeping the servers a hyperedge touches clustered.
type Routing struct{}

// NewRouting returns the routing-aware allocator.
func NewRouting() *Routing {
	return &Routing{}
}

// Allocate implements the Allocator interface.
func (a *Routing) Allocate(ctx context.Context, hc *circuit.HypergraphCircuit, net *qnet.ServerNetwork) (*distribution.Distribution, error) {
	logger := ctxlog.FromContext(ctx)
	if err := checkFeasible(hc, net); err != nil {
		return nil, err
	}

	order := bfsServerOrder(net)
	assignment := make(map[int]int, len(hc.Vertices()))
	slot := 0
	filled := 0
	for _, q := range hc.QubitVertices() {
		for filled >= net.QubitCapacity(order[slot]) {
			slot++
			filled = 0
		}
		assignment[q] = order[slot]
		filled++
	}

	// A gate sticks with its busier qubit: that qubit's hyperedge already
	// touches the most servers, so growing it costs nothing extra.
	for _, v := range hc.GateVertices() {
		q0, q1, err := hc.GateQubits(v)
		if err != nil {
			return nil, err
		}
		if hc.Degree(q1) > hc.Degree(q0) {
			assignment[v] = assignment[q1]
		} else {
			assignment[v] = assignment[q0]
		}
	}

	d, err := distribution.New(hc, placement.New(assignment), net)
	if err != nil {
		return nil, err
	}
	logger.Debug("Routing allocation complete.")
	return d, nil
}

// bfsServerOrder visits servers breadth-first from the smallest id,
// restarting at the next unvisited id for disconnected components.
func bfsServerOrder(net *qnet.ServerNetwork) []int {
	visited := make(map[int]bool)
	var order []int
	for _, root := range net.Servers() {
		if visited[root] {
			continue
		}
		queue := []int{root}
		visited[root] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			order = append(order, cur)
			for _, next := range net.Neighbours(cur) {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
	}
	return order
}
