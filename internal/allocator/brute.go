package allocator

import (
	"context"
	"fmt"

	"github.com/vk/qcdist/internal/circuit"
	"github.com/vk/qcdist/internal/ctxlog"
	"github.com/vk/qcdist/internal/distribution"
	"github.com/vk/qcdist/internal/placement"
	"github.com/vk/qcdist/internal/qnet"
)

// DefaultBruteStateLimit caps the assignments Brute will enumerate.
const DefaultBruteStateLimit = 1 << 22

// Brute exhaustively enumerates every feasible placement and returns the
// cheapest one. Intended for small instances and as a correctness oracle;
// it aborts when the search space exceeds its state limit.
type Brute struct {
	// StateLimit overrides DefaultBruteStateLimit when positive.
	StateLimit int
}

// NewBrute returns the exhaustive allocator.
func NewBrute() *Brute {
	return &Brute{}
}

// Allocate implements the Allocator interface.
func (a *Brute) Allocate(ctx context.Context, hc *circuit.HypergraphCircuit, net *qnet.ServerNetwork) (*distribution.Distribution, error) {
	logger := ctxlog.FromContext(ctx)
	if err := checkFeasible(hc, net); err != nil {
		return nil, err
	}

	limit := a.StateLimit
	if limit <= 0 {
		limit = DefaultBruteStateLimit
	}
	vertices := hc.Vertices()
	servers := net.Servers()
	states := 1
	for range vertices {
		states *= len(servers)
		if states > limit {
			return nil, fmt.Errorf("search space %d^%d exceeds limit %d", len(servers), len(vertices), limit)
		}
	}
	logger.Debug("Brute force search started.", "states", states)

	remaining := make(map[int]int)
	for _, s := range servers {
		remaining[s] = net.QubitCapacity(s)
	}
	assignment := make(map[int]int, len(vertices))

	var best *placement.Placement
	bestCost := -1
	visited := 0

	var walk func(i int) error
	walk = func(i int) error {
		visited++
		if visited%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if i == len(vertices) {
			p := placement.New(assignment)
			d, err := distribution.New(hc, p, net)
			if err != nil {
				return nil // infeasible leaf, keep searching
			}
			cost, err := d.Cost()
			if err != nil {
				return nil // unreachable hyperedge, keep searching
			}
			if bestCost == -1 || cost < bestCost {
				bestCost = cost
				best = p
			}
			return nil
		}
		v := vertices[i]
		isQubit := hc.IsQubitVertex(v)
		for _, s := range servers {
			if isQubit {
				if remaining[s] == 0 {
					continue
				}
				remaining[s]--
			}
			assignment[v] = s
			if err := walk(i + 1); err != nil {
				return err
			}
			delete(assignment, v)
			if isQubit {
				remaining[s]++
			}
		}
		return nil
	}
	if err := walk(0); err != nil {
		return nil, err
	}
	if best == nil {
		return nil, fmt.Errorf("no feasible placement found: %w", qnet.ErrInfeasibleNetwork)
	}
	logger.Debug("Brute force search finished.", "cost", bestCost)
	return distribution.New(hc, best, net)
}
