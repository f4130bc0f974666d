package refiner

import (
	"context"

	"github.com/vk/qcdist/internal/ctxlog"
	"github.com/vk/qcdist/internal/distribution"
)

// DefaultStopFraction ends a boundary sweep once fewer than this fraction
// of the boundary moved in a round.
const DefaultStopFraction = 0.05

// BoundaryReallocation sweeps the vertices on a server boundary and applies
// the best strictly improving move for each, swapping two qubits when the
// better server is full. Rounds repeat until movement dies down or the
// round budget runs out.
type BoundaryReallocation struct {
	NumRounds    int
	StopFraction float64
	// GatesOnly restricts moves to gate vertices, leaving every qubit
	// where the allocator put it.
	GatesOnly bool
}

// NewBoundaryReallocation returns the refiner with the given round budget.
func NewBoundaryReallocation(numRounds int) *BoundaryReallocation {
	return &BoundaryReallocation{NumRounds: numRounds, StopFraction: DefaultStopFraction}
}

// NewDetachedGates returns boundary reallocation restricted to gate
// vertices: it re-picks the host server of each boundary gate, detaching
// the gate from its qubits whenever that lowers the Steiner cost.
func NewDetachedGates(numRounds int) *BoundaryReallocation {
	return &BoundaryReallocation{NumRounds: numRounds, StopFraction: DefaultStopFraction, GatesOnly: true}
}

// Refine implements the Refiner interface.
func (r *BoundaryReallocation) Refine(ctx context.Context, d *distribution.Distribution) (bool, error) {
	logger := ctxlog.FromContext(ctx)
	g, err := distribution.NewGainManager(d)
	if err != nil {
		return false, err
	}

	changed := false
	for round := 0; round < r.NumRounds; round++ {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		boundary := d.Circuit().Boundary(d.Placement().Mapping())
		if r.GatesOnly {
			gates := boundary[:0:0]
			for _, v := range boundary {
				if !d.Circuit().IsQubitVertex(v) {
					gates = append(gates, v)
				}
			}
			boundary = gates
		}
		if len(boundary) == 0 {
			break
		}

		moved := 0
		for _, v := range boundary {
			ok, err := r.improveVertex(g, d, v)
			if err != nil {
				return changed, err
			}
			if ok {
				moved++
				changed = true
			}
		}
		logger.Debug("Boundary round finished.", "round", round, "boundary", len(boundary), "moved", moved)
		if float64(moved) < r.StopFraction*float64(len(boundary)) {
			break
		}
	}
	return changed, nil
}

// improveVertex applies the best strictly positive move of v to a
// neighbouring server, or the best positive swap when the chosen server has
// no room.
func (r *BoundaryReallocation) improveVertex(g *distribution.GainManager, d *distribution.Distribution, v int) (bool, error) {
	cur := d.Placement().ServerOf(v)
	bestServer, bestGain := -1, 0
	for _, s := range r.candidateServers(d, v) {
		if s == cur {
			continue
		}
		gain, err := g.MoveGain(v, s)
		if err != nil {
			continue // unreachable on a disconnected network
		}
		if gain > bestGain || (gain == bestGain && gain > 0 && (bestServer == -1 || s < bestServer)) {
			bestServer, bestGain = s, gain
		}
	}
	if bestServer == -1 || bestGain <= 0 {
		return false, nil
	}

	if g.IsMoveValid(v, bestServer) {
		return true, g.Move(v, bestServer)
	}

	// Full target: look for a qubit there whose exchange with v still
	// pays off overall.
	if !d.Circuit().IsQubitVertex(v) {
		return false, nil
	}
	bestPartner, bestSwap := -1, 0
	for _, q := range d.Circuit().QubitVertices() {
		if q == v || d.Placement().ServerOf(q) != bestServer {
			continue
		}
		gain, err := g.SwapGain(v, q)
		if err != nil {
			continue
		}
		if gain > bestSwap {
			bestPartner, bestSwap = q, gain
		}
	}
	if bestPartner == -1 {
		return false, nil
	}
	return true, g.Swap(v, bestPartner)
}

// candidateServers returns the servers worth considering for v: where its
// hyperedge neighbours live, plus their network neighbours.
func (r *BoundaryReallocation) candidateServers(d *distribution.Distribution, v int) []int {
	seen := make(map[int]bool)
	var out []int
	add := func(s int) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, u := range d.Circuit().Neighbours(v) {
		s := d.Placement().ServerOf(u)
		add(s)
		for _, t := range d.Network().Neighbours(s) {
			add(t)
		}
	}
	return out
}
