package allocator

import (
	"context"
	"math"
	"math/rand"

	"github.com/vk/qcdist/internal/circuit"
	"github.com/vk/qcdist/internal/ctxlog"
	"github.com/vk/qcdist/internal/distribution"
	"github.com/vk/qcdist/internal/qnet"
)

// Annealing searches the placement space by simulated annealing. Candidate
// moves reassign one vertex to a random other server, falling back to a
// qubit swap when the target is full. Acceptance follows the Metropolis
// criterion on the cost delta with temperature decaying as T0/(i+1). The
// result is the cheapest placement observed over the run, not the final
// iterate.
type Annealing struct {
	Iterations         int
	InitialTemperature float64
	seed               int64
}

// NewAnnealing returns an annealing allocator with the given seed and
// iteration budget.
func NewAnnealing(seed int64, iterations int) *Annealing {
	return &Annealing{
		Iterations:         iterations,
		InitialTemperature: 3.0,
		seed:               seed,
	}
}

// Allocate implements the Allocator interface.
func (a *Annealing) Allocate(ctx context.Context, hc *circuit.HypergraphCircuit, net *qnet.ServerNetwork) (*distribution.Distribution, error) {
	logger := ctxlog.FromContext(ctx)
	rng := rand.New(rand.NewSource(a.seed))

	initial := &Random{seed: a.seed}
	d, err := initial.Allocate(ctx, hc, net)
	if err != nil {
		return nil, err
	}
	g, err := distribution.NewGainManager(d)
	if err != nil {
		return nil, err
	}

	vertices := hc.Vertices()
	servers := net.Servers()
	best := d.Placement().Clone()
	bestCost := g.Cost()

	for i := 0; i < a.Iterations; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		v := vertices[rng.Intn(len(vertices))]
		s := servers[rng.Intn(len(servers))]
		cur := d.Placement().ServerOf(v)
		if s == cur {
			continue
		}

		temperature := a.InitialTemperature / float64(i+1)
		if g.IsMoveValid(v, s) {
			gain, err := g.MoveGain(v, s)
			if err != nil {
				continue // unreachable candidate on a disconnected network
			}
			if !accept(rng, gain, temperature) {
				continue
			}
			if err := g.Move(v, s); err != nil {
				return nil, err
			}
		} else {
			// Target full: swap with a random qubit already there.
			partner, ok := randomQubitOn(rng, hc, d, s)
			if !ok || partner == v {
				continue
			}
			gain, err := g.SwapGain(v, partner)
			if err != nil {
				continue
			}
			if !accept(rng, gain, temperature) {
				continue
			}
			if err := g.Swap(v, partner); err != nil {
				continue
			}
		}

		if g.Cost() < bestCost {
			bestCost = g.Cost()
			best = d.Placement().Clone()
		}
	}

	logger.Debug("Annealing finished.", "iterations", a.Iterations, "cost", bestCost)
	return distribution.New(hc, best, net)
}

// accept implements the Metropolis criterion. gain is positive for
// improvements, so improvements are always taken.
func accept(rng *rand.Rand, gain int, temperature float64) bool {
	if gain >= 0 {
		return true
	}
	if temperature <= 0 {
		return false
	}
	return rng.Float64() < math.Exp(float64(gain)/temperature)
}

// randomQubitOn picks a uniformly random qubit vertex placed on server s.
func randomQubitOn(rng *rand.Rand, hc *circuit.HypergraphCircuit, d *distribution.Distribution, s int) (int, bool) {
	var candidates []int
	for _, q := range hc.QubitVertices() {
		if d.Placement().ServerOf(q) == s {
			candidates = append(candidates, q)
		}
	}
	if len(candidates) == 0 {
		return 0, false
	}
	return candidates[rng.Intn(len(candidates))], true
}
