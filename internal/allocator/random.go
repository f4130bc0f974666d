package allocator

import (
	"context"
	"math/rand"

	"github.com/vk/qcdist/internal/circuit"
	"github.com/vk/qcdist/internal/ctxlog"
	"github.com/vk/qcdist/internal/distribution"
	"github.com/vk/qcdist/internal/placement"
	"github.com/vk/qcdist/internal/qnet"
)

// Random assigns every vertex to a uniformly random feasible server. Qubit
// vertices respect capacity; gate vertices go anywhere. The allocator owns
// its random source, so the same seed always reproduces the same placement.
type Random struct {
	seed int64
}

// NewRandom returns a random allocator with the given seed.
func NewRandom(seed int64) *Random {
	return &Random{seed: seed}
}

// Allocate implements the Allocator interface.
func (a *Random) Allocate(ctx context.Context, hc *circuit.HypergraphCircuit, net *qnet.ServerNetwork) (*distribution.Distribution, error) {
	logger := ctxlog.FromContext(ctx)
	if err := checkFeasible(hc, net); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(a.seed))

	assignment := make(map[int]int, len(hc.Vertices()))
	remaining := make(map[int]int)
	var open []int // servers with spare capacity, sorted
	for _, s := range net.Servers() {
		remaining[s] = net.QubitCapacity(s)
		if remaining[s] > 0 {
			open = append(open, s)
		}
	}

	for _, q := range hc.QubitVertices() {
		i := rng.Intn(len(open))
		s := open[i]
		assignment[q] = s
		remaining[s]--
		if remaining[s] == 0 {
			open = append(open[:i], open[i+1:]...)
		}
	}
	servers := net.Servers()
	for _, v := range hc.GateVertices() {
		assignment[v] = servers[rng.Intn(len(servers))]
	}

	d, err := distribution.New(hc, placement.New(assignment), net)
	if err != nil {
		return nil, err
	}
	logger.Debug("Random allocation complete.", "seed", a.seed)
	return d, nil
}
