package distribution

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/vk/qcdist/internal/hypergraph"
)

// DefaultMaxCacheKeySize bounds the server sets whose Steiner cost is
// memoised. Larger sets are rare and recomputed on demand.
const DefaultMaxCacheKeySize = 5

// GainManager tracks the cost of a distribution incrementally so local
// search can evaluate and apply single-vertex moves and swaps without
// recomputing the full cost each time. It also tracks per-server qubit
// occupancy for capacity checks.
type GainManager struct {
	dist       *Distribution
	maxKeySize int
	occupancy  map[int]int
	cache      map[string]int
	cost       int
}

// NewGainManager computes the initial cost and occupancy of d. It fails if
// any hyperedge spans servers the network cannot connect.
func NewGainManager(d *Distribution) (*GainManager, error) {
	g := &GainManager{
		dist:       d,
		maxKeySize: DefaultMaxCacheKeySize,
		occupancy:  make(map[int]int),
		cache:      make(map[string]int),
	}
	for _, q := range d.circ.QubitVertices() {
		g.occupancy[d.place.ServerOf(q)]++
	}
	total := 0
	for _, e := range d.circ.Hyperedges() {
		c, err := g.hyperedgeCost(e, nil)
		if err != nil {
			return nil, err
		}
		total += c
	}
	g.cost = total
	return g, nil
}

// Distribution returns the managed distribution.
func (g *GainManager) Distribution() *Distribution {
	return g.dist
}

// Cost returns the tracked total cost.
func (g *GainManager) Cost() int {
	return g.cost
}

// Occupancy returns the number of qubit vertices on server s.
func (g *GainManager) Occupancy(s int) int {
	return g.occupancy[s]
}

func cacheKey(servers []int) string {
	var b strings.Builder
	for i, s := range servers {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(s))
	}
	return b.String()
}

// steinerCost returns the memoised Steiner cost of a sorted server set.
func (g *GainManager) steinerCost(servers []int) (int, error) {
	if len(servers) <= 1 {
		return 0, nil
	}
	useCache := len(servers) <= g.maxKeySize
	var key string
	if useCache {
		key = cacheKey(servers)
		if c, ok := g.cache[key]; ok {
			return c, nil
		}
	}
	c, err := g.dist.net.SteinerCost(servers)
	if err != nil {
		return 0, err
	}
	if useCache {
		g.cache[key] = c
	}
	return c, nil
}

// hyperedgeCost evaluates e under the current placement with the override
// map applied on top.
func (g *GainManager) hyperedgeCost(e *hypergraph.Hyperedge, override map[int]int) (int, error) {
	servers := make([]int, 0, len(e.Vertices))
	for _, v := range e.Vertices {
		if s, ok := override[v]; ok {
			servers = append(servers, s)
		} else {
			servers = append(servers, g.dist.place.ServerOf(v))
		}
	}
	slices.Sort(servers)
	servers = slices.Compact(servers)
	c, err := g.steinerCost(servers)
	if err != nil {
		return 0, err
	}
	return c * e.Weight, nil
}

// overrideGain returns the cost reduction of applying the override map.
// Positive means improvement.
func (g *GainManager) overrideGain(override map[int]int) (int, error) {
	seen := make(map[*hypergraph.Hyperedge]bool)
	gain := 0
	for v := range override {
		for _, e := range g.dist.circ.IncidentHyperedges(v) {
			if seen[e] {
				continue
			}
			seen[e] = true
			before, err := g.hyperedgeCost(e, nil)
			if err != nil {
				return 0, err
			}
			after, err := g.hyperedgeCost(e, override)
			if err != nil {
				return 0, err
			}
			gain += before - after
		}
	}
	return gain, nil
}

// IsMoveValid reports whether v can move to server s without violating the
// qubit capacity of s. Gate vertices never consume capacity.
func (g *GainManager) IsMoveValid(v, s int) bool {
	if !g.dist.net.HasServer(s) {
		return false
	}
	if !g.dist.circ.IsQubitVertex(v) {
		return true
	}
	if g.dist.place.ServerOf(v) == s {
		return true
	}
	return g.occupancy[s] < g.dist.net.QubitCapacity(s)
}

// MoveGain returns the cost reduction of moving v to server s.
func (g *GainManager) MoveGain(v, s int) (int, error) {
	if g.dist.place.ServerOf(v) == s {
		return 0, nil
	}
	return g.overrideGain(map[int]int{v: s})
}

// Move reassigns v to server s, keeping cost and occupancy consistent.
func (g *GainManager) Move(v, s int) error {
	gain, err := g.MoveGain(v, s)
	if err != nil {
		return err
	}
	old := g.dist.place.ServerOf(v)
	if old == s {
		return nil
	}
	if g.dist.circ.IsQubitVertex(v) {
		g.occupancy[old]--
		g.occupancy[s]++
	}
	g.dist.place.Move(v, s)
	g.cost -= gain
	return nil
}

// SwapGain returns the cost reduction of exchanging the servers of v1
// and v2.
func (g *GainManager) SwapGain(v1, v2 int) (int, error) {
	s1 := g.dist.place.ServerOf(v1)
	s2 := g.dist.place.ServerOf(v2)
	if s1 == s2 {
		return 0, nil
	}
	return g.overrideGain(map[int]int{v1: s2, v2: s1})
}

// Swap exchanges the servers of v1 and v2. Occupancy is unchanged when both
// vertices are qubits, which is the only case a capacity-constrained caller
// needs.
func (g *GainManager) Swap(v1, v2 int) error {
	gain, err := g.SwapGain(v1, v2)
	if err != nil {
		return err
	}
	s1 := g.dist.place.ServerOf(v1)
	s2 := g.dist.place.ServerOf(v2)
	if s1 == s2 {
		return nil
	}
	q1 := g.dist.circ.IsQubitVertex(v1)
	q2 := g.dist.circ.IsQubitVertex(v2)
	if q1 != q2 {
		return fmt.Errorf("swap between qubit and gate vertex %d/%d", v1, v2)
	}
	g.dist.place.Move(v1, s2)
	g.dist.place.Move(v2, s1)
	g.cost -= gain
	return nil
}
