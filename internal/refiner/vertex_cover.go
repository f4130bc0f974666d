package refiner

import (
	"context"
	"fmt"
	"slices"

	"github.com/vk/qcdist/internal/circuit"
	"github.com/vk/qcdist/internal/ctxlog"
	"github.com/vk/qcdist/internal/distribution"
	"github.com/vk/qcdist/internal/hypergraph"
)

// VertexCover rebuilds the hyperedge structure of a distribution on a fully
// connected network. Non-local gates are grouped into packets, one per
// (qubit, remote server) pair within a basis-change-free window; each gate
// must be covered by one of its two packets, and a minimum vertex cover of
// the per-server-pair packet graphs selects the cheapest set. On a fully
// connected network every chosen packet costs exactly one ebit, so the
// cover size is the rebuilt cost.
type VertexCover struct{}

// NewVertexCover returns the cover-based rebuilder.
func NewVertexCover() *VertexCover {
	return &VertexCover{}
}

// packet is a group of non-local gates on one qubit whose other endpoints
// all sit on the same remote server, with no basis change on the qubit in
// between. Realising the packet shares the qubit's state with the remote
// server once for the whole group.
type packet struct {
	id     int
	qubit  int
	home   int // server hosting the qubit
	remote int // server the qubit state must reach
	gates  []int
	chosen bool
}

// Refine implements the Refiner interface.
func (r *VertexCover) Refine(ctx context.Context, d *distribution.Distribution) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !d.Network().FullyConnected() {
		return false, fmt.Errorf("vertex cover refinement needs a fully connected network")
	}
	logger := ctxlog.FromContext(ctx)

	oldCost, err := d.Cost()
	if err != nil {
		return false, err
	}

	packets, gatePackets := r.enumeratePackets(d)
	r.chooseCover(gatePackets)

	snapshot := r.snapshot(d)
	if err := r.rebuild(d, gatePackets); err != nil {
		r.restore(d, snapshot)
		return false, err
	}

	newCost, err := d.Cost()
	if err != nil {
		return false, err
	}
	if newCost > oldCost {
		r.restore(d, snapshot)
		return false, nil
	}
	chosen, covered := 0, 0
	for _, pk := range packets {
		if pk.chosen {
			chosen++
			covered += len(pk.gates)
		}
	}
	logger.Debug("Cover rebuild finished.", "packets", len(packets), "chosen", chosen, "covered_gates", covered, "cost_before", oldCost, "cost_after", newCost)
	return newCost < oldCost, nil
}

// enumeratePackets walks the command list and groups each qubit's non-local
// gates by remote server, starting a fresh packet whenever the qubit passes
// through a basis change. Local gates get no packets.
func (r *VertexCover) enumeratePackets(d *distribution.Distribution) ([]*packet, map[int][]*packet) {
	hc := d.Circuit()
	p := d.Placement()

	// open[q][s] is the packet collecting q's gates toward server s inside
	// the current basis-change-free window of q.
	open := make([]map[int]*packet, hc.NQubits())
	for q := range open {
		open[q] = make(map[int]*packet)
	}
	var packets []*packet
	gatePackets := make(map[int][]*packet)

	appendGate := func(q, remote, g int) {
		pk, ok := open[q][remote]
		if !ok {
			pk = &packet{
				id:     len(packets),
				qubit:  q,
				home:   p.ServerOf(q),
				remote: remote,
			}
			open[q][remote] = pk
			packets = append(packets, pk)
		}
		pk.gates = append(pk.gates, g)
		gatePackets[g] = append(gatePackets[g], pk)
	}

	for i, cmd := range hc.Circuit().Commands {
		switch cmd.Op {
		case circuit.OpH:
			clear(open[cmd.Qubits[0]])
		case circuit.OpCRz:
			g, ok := hc.GateVertexAt(i)
			if !ok {
				continue
			}
			q0, q1 := cmd.Qubits[0], cmd.Qubits[1]
			s0, s1 := p.ServerOf(q0), p.ServerOf(q1)
			if s0 == s1 {
				continue
			}
			appendGate(q0, s1, g)
			appendGate(q1, s0, g)
		}
	}
	return packets, gatePackets
}

// chooseCover runs, for every server pair, a maximum bipartite matching over
// the pair's packets and derives the minimum vertex cover from it. Packets
// in the cover are the ones realised with an ebit.
func (r *VertexCover) chooseCover(gatePackets map[int][]*packet) {
	type pair struct{ lo, hi int }
	byPair := make(map[pair][]int) // gate vertices between the two servers
	for g, ps := range gatePackets {
		lo, hi := ps[0].home, ps[1].home
		if lo > hi {
			lo, hi = hi, lo
		}
		byPair[pair{lo, hi}] = append(byPair[pair{lo, hi}], g)
	}

	var pairs []pair
	for k := range byPair {
		pairs = append(pairs, k)
	}
	slices.SortFunc(pairs, func(a, b pair) int {
		if a.lo != b.lo {
			return a.lo - b.lo
		}
		return a.hi - b.hi
	})

	for _, k := range pairs {
		gates := byPair[k]
		slices.Sort(gates)
		r.coverPair(k.lo, gates, gatePackets)
	}
}

// coverPair covers the gates between one server pair. The packet graph of a
// pair is bipartite, lo-side packets against hi-side packets with an edge
// per gate, so Koenig's construction turns a maximum matching into a
// minimum vertex cover.
func (r *VertexCover) coverPair(loServer int, gates []int, gatePackets map[int][]*packet) {
	// Index the pair's packets into contiguous left/right ids.
	leftID := make(map[*packet]int)
	rightID := make(map[*packet]int)
	var left, right []*packet
	sideOf := func(pk *packet) (int, bool) { // id, isLeft
		if pk.home == loServer {
			id, ok := leftID[pk]
			if !ok {
				id = len(left)
				leftID[pk] = id
				left = append(left, pk)
			}
			return id, true
		}
		id, ok := rightID[pk]
		if !ok {
			id = len(right)
			rightID[pk] = id
			right = append(right, pk)
		}
		return id, false
	}

	adj := make(map[int][]int) // left id -> right ids
	for _, g := range gates {
		ps := gatePackets[g]
		var l, rt int
		for _, pk := range ps {
			id, isLeft := sideOf(pk)
			if isLeft {
				l = id
			} else {
				rt = id
			}
		}
		adj[l] = append(adj[l], rt)
	}
	for l := range adj {
		slices.Sort(adj[l])
		adj[l] = slices.Compact(adj[l])
	}

	matchL, matchR := kuhnMatching(len(left), len(right), adj)

	// Koenig: alternating reachability from unmatched left vertices; the
	// cover is the unreached left plus the reached right.
	visitedL := make([]bool, len(left))
	visitedR := make([]bool, len(right))
	var walk func(l int)
	walk = func(l int) {
		visitedL[l] = true
		for _, rt := range adj[l] {
			if visitedR[rt] {
				continue
			}
			visitedR[rt] = true
			if next := matchR[rt]; next != -1 && !visitedL[next] {
				walk(next)
			}
		}
	}
	for l := range left {
		if matchL[l] == -1 {
			walk(l)
		}
	}
	for l, pk := range left {
		if !visitedL[l] {
			pk.chosen = true
		}
	}
	for rt, pk := range right {
		if visitedR[rt] {
			pk.chosen = true
		}
	}
}

// kuhnMatching computes a maximum bipartite matching by repeated augmenting
// paths. matchL[l] and matchR[r] hold the partner ids, -1 when unmatched.
func kuhnMatching(nLeft, nRight int, adj map[int][]int) (matchL, matchR []int) {
	matchL = make([]int, nLeft)
	matchR = make([]int, nRight)
	for i := range matchL {
		matchL[i] = -1
	}
	for i := range matchR {
		matchR[i] = -1
	}

	var tryAugment func(l int, seen []bool) bool
	tryAugment = func(l int, seen []bool) bool {
		for _, rt := range adj[l] {
			if seen[rt] {
				continue
			}
			seen[rt] = true
			if matchR[rt] == -1 || tryAugment(matchR[rt], seen) {
				matchL[l] = rt
				matchR[rt] = l
				return true
			}
		}
		return false
	}
	for l := 0; l < nLeft; l++ {
		tryAugment(l, make([]bool, nRight))
	}
	return matchL, matchR
}

// chosenPacket returns the covering packet a gate is realised through,
// preferring the first qubit's side when both are in the cover.
func chosenPacket(ps []*packet) *packet {
	for _, pk := range ps {
		if pk.chosen {
			return pk
		}
	}
	return nil
}

type coverSnapshot struct {
	edges      []hypergraph.Hyperedge
	gateServer map[int]int
}

func (r *VertexCover) snapshot(d *distribution.Distribution) coverSnapshot {
	snap := coverSnapshot{gateServer: make(map[int]int)}
	for _, e := range d.Circuit().Hyperedges() {
		snap.edges = append(snap.edges, hypergraph.Hyperedge{
			Vertices: slices.Clone(e.Vertices),
			Weight:   e.Weight,
		})
	}
	for _, g := range d.Circuit().GateVertices() {
		snap.gateServer[g] = d.Placement().ServerOf(g)
	}
	return snap
}

func (r *VertexCover) restore(d *distribution.Distribution, snap coverSnapshot) {
	hc := d.Circuit()
	for _, e := range slices.Clone(hc.Hyperedges()) {
		_ = hc.DetachHyperedge(e)
	}
	for _, e := range snap.edges {
		_, _ = hc.AddWeightedHyperedge(e.Vertices, e.Weight)
	}
	for g, s := range snap.gateServer {
		d.Placement().Move(g, s)
	}
}

// rebuild replaces the hyperedge structure and gate placement with the one
// the cover implies: each gate moves to the server its chosen packet shares
// the state with, and each qubit's gate list is regrouped into runs that
// follow the same packet, or stay home, within a basis-change-free window.
func (r *VertexCover) rebuild(d *distribution.Distribution, gatePackets map[int][]*packet) error {
	hc := d.Circuit()
	p := d.Placement()

	// Place every gate first; the grouping below reads the new servers.
	for _, g := range hc.GateVertices() {
		ps := gatePackets[g]
		if len(ps) == 0 {
			// Local gate: both qubits share a server.
			q0, _, err := hc.GateQubits(g)
			if err != nil {
				return err
			}
			p.Move(g, p.ServerOf(q0))
			continue
		}
		pk := chosenPacket(ps)
		if pk == nil {
			return fmt.Errorf("gate vertex %d not covered by any packet", g)
		}
		p.Move(g, pk.remote)
	}

	for _, e := range slices.Clone(hc.Hyperedges()) {
		if err := hc.DetachHyperedge(e); err != nil {
			return err
		}
	}

	// Regroup per qubit: inside each basis-change-free window, gates whose
	// chosen packet belongs to the qubit share that packet's hyperedge, and
	// the rest form a home hyperedge on the qubit's own server. Interleaving
	// within a window is fine, a hyperedge only requires the window to be
	// free of basis changes on its qubit.
	type groupKey struct {
		qubit    int
		window   int
		packetID int // -1 for the home group
	}
	window := make([]int, hc.NQubits())
	groups := make(map[groupKey][]int)
	var order []groupKey

	for i, cmd := range hc.Circuit().Commands {
		switch cmd.Op {
		case circuit.OpH:
			window[cmd.Qubits[0]]++
		case circuit.OpCRz:
			g, ok := hc.GateVertexAt(i)
			if !ok {
				continue
			}
			pk := chosenPacket(gatePackets[g])
			for _, q := range cmd.Qubits {
				key := groupKey{qubit: q, window: window[q], packetID: -1}
				if pk != nil && pk.qubit == q {
					key.packetID = pk.id
				}
				if _, seen := groups[key]; !seen {
					groups[key] = []int{q}
					order = append(order, key)
				}
				groups[key] = append(groups[key], g)
			}
		}
	}
	for _, key := range order {
		if _, err := hc.AddHyperedge(groups[key]); err != nil {
			return err
		}
	}
	return nil
}
