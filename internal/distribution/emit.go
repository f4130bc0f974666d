package distribution

import (
	"errors"
	"fmt"
	"slices"

	"github.com/vk/qcdist/internal/circuit"
	"github.com/vk/qcdist/internal/hypergraph"
	"github.com/vk/qcdist/internal/qnet"
)

// Kind discriminates emitted command variants.
type Kind int

const (
	// KindGate is an original circuit gate, possibly acting on link
	// qubits.
	KindGate Kind = iota
	// KindStart opens a link qubit: it shares qubit Qubit from server
	// From onto server To.
	KindStart
	// KindEnd closes the link qubit of Qubit on server To.
	KindEnd
)

// QubitRef names a qubit as seen by one server: either the qubit's home
// workspace slot or a link copy held remotely.
type QubitRef struct {
	Server int  `json:"server"`
	Qubit  int  `json:"qubit"`
	Link   bool `json:"link,omitempty"`
}

// EmittedCommand is one operation of the lowered circuit.
type EmittedCommand struct {
	Kind   Kind       `json:"kind"`
	Op     circuit.Op `json:"op,omitempty"`
	Phase  float64    `json:"phase,omitempty"`
	Qubits []QubitRef `json:"qubits,omitempty"`
	Qubit  int        `json:"qubit,omitempty"`
	From   int        `json:"from,omitempty"`
	To     int        `json:"to,omitempty"`
}

// EmittedCircuit is the executable form of a distribution: the original
// gates interleaved with explicit entanglement start and end processes, plus
// the home server of every qubit.
type EmittedCircuit struct {
	QubitHomes map[int]int      `json:"qubit_homes"`
	Commands   []EmittedCommand `json:"commands"`
}

// openEdge is the per-hyperedge state alive between its first and last gate.
type openEdge struct {
	edge    *hypergraph.Hyperedge
	qubit   int
	ordered []qnet.Link // tree edges oriented away from the home server
}

// ToCircuit lowers the distribution. For every hyperedge spanning multiple
// servers, link qubits are opened along the hyperedge's Steiner tree before
// its first gate and closed after its last one, so the start-process count
// of the emitted circuit equals Cost(). If a server's ebit memory bound is
// hit the emission fails with ConstraintError; with allowUpdate the emitter
// instead splits the longest hyperedge alive at the failure point and
// retries, trading one extra ebit for a shorter link lifetime.
func (d *Distribution) ToCircuit(allowUpdate bool) (*EmittedCircuit, error) {
	if !d.IsValid() {
		return nil, fmt.Errorf("refusing to emit: %w", d.place.Validate(d.circ, d.net))
	}
	for {
		ec, err := d.emit()
		if err == nil {
			return ec, nil
		}
		var ce *ConstraintError
		if !allowUpdate || !errors.As(err, &ce) {
			return nil, err
		}
		if splitErr := d.splitLongestOpenEdge(ce.GateVertex); splitErr != nil {
			return nil, fmt.Errorf("%w (and no hyperedge left to split)", err)
		}
	}
}

// QubitMapping returns the home server of every qubit.
func (d *Distribution) QubitMapping() map[int]int {
	out := make(map[int]int, d.circ.NQubits())
	for _, q := range d.circ.QubitVertices() {
		out[q] = d.place.ServerOf(q)
	}
	return out
}

func (d *Distribution) emit() (*EmittedCircuit, error) {
	cmds := d.circ.Circuit().Commands
	openAt := make(map[int][]*openEdge)
	closeAt := make(map[int][]*openEdge)

	for _, e := range d.circ.Hyperedges() {
		first, last, ok := d.circ.CommandSpan(e)
		if !ok {
			continue
		}
		servers := d.HyperedgeServers(e)
		if len(servers) <= 1 {
			continue
		}
		q, err := d.circ.HyperedgeQubit(e)
		if err != nil {
			return nil, err
		}
		tree, err := d.net.SteinerTree(servers)
		if err != nil {
			return nil, err
		}
		oe := &openEdge{
			edge:    e,
			qubit:   q,
			ordered: orientTree(tree, d.place.ServerOf(q)),
		}
		openAt[first] = append(openAt[first], oe)
		closeAt[last] = append(closeAt[last], oe)
	}

	lm := newLinkManager(d.net)
	out := &EmittedCircuit{QubitHomes: d.QubitMapping()}

	for i, cmd := range cmds {
		for _, oe := range openAt[i] {
			firstGate := d.firstGateVertex(oe.edge)
			for _, l := range oe.ordered {
				if err := lm.acquire(l.B, firstGate); err != nil {
					return nil, err
				}
				out.Commands = append(out.Commands, EmittedCommand{
					Kind: KindStart, Qubit: oe.qubit, From: l.A, To: l.B,
				})
			}
		}

		switch cmd.Op {
		case circuit.OpH, circuit.OpRz:
			q := cmd.Qubits[0]
			out.Commands = append(out.Commands, EmittedCommand{
				Kind: KindGate, Op: cmd.Op, Phase: cmd.Phase,
				Qubits: []QubitRef{{Server: d.place.ServerOf(q), Qubit: q}},
			})
		case circuit.OpCRz:
			v, ok := d.circ.GateVertexAt(i)
			if !ok {
				return nil, fmt.Errorf("no gate vertex for command %d", i)
			}
			sv := d.place.ServerOf(v)
			refs := make([]QubitRef, 0, 2)
			for _, q := range cmd.Qubits {
				refs = append(refs, QubitRef{
					Server: sv, Qubit: q, Link: d.place.ServerOf(q) != sv,
				})
			}
			out.Commands = append(out.Commands, EmittedCommand{
				Kind: KindGate, Op: cmd.Op, Phase: cmd.Phase, Qubits: refs,
			})
		}

		closing := closeAt[i]
		for j := len(closing) - 1; j >= 0; j-- {
			oe := closing[j]
			for k := len(oe.ordered) - 1; k >= 0; k-- {
				l := oe.ordered[k]
				out.Commands = append(out.Commands, EmittedCommand{
					Kind: KindEnd, Qubit: oe.qubit, From: l.A, To: l.B,
				})
				lm.release(l.B)
			}
		}
	}
	return out, nil
}

// firstGateVertex returns the gate vertex of e with the smallest command
// index.
func (d *Distribution) firstGateVertex(e *hypergraph.Hyperedge) int {
	best, bestIdx := -1, -1
	for _, v := range d.circ.GateVerticesOf(e) {
		i, err := d.circ.CommandIndex(v)
		if err != nil {
			continue
		}
		if bestIdx == -1 || i < bestIdx {
			best, bestIdx = v, i
		}
	}
	return best
}

// splitLongestOpenEdge splits the hyperedge with the most gate vertices
// among those alive at the command of gate vertex v, halving its gate run.
// It fails when every candidate is already minimal.
func (d *Distribution) splitLongestOpenEdge(v int) error {
	cmdIdx, err := d.circ.CommandIndex(v)
	if err != nil {
		return err
	}
	var target *hypergraph.Hyperedge
	targetGates := 0
	for _, e := range d.circ.Hyperedges() {
		first, last, ok := d.circ.CommandSpan(e)
		if !ok || first > cmdIdx || last < cmdIdx {
			continue
		}
		if len(d.HyperedgeServers(e)) <= 1 {
			continue
		}
		gates := len(d.circ.GateVerticesOf(e))
		if gates >= 2 && gates > targetGates {
			target, targetGates = e, gates
		}
	}
	if target == nil {
		return fmt.Errorf("no splittable hyperedge at command %d", cmdIdx)
	}

	q, err := d.circ.HyperedgeQubit(target)
	if err != nil {
		return err
	}
	gates := d.circ.GateVerticesOf(target)
	slices.SortFunc(gates, func(a, b int) int {
		ia, _ := d.circ.CommandIndex(a)
		ib, _ := d.circ.CommandIndex(b)
		return ia - ib
	})
	mid := len(gates) / 2
	left := append([]int{q}, gates[:mid]...)
	right := append([]int{q}, gates[mid:]...)
	_, err = d.circ.SplitHyperedge(target, [][]int{left, right})
	return err
}

// orientTree orders the tree's edges away from the root: a breadth-first
// traversal with sorted neighbours, so parents are always opened before
// their children and the order is deterministic.
func orientTree(tree []qnet.Link, root int) []qnet.Link {
	adj := make(map[int][]int)
	for _, l := range tree {
		adj[l.A] = append(adj[l.A], l.B)
		adj[l.B] = append(adj[l.B], l.A)
	}
	for s := range adj {
		slices.Sort(adj[s])
	}
	visited := map[int]bool{root: true}
	queue := []int{root}
	var out []qnet.Link
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adj[cur] {
			if !visited[next] {
				visited[next] = true
				out = append(out, qnet.Link{A: cur, B: next})
				queue = append(queue, next)
			}
		}
	}
	return out
}
