package circuit

import (
	"fmt"
	"slices"

	"github.com/vk/qcdist/internal/hypergraph"
)

// HypergraphCircuit binds a circuit to its hypergraph view. Vertices 0..n-1
// are the qubits; the k-th two-qubit gate becomes vertex n+k. Each hyperedge
// holds exactly one qubit vertex followed by the gate vertices acting on that
// qubit, in circuit order, between two basis-change gates. Every gate vertex
// therefore lands in exactly two hyperedges, one per qubit it touches.
type HypergraphCircuit struct {
	*hypergraph.Hypergraph

	circ           *Circuit
	vertexToCmd    map[int]int // gate vertex -> command index
	cmdToVertex    map[int]int // command index -> gate vertex
	qubitHPrefixes [][]int     // per qubit, count of H commands before index i
}

// NewHypergraphCircuit builds the hypergraph view of circ.
func NewHypergraphCircuit(circ *Circuit) (*HypergraphCircuit, error) {
	hc := &HypergraphCircuit{
		Hypergraph:  hypergraph.New(),
		circ:        circ,
		vertexToCmd: make(map[int]int),
		cmdToVertex: make(map[int]int),
	}

	n := circ.NQubits
	qubitVertices := make([]int, n)
	for q := 0; q < n; q++ {
		qubitVertices[q] = q
	}
	if err := hc.AddVertices(qubitVertices); err != nil {
		return nil, err
	}

	gateIdx := 0
	for i, cmd := range circ.Commands {
		if cmd.Op != OpCRz {
			continue
		}
		v := n + gateIdx
		if err := hc.AddVertex(v); err != nil {
			return nil, err
		}
		hc.vertexToCmd[v] = i
		hc.cmdToVertex[i] = v
		gateIdx++
	}

	// Collect, per qubit, the maximal runs of two-qubit gates uninterrupted
	// by a basis change on that qubit.
	current := make([][]int, n)
	for q := range current {
		current[q] = []int{q}
	}
	flush := func(q int) error {
		if len(current[q]) > 1 {
			if _, err := hc.AddHyperedge(current[q]); err != nil {
				return err
			}
		}
		current[q] = []int{q}
		return nil
	}
	for i, cmd := range circ.Commands {
		switch cmd.Op {
		case OpH:
			if err := flush(cmd.Qubits[0]); err != nil {
				return nil, err
			}
		case OpCRz:
			v := hc.cmdToVertex[i]
			current[cmd.Qubits[0]] = append(current[cmd.Qubits[0]], v)
			current[cmd.Qubits[1]] = append(current[cmd.Qubits[1]], v)
		}
	}
	for q := 0; q < n; q++ {
		if err := flush(q); err != nil {
			return nil, err
		}
	}

	hc.buildHPrefixes()
	return hc, nil
}

func (hc *HypergraphCircuit) buildHPrefixes() {
	n := hc.circ.NQubits
	hc.qubitHPrefixes = make([][]int, n)
	for q := 0; q < n; q++ {
		prefix := make([]int, len(hc.circ.Commands)+1)
		for i, cmd := range hc.circ.Commands {
			prefix[i+1] = prefix[i]
			if cmd.Op == OpH && cmd.Qubits[0] == q {
				prefix[i+1]++
			}
		}
		hc.qubitHPrefixes[q] = prefix
	}
}

// Circuit returns the underlying command list.
func (hc *HypergraphCircuit) Circuit() *Circuit {
	return hc.circ
}

// NQubits returns the width of the underlying circuit.
func (hc *HypergraphCircuit) NQubits() int {
	return hc.circ.NQubits
}

// IsQubitVertex reports whether v identifies a qubit rather than a gate.
func (hc *HypergraphCircuit) IsQubitVertex(v int) bool {
	return v < hc.circ.NQubits
}

// QubitVertices returns the qubit vertex ids in ascending order.
func (hc *HypergraphCircuit) QubitVertices() []int {
	out := make([]int, hc.circ.NQubits)
	for q := range out {
		out[q] = q
	}
	return out
}

// GateVertices returns the gate vertex ids in ascending order.
func (hc *HypergraphCircuit) GateVertices() []int {
	out := make([]int, 0, len(hc.vertexToCmd))
	for v := range hc.vertexToCmd {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// CommandIndex returns the command index of a gate vertex.
func (hc *HypergraphCircuit) CommandIndex(v int) (int, error) {
	i, ok := hc.vertexToCmd[v]
	if !ok {
		return 0, fmt.Errorf("vertex %d is not a gate vertex", v)
	}
	return i, nil
}

// GateVertexAt returns the gate vertex of the command at index i, if any.
func (hc *HypergraphCircuit) GateVertexAt(i int) (int, bool) {
	v, ok := hc.cmdToVertex[i]
	return v, ok
}

// GateQubits returns the two qubits a gate vertex acts on.
func (hc *HypergraphCircuit) GateQubits(v int) (int, int, error) {
	i, err := hc.CommandIndex(v)
	if err != nil {
		return 0, 0, err
	}
	cmd := hc.circ.Commands[i]
	return cmd.Qubits[0], cmd.Qubits[1], nil
}

// HyperedgeQubit returns the unique qubit vertex of a hyperedge.
func (hc *HypergraphCircuit) HyperedgeQubit(e *hypergraph.Hyperedge) (int, error) {
	for _, v := range e.Vertices {
		if hc.IsQubitVertex(v) {
			return v, nil
		}
	}
	return 0, fmt.Errorf("hyperedge has no qubit vertex: %w", hypergraph.ErrInvalidHyperedge)
}

// GateVerticesOf returns the gate vertices of a hyperedge, in stored order.
func (hc *HypergraphCircuit) GateVerticesOf(e *hypergraph.Hyperedge) []int {
	out := make([]int, 0, len(e.Vertices)-1)
	for _, v := range e.Vertices {
		if !hc.IsQubitVertex(v) {
			out = append(out, v)
		}
	}
	return out
}

// CommandSpan returns the first and last command indexes of a hyperedge's
// gate vertices. ok is false for hyperedges with no gates.
func (hc *HypergraphCircuit) CommandSpan(e *hypergraph.Hyperedge) (first, last int, ok bool) {
	first, last = -1, -1
	for _, v := range e.Vertices {
		if hc.IsQubitVertex(v) {
			continue
		}
		i := hc.vertexToCmd[v]
		if first == -1 || i < first {
			first = i
		}
		if i > last {
			last = i
		}
	}
	return first, last, first != -1
}

// HadamardFreeBetween reports whether qubit q sees no basis-change gate in
// the open command interval (i, j).
func (hc *HypergraphCircuit) HadamardFreeBetween(q, i, j int) bool {
	if i > j {
		i, j = j, i
	}
	prefix := hc.qubitHPrefixes[q]
	return prefix[j] == prefix[i+1]
}

// MergeCandidates reports whether two hyperedges share a qubit vertex and
// could be merged without changing circuit semantics: no basis change on the
// shared qubit anywhere between the two command spans.
func (hc *HypergraphCircuit) MergeCandidates(e1, e2 *hypergraph.Hyperedge) bool {
	q1, err := hc.HyperedgeQubit(e1)
	if err != nil {
		return false
	}
	q2, err := hc.HyperedgeQubit(e2)
	if err != nil || q1 != q2 {
		return false
	}
	f1, l1, ok1 := hc.CommandSpan(e1)
	f2, l2, ok2 := hc.CommandSpan(e2)
	if !ok1 || !ok2 {
		return false
	}
	lo := min(f1, f2)
	hi := max(l1, l2)
	return hc.HadamardFreeBetween(q1, lo, hi)
}
