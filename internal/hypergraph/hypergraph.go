package hypergraph

import (
	"errors"
	"fmt"
	"slices"
)

// ErrDuplicateVertex is returned when a vertex id is registered twice.
var ErrDuplicateVertex = errors.New("duplicate vertex")

// ErrInvalidHyperedge is returned when a hyperedge is empty, references an
// unregistered vertex, or a restructuring operation would corrupt the
// incidence structure.
var ErrInvalidHyperedge = errors.New("invalid hyperedge")

// ErrOrphanedVertex is returned when removing a hyperedge would leave a
// vertex with no incident hyperedges.
var ErrOrphanedVertex = errors.New("orphaned vertex")

// Hyperedge is a group of vertices sharing a dependency. The vertex order is
// meaningful to callers and preserved by every operation.
type Hyperedge struct {
	Vertices []int
	Weight   int
}

// Contains reports whether v is a member of the hyperedge.
func (e *Hyperedge) Contains(v int) bool {
	return slices.Contains(e.Vertices, v)
}

// Hypergraph holds vertices and hyperedges plus the incidence indexes the
// engine queries constantly: vertex to incident hyperedges, and vertex to
// neighbouring vertices.
type Hypergraph struct {
	vertices   []int
	vertexSet  map[int]struct{}
	hyperedges []*Hyperedge
	incident   map[int][]*Hyperedge
}

// New returns an empty hypergraph.
func New() *Hypergraph {
	return &Hypergraph{
		vertexSet: make(map[int]struct{}),
		incident:  make(map[int][]*Hyperedge),
	}
}

// AddVertex registers a new vertex id.
func (h *Hypergraph) AddVertex(v int) error {
	if _, ok := h.vertexSet[v]; ok {
		return fmt.Errorf("vertex %d: %w", v, ErrDuplicateVertex)
	}
	h.vertexSet[v] = struct{}{}
	h.vertices = append(h.vertices, v)
	return nil
}

// AddVertices registers every id in vs. It fails on the first duplicate,
// leaving earlier ids registered.
func (h *Hypergraph) AddVertices(vs []int) error {
	for _, v := range vs {
		if err := h.AddVertex(v); err != nil {
			return err
		}
	}
	return nil
}

// HasVertex reports whether v is registered.
func (h *Hypergraph) HasVertex(v int) bool {
	_, ok := h.vertexSet[v]
	return ok
}

// Vertices returns the registered vertex ids in registration order. The
// returned slice must not be mutated.
func (h *Hypergraph) Vertices() []int {
	return h.vertices
}

// Hyperedges returns the current hyperedge list. The returned slice must not
// be mutated; the hyperedges themselves belong to the hypergraph.
func (h *Hypergraph) Hyperedges() []*Hyperedge {
	return h.hyperedges
}

// AddHyperedge registers a hyperedge over the given vertices with weight 1.
func (h *Hypergraph) AddHyperedge(vertices []int) (*Hyperedge, error) {
	return h.AddWeightedHyperedge(vertices, 1)
}

// AddWeightedHyperedge registers a hyperedge over the given vertices. Every
// vertex must already be registered and the vertex list must be non-empty.
func (h *Hypergraph) AddWeightedHyperedge(vertices []int, weight int) (*Hyperedge, error) {
	if len(vertices) == 0 {
		return nil, fmt.Errorf("empty vertex list: %w", ErrInvalidHyperedge)
	}
	for _, v := range vertices {
		if !h.HasVertex(v) {
			return nil, fmt.Errorf("vertex %d not registered: %w", v, ErrInvalidHyperedge)
		}
	}
	e := &Hyperedge{Vertices: slices.Clone(vertices), Weight: weight}
	h.hyperedges = append(h.hyperedges, e)
	for _, v := range e.Vertices {
		h.incident[v] = append(h.incident[v], e)
	}
	return e, nil
}

// WeightOne reports whether every hyperedge carries weight 1. Partitioners
// and cover rebuilds assume unweighted input and use this as a precondition.
func (h *Hypergraph) WeightOne() bool {
	for _, e := range h.hyperedges {
		if e.Weight != 1 {
			return false
		}
	}
	return true
}

// IncidentHyperedges returns the hyperedges containing v, in insertion order.
func (h *Hypergraph) IncidentHyperedges(v int) []*Hyperedge {
	return h.incident[v]
}

// Degree returns the number of hyperedges containing v.
func (h *Hypergraph) Degree(v int) int {
	return len(h.incident[v])
}

// Neighbours returns the sorted set of vertices sharing a hyperedge with v,
// excluding v itself.
func (h *Hypergraph) Neighbours(v int) []int {
	seen := make(map[int]struct{})
	for _, e := range h.incident[v] {
		for _, u := range e.Vertices {
			if u != v {
				seen[u] = struct{}{}
			}
		}
	}
	out := make([]int, 0, len(seen))
	for u := range seen {
		out = append(out, u)
	}
	slices.Sort(out)
	return out
}

// MergeHyperedges replaces the given hyperedges with a single hyperedge over
// the union of their vertices, preserving first-appearance order. All inputs
// must share the same weight. On failure the hypergraph is unchanged.
func (h *Hypergraph) MergeHyperedges(es []*Hyperedge) (*Hyperedge, error) {
	if len(es) < 2 {
		return nil, fmt.Errorf("merge needs at least two hyperedges: %w", ErrInvalidHyperedge)
	}
	weight := es[0].Weight
	for _, e := range es {
		if e.Weight != weight {
			return nil, fmt.Errorf("merge across weights %d and %d: %w", weight, e.Weight, ErrInvalidHyperedge)
		}
		if !slices.Contains(h.hyperedges, e) {
			return nil, fmt.Errorf("hyperedge not in hypergraph: %w", ErrInvalidHyperedge)
		}
	}
	seen := make(map[int]struct{})
	var merged []int
	for _, e := range es {
		for _, v := range e.Vertices {
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				merged = append(merged, v)
			}
		}
	}
	for _, e := range es {
		h.detach(e)
	}
	out, err := h.AddWeightedHyperedge(merged, weight)
	if err != nil {
		// Roll back: reattach the originals.
		for _, e := range es {
			h.hyperedges = append(h.hyperedges, e)
			for _, v := range e.Vertices {
				h.incident[v] = append(h.incident[v], e)
			}
		}
		return nil, err
	}
	return out, nil
}

// SplitHyperedge replaces e with one hyperedge per part. Every part must be
// a non-empty subset of e's vertices and together the parts must cover all
// of them; parts may overlap, which is how a shared vertex stays incident to
// both halves. On failure the hypergraph is unchanged.
func (h *Hypergraph) SplitHyperedge(e *Hyperedge, parts [][]int) ([]*Hyperedge, error) {
	if !slices.Contains(h.hyperedges, e) {
		return nil, fmt.Errorf("hyperedge not in hypergraph: %w", ErrInvalidHyperedge)
	}
	if len(parts) < 2 {
		return nil, fmt.Errorf("split needs at least two parts: %w", ErrInvalidHyperedge)
	}
	covered := make(map[int]bool)
	for _, part := range parts {
		if len(part) == 0 {
			return nil, fmt.Errorf("empty split part: %w", ErrInvalidHyperedge)
		}
		for _, v := range part {
			if !e.Contains(v) {
				return nil, fmt.Errorf("vertex %d not in split hyperedge: %w", v, ErrInvalidHyperedge)
			}
			covered[v] = true
		}
	}
	for _, v := range e.Vertices {
		if !covered[v] {
			return nil, fmt.Errorf("vertex %d not covered by any part: %w", v, ErrInvalidHyperedge)
		}
	}
	h.detach(e)
	out := make([]*Hyperedge, 0, len(parts))
	for _, part := range parts {
		ne, err := h.AddWeightedHyperedge(part, e.Weight)
		if err != nil {
			// Cannot happen: every part vertex came from a registered edge.
			panic(fmt.Sprintf("hypergraph: split reinsert failed: %v", err))
		}
		out = append(out, ne)
	}
	return out, nil
}

// RemoveHyperedge deletes e. It fails with ErrOrphanedVertex if deletion
// would leave any of e's vertices with no incident hyperedge; use
// DetachHyperedge when rebuilding the structure wholesale.
func (h *Hypergraph) RemoveHyperedge(e *Hyperedge) error {
	if !slices.Contains(h.hyperedges, e) {
		return fmt.Errorf("hyperedge not in hypergraph: %w", ErrInvalidHyperedge)
	}
	for _, v := range e.Vertices {
		if len(h.incident[v]) == 1 {
			return fmt.Errorf("removing hyperedge strands vertex %d: %w", v, ErrOrphanedVertex)
		}
	}
	h.detach(e)
	return nil
}

// DetachHyperedge deletes e without the orphan check.
func (h *Hypergraph) DetachHyperedge(e *Hyperedge) error {
	if !slices.Contains(h.hyperedges, e) {
		return fmt.Errorf("hyperedge not in hypergraph: %w", ErrInvalidHyperedge)
	}
	h.detach(e)
	return nil
}

func (h *Hypergraph) detach(e *Hyperedge) {
	if i := slices.Index(h.hyperedges, e); i >= 0 {
		h.hyperedges = slices.Delete(h.hyperedges, i, i+1)
	}
	for _, v := range e.Vertices {
		if i := slices.Index(h.incident[v], e); i >= 0 {
			h.incident[v] = slices.Delete(h.incident[v], i, i+1)
		}
	}
}

// IsPlacement reports whether the mapping covers exactly the registered
// vertices: every vertex mapped, and nothing else.
func (h *Hypergraph) IsPlacement(vertexToServer map[int]int) bool {
	if len(vertexToServer) != len(h.vertices) {
		return false
	}
	for _, v := range h.vertices {
		if _, ok := vertexToServer[v]; !ok {
			return false
		}
	}
	return true
}

// Boundary returns the sorted vertices that share a hyperedge with a vertex
// placed on a different server. These are the move candidates local search
// cares about.
func (h *Hypergraph) Boundary(vertexToServer map[int]int) []int {
	out := make([]int, 0)
	for _, v := range h.vertices {
		sv := vertexToServer[v]
		for _, u := range h.Neighbours(v) {
			if vertexToServer[u] != sv {
				out = append(out, v)
				break
			}
		}
	}
	slices.Sort(out)
	return out
}

// CSR returns the hyperedge structure in the compressed sparse row layout
// external min-cut solvers consume: indices[i] and indices[i+1] delimit the
// i-th hyperedge's members within the flat vertex array.
func (h *Hypergraph) CSR() (indices []int, flat []int) {
	indices = make([]int, 0, len(h.hyperedges)+1)
	indices = append(indices, 0)
	for _, e := range h.hyperedges {
		flat = append(flat, e.Vertices...)
		indices = append(indices, len(flat))
	}
	return indices, flat
}
