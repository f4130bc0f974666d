package hypergraph

import "encoding/json"

type hyperedgeJSON struct {
	Vertices []int `json:"vertices"`
	Weight   int   `json:"weight"`
}

type hypergraphJSON struct {
	Vertices   []int           `json:"vertices"`
	Hyperedges []hyperedgeJSON `json:"hyperedges"`
}

// MarshalJSON serializes the hypergraph with explicit vertex and hyperedge
// lists, stable across reloads.
func (h *Hypergraph) MarshalJSON() ([]byte, error) {
	out := hypergraphJSON{Vertices: h.vertices}
	if out.Vertices == nil {
		out.Vertices = []int{}
	}
	out.Hyperedges = make([]hyperedgeJSON, 0, len(h.hyperedges))
	for _, e := range h.hyperedges {
		out.Hyperedges = append(out.Hyperedges, hyperedgeJSON{Vertices: e.Vertices, Weight: e.Weight})
	}
	return json.Marshal(out)
}

// UnmarshalJSON rebuilds the hypergraph from its serialized form.
func (h *Hypergraph) UnmarshalJSON(data []byte) error {
	var in hypergraphJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*h = *New()
	if err := h.AddVertices(in.Vertices); err != nil {
		return err
	}
	for _, e := range in.Hyperedges {
		if _, err := h.AddWeightedHyperedge(e.Vertices, e.Weight); err != nil {
			return err
		}
	}
	return nil
}
