package solver

import (
	"context"
	"fmt"
)

// Problem describes a min-k-cut instance. The hypergraph is in compressed
// sparse row form: HyperedgeIndices[i] and HyperedgeIndices[i+1] delimit the
// i-th hyperedge's members inside Hyperedges. VertexWeights drive the block
// capacity constraint; BlockWeights are the per-block weight limits.
type Problem struct {
	Blocks           int     `json:"blocks"`
	BlockWeights     []int   `json:"block_weights"`
	VertexWeights    []int   `json:"vertex_weights"`
	HyperedgeIndices []int   `json:"hyperedge_indices"`
	Hyperedges       []int   `json:"hyperedges"`
	EdgeWeights      []int   `json:"edge_weights"`
	Epsilon          float64 `json:"epsilon"`
}

// VertexCount returns the number of vertices in the problem.
func (p *Problem) VertexCount() int {
	return len(p.VertexWeights)
}

// Partitioner solves a min-k-cut instance, returning one block id in
// [0, Blocks) per vertex. The call blocks until the solver finishes; it is
// treated as an atomic step apart from context cancellation.
type Partitioner interface {
	Partition(ctx context.Context, p *Problem) ([]int, error)
}

// Static is a Partitioner returning a fixed assignment, for tests and for
// replaying a previously computed partition.
type Static struct {
	Assignment []int
}

// Partition returns the fixed assignment after validating its length.
func (s *Static) Partition(_ context.Context, p *Problem) ([]int, error) {
	if len(s.Assignment) != p.VertexCount() {
		return nil, fmt.Errorf("static assignment has %d entries for %d vertices", len(s.Assignment), p.VertexCount())
	}
	return s.Assignment, nil
}
