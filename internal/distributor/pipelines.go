package distributor

import (
	"github.com/vk/qcdist/internal/allocator"
	"github.com/vk/qcdist/internal/refiner"
	"github.com/vk/qcdist/internal/solver"
)

// DefaultBoundaryRounds is the round budget handed to boundary-based
// refiners in the prebuilt pipelines.
const DefaultBoundaryRounds = 20

// NewAnnealing returns the simulated-annealing workflow: annealed
// allocation polished by repeated boundary reallocation.
func NewAnnealing(seed int64, iterations int) *Pipeline {
	return &Pipeline{
		Name:      "annealing",
		Allocator: allocator.NewAnnealing(seed, iterations),
		Refiners: []refiner.Refiner{
			refiner.NewRepeat(refiner.NewBoundaryReallocation(DefaultBoundaryRounds)),
		},
	}
}

// NewPartitioningHeterogeneous returns the solver-driven workflow for
// arbitrary network topologies: external hypergraph partitioning, then
// boundary reallocation interleaved with hyperedge merging until the cost
// settles.
func NewPartitioningHeterogeneous(p solver.Partitioner) *Pipeline {
	return &Pipeline{
		Name:      "partitioning_heterogeneous",
		Allocator: allocator.NewPartitioning(p),
		Refiners: []refiner.Refiner{
			refiner.NewRepeat(refiner.NewSequence(
				refiner.NewBoundaryReallocation(DefaultBoundaryRounds),
				refiner.NewNeighbouringDTypeMerge(),
			)),
		},
	}
}

// NewBruteForce returns the exhaustive workflow. The allocation is already
// optimal for the initial hyperedge structure, so no refiners follow.
func NewBruteForce() *Pipeline {
	return &Pipeline{
		Name:      "brute_force",
		Allocator: allocator.NewBrute(),
	}
}

// NewRouted returns the routing workflow: a breadth-first fill of the
// network followed by gate re-hosting along the boundary.
func NewRouted() *Pipeline {
	return &Pipeline{
		Name:      "routed",
		Allocator: allocator.NewRouting(),
		Refiners: []refiner.Refiner{
			refiner.NewRepeat(refiner.NewDetachedGates(DefaultBoundaryRounds)),
		},
	}
}

// NewCoverEmbedding returns the workflow for fully connected networks:
// annealed allocation, then the vertex-cover rebuild of the hyperedge
// structure with eager merging of what the cover leaves behind.
func NewCoverEmbedding(seed int64, iterations int) *Pipeline {
	return &Pipeline{
		Name:      "cover_embedding",
		Allocator: allocator.NewAnnealing(seed, iterations),
		Refiners: []refiner.Refiner{
			refiner.NewVertexCover(),
			refiner.NewRepeat(refiner.NewEagerDTypeMerge()),
		},
	}
}
