package registry

import (
	"fmt"
	"slices"

	"github.com/vk/qcdist/internal/allocator"
	"github.com/vk/qcdist/internal/config"
	"github.com/vk/qcdist/internal/distributor"
	"github.com/vk/qcdist/internal/refiner"
	"github.com/vk/qcdist/internal/solver"
)

// Default knobs applied when a workflow block leaves them unset.
const (
	DefaultAnnealingIterations = 10000
	DefaultBoundaryRounds      = 20
)

// Deps carries the shared dependencies a factory may need beyond its
// workflow block.
type Deps struct {
	// Partitioner backs the "partitioning" strategy. Nil when the
	// configuration declares no solver.
	Partitioner solver.Partitioner
}

// Factory builds a distributor from one workflow block.
type Factory func(w *config.Workflow, deps Deps) (distributor.Distributor, error)

// Registry holds the strategy factories for a single application instance.
type Registry struct {
	factories map[string]Factory
}

// New creates a registry populated with the built-in strategies.
func New() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.registerBuiltins()
	return r
}

// Register adds or replaces a strategy factory.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Strategies returns the registered strategy names in ascending order.
func (r *Registry) Strategies() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Build constructs the distributor for one workflow block.
func (r *Registry) Build(w *config.Workflow, deps Deps) (distributor.Distributor, error) {
	f, ok := r.factories[w.Strategy]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q, registered: %v", w.Strategy, r.Strategies())
	}
	return f(w, deps)
}

// BuildAll constructs a distributor per workflow of the model.
func (r *Registry) BuildAll(model *config.Model, deps Deps) ([]distributor.Distributor, error) {
	out := make([]distributor.Distributor, 0, len(model.Workflows))
	for _, w := range model.Workflows {
		d, err := r.Build(w, deps)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Validate checks the model's workflows against the registered strategies
// without building anything heavier than the factories themselves.
func (r *Registry) Validate(model *config.Model, deps Deps) error {
	for _, w := range model.Workflows {
		if _, err := r.Build(w, deps); err != nil {
			return err
		}
	}
	return nil
}

func iterations(w *config.Workflow) int {
	if w.Iterations > 0 {
		return w.Iterations
	}
	return DefaultAnnealingIterations
}

func rounds(w *config.Workflow) int {
	if w.Rounds > 0 {
		return w.Rounds
	}
	return DefaultBoundaryRounds
}

func (r *Registry) registerBuiltins() {
	r.Register("ordered", func(w *config.Workflow, _ Deps) (distributor.Distributor, error) {
		return &distributor.Pipeline{
			Name:      "ordered",
			Allocator: allocator.NewOrdered(),
			Refiners: []refiner.Refiner{
				refiner.NewRepeat(refiner.NewBoundaryReallocation(rounds(w))),
			},
		}, nil
	})
	r.Register("random", func(w *config.Workflow, _ Deps) (distributor.Distributor, error) {
		return &distributor.Pipeline{
			Name:      "random",
			Allocator: allocator.NewRandom(w.Seed),
			Refiners: []refiner.Refiner{
				refiner.NewRepeat(refiner.NewBoundaryReallocation(rounds(w))),
			},
		}, nil
	})
	r.Register("brute_force", func(*config.Workflow, Deps) (distributor.Distributor, error) {
		return distributor.NewBruteForce(), nil
	})
	r.Register("annealing", func(w *config.Workflow, _ Deps) (distributor.Distributor, error) {
		return distributor.NewAnnealing(w.Seed, iterations(w)), nil
	})
	r.Register("routed", func(*config.Workflow, Deps) (distributor.Distributor, error) {
		return distributor.NewRouted(), nil
	})
	r.Register("cover_embedding", func(w *config.Workflow, _ Deps) (distributor.Distributor, error) {
		return distributor.NewCoverEmbedding(w.Seed, iterations(w)), nil
	})
	r.Register("partitioning", func(w *config.Workflow, deps Deps) (distributor.Distributor, error) {
		if deps.Partitioner == nil {
			return nil, fmt.Errorf("strategy %q needs a solver block in the configuration", w.Strategy)
		}
		return distributor.NewPartitioningHeterogeneous(deps.Partitioner), nil
	})
}
