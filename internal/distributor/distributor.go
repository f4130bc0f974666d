package distributor

import (
	"context"
	"fmt"

	"github.com/vk/qcdist/internal/allocator"
	"github.com/vk/qcdist/internal/circuit"
	"github.com/vk/qcdist/internal/ctxlog"
	"github.com/vk/qcdist/internal/distribution"
	"github.com/vk/qcdist/internal/qnet"
	"github.com/vk/qcdist/internal/refiner"
)

// Distributor turns a hypergraph circuit and a network into a placed
// distribution.
type Distributor interface {
	Distribute(ctx context.Context, hc *circuit.HypergraphCircuit, net *qnet.ServerNetwork) (*distribution.Distribution, error)
}

// Pipeline is an allocator followed by a refinement schedule. The refiners
// run in order on the allocated distribution.
type Pipeline struct {
	Name      string
	Allocator allocator.Allocator
	Refiners  []refiner.Refiner
}

// Distribute implements the Distributor interface.
func (p *Pipeline) Distribute(ctx context.Context, hc *circuit.HypergraphCircuit, net *qnet.ServerNetwork) (*distribution.Distribution, error) {
	logger := ctxlog.FromContext(ctx).With("pipeline", p.Name)

	d, err := p.Allocator.Allocate(ctx, hc, net)
	if err != nil {
		return nil, fmt.Errorf("pipeline %q: allocation: %w", p.Name, err)
	}
	allocated, err := d.Cost()
	if err != nil {
		return nil, fmt.Errorf("pipeline %q: %w", p.Name, err)
	}
	logger.Debug("Allocation finished.", "cost", allocated)

	if len(p.Refiners) > 0 {
		if _, err := refiner.NewSequence(p.Refiners...).Refine(ctx, d); err != nil {
			return nil, fmt.Errorf("pipeline %q: refinement: %w", p.Name, err)
		}
		refined, err := d.Cost()
		if err != nil {
			return nil, fmt.Errorf("pipeline %q: %w", p.Name, err)
		}
		logger.Debug("Refinement finished.", "cost", refined, "saved", allocated-refined)
	}
	return d, nil
}
