package refiner

import (
	"context"

	"github.com/vk/qcdist/internal/ctxlog"
	"github.com/vk/qcdist/internal/distribution"
)

// DefaultMaxIterations bounds a Repeat loop that keeps reporting change.
const DefaultMaxIterations = 1000

// Repeat applies its inner refiner until it stops changing the
// distribution, the cost stops falling, or the iteration bound is hit. The
// inner refiner runs at least once.
type Repeat struct {
	Inner         Refiner
	MaxIterations int
}

// NewRepeat returns a repeat combinator with the default iteration bound.
func NewRepeat(inner Refiner) *Repeat {
	return &Repeat{Inner: inner, MaxIterations: DefaultMaxIterations}
}

// Refine implements the Refiner interface.
func (r *Repeat) Refine(ctx context.Context, d *distribution.Distribution) (bool, error) {
	logger := ctxlog.FromContext(ctx)
	prevCost, err := d.Cost()
	if err != nil {
		return false, err
	}

	changed := false
	for i := 0; i < r.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		ok, err := r.Inner.Refine(ctx, d)
		if err != nil {
			return changed, err
		}
		if !ok {
			break
		}
		changed = true

		cost, err := d.Cost()
		if err != nil {
			return changed, err
		}
		if cost >= prevCost {
			logger.Debug("Repeat loop reached a fixed cost.", "iteration", i, "cost", cost)
			break
		}
		prevCost = cost
	}
	return changed, nil
}
