package refiner

import (
	"context"

	"github.com/vk/qcdist/internal/distribution"
)

// Sequence runs its refiners once each, in order, and reports whether any
// of them changed the distribution.
type Sequence struct {
	Refiners []Refiner
}

// NewSequence returns a refiner applying the given refiners in order.
func NewSequence(refiners ...Refiner) *Sequence {
	return &Sequence{Refiners: refiners}
}

// Refine implements the Refiner interface.
func (r *Sequence) Refine(ctx context.Context, d *distribution.Distribution) (bool, error) {
	changed := false
	for _, inner := range r.Refiners {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		ok, err := inner.Refine(ctx, d)
		if err != nil {
			return changed, err
		}
		changed = changed || ok
	}
	return changed, nil
}
