package refiner

import (
	"context"

	"github.com/vk/qcdist/internal/distribution"
)

// Refiner applies a cost-reducing transformation to a distribution in
// place. The boolean result reports whether anything changed; finding no
// improvement is not an error. A refiner never leaves the distribution
// invalid and never increases its cost.
type Refiner interface {
	Refine(ctx context.Context, d *distribution.Distribution) (bool, error)
}
