package refiner

import (
	"context"
	"slices"

	"github.com/vk/qcdist/internal/ctxlog"
	"github.com/vk/qcdist/internal/distribution"
	"github.com/vk/qcdist/internal/hypergraph"
)

// mergeRule decides whether two hyperedges on the same qubit, given in
// timeline order, are candidates for a particular merge strategy.
type mergeRule func(adjacent bool, spansOverlap bool) bool

// dTypeMerge merges hyperedges on the same qubit whose gate runs are not
// separated by a basis change, provided the merged Steiner tree costs no
// more than the two trees it replaces. The rule narrows which pairs each
// variant looks at.
type dTypeMerge struct {
	name string
	rule mergeRule
}

// NewNeighbouringDTypeMerge merges pairs that sit next to each other on a
// qubit's timeline.
func NewNeighbouringDTypeMerge() Refiner {
	return &dTypeMerge{
		name: "neighbouring",
		rule: func(adjacent, _ bool) bool { return adjacent },
	}
}

// NewIntertwinedDTypeMerge merges pairs whose gate runs interleave in the
// command order, the shape constraint splitting leaves behind.
func NewIntertwinedDTypeMerge() Refiner {
	return &dTypeMerge{
		name: "intertwined",
		rule: func(_, spansOverlap bool) bool { return spansOverlap },
	}
}

// NewEagerDTypeMerge merges any pair on the same qubit, nearest first.
func NewEagerDTypeMerge() Refiner {
	return &dTypeMerge{
		name: "eager",
		rule: func(bool, bool) bool { return true },
	}
}

// Refine implements the Refiner interface.
func (r *dTypeMerge) Refine(ctx context.Context, d *distribution.Distribution) (bool, error) {
	logger := ctxlog.FromContext(ctx)
	changed := false
	merges := 0

	for _, q := range d.Circuit().QubitVertices() {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		for {
			merged, err := r.mergeOnQubit(d, q)
			if err != nil {
				return changed, err
			}
			if !merged {
				break
			}
			changed = true
			merges++
		}
	}
	if merges > 0 {
		logger.Debug("Hyperedge merges applied.", "strategy", r.name, "merges", merges)
	}
	return changed, nil
}

// mergeOnQubit finds the first profitable pair on qubit q's timeline and
// merges it.
func (r *dTypeMerge) mergeOnQubit(d *distribution.Distribution, q int) (bool, error) {
	hc := d.Circuit()
	edges := timelineEdges(d, q)
	for i := 0; i < len(edges); i++ {
		for j := i + 1; j < len(edges); j++ {
			e1, e2 := edges[i], edges[j]
			f1, l1, _ := hc.CommandSpan(e1)
			f2, l2, _ := hc.CommandSpan(e2)
			adjacent := j == i+1
			overlap := f2 <= l1 && f1 <= l2
			if !r.rule(adjacent, overlap) {
				continue
			}
			if !hc.MergeCandidates(e1, e2) {
				continue
			}
			ok, err := mergeIfProfitable(d, e1, e2)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
	}
	return false, nil
}

// timelineEdges returns q's incident hyperedges that carry gates, ordered
// by first command index.
func timelineEdges(d *distribution.Distribution, q int) []*hypergraph.Hyperedge {
	hc := d.Circuit()
	var edges []*hypergraph.Hyperedge
	for _, e := range hc.IncidentHyperedges(q) {
		if eq, err := hc.HyperedgeQubit(e); err != nil || eq != q {
			continue
		}
		if _, _, ok := hc.CommandSpan(e); ok {
			edges = append(edges, e)
		}
	}
	slices.SortFunc(edges, func(a, b *hypergraph.Hyperedge) int {
		fa, _, _ := hc.CommandSpan(a)
		fb, _, _ := hc.CommandSpan(b)
		return fa - fb
	})
	return edges
}

// mergeIfProfitable commits the merge only when the merged tree costs no
// more than the pair it replaces.
func mergeIfProfitable(d *distribution.Distribution, e1, e2 *hypergraph.Hyperedge) (bool, error) {
	c1, err := d.HyperedgeCost(e1)
	if err != nil {
		return false, err
	}
	c2, err := d.HyperedgeCost(e2)
	if err != nil {
		return false, err
	}

	servers := slices.Concat(d.HyperedgeServers(e1), d.HyperedgeServers(e2))
	slices.Sort(servers)
	servers = slices.Compact(servers)
	mergedCost := 0
	if len(servers) > 1 {
		mergedCost, err = d.Network().SteinerCost(servers)
		if err != nil {
			return false, err
		}
		mergedCost *= e1.Weight
	}
	if mergedCost > c1+c2 {
		return false, nil
	}

	_, err = d.Circuit().MergeHyperedges([]*hypergraph.Hyperedge{e1, e2})
	if err != nil {
		return false, err
	}
	return true, nil
}
