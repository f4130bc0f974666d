package qnet

import (
	"fmt"
	"slices"
)

// SteinerTree returns the edges of an approximate minimum Steiner tree
// connecting the given servers. The approximation grows the tree from the
// smallest terminal, repeatedly attaching the nearest remaining terminal
// along a shortest path; intermediate servers joined along the way become
// part of the tree and are reused by later attachments. All tie-breaks are
// by ascending server id, so the result is fully deterministic and cost
// evaluation agrees exactly with circuit emission.
func (n *ServerNetwork) SteinerTree(terminals []int) ([]Link, error) {
	ts := slices.Clone(terminals)
	slices.Sort(ts)
	ts = slices.Compact(ts)
	for _, t := range ts {
		if !n.HasServer(t) {
			return nil, fmt.Errorf("unknown server %d", t)
		}
	}
	if len(ts) <= 1 {
		return nil, nil
	}

	inTree := map[int]bool{ts[0]: true}
	remaining := ts[1:]
	var edges []Link

	for len(remaining) > 0 {
		// Nearest remaining terminal, then its best attachment point.
		bestT, bestU, bestD := -1, -1, -1
		for _, t := range remaining {
			for u := range inTree {
				d, ok := n.Distance(u, t)
				if !ok {
					continue
				}
				if bestD == -1 || d < bestD ||
					(d == bestD && (t < bestT || (t == bestT && u < bestU))) {
					bestT, bestU, bestD = t, u, d
				}
			}
		}
		if bestT == -1 {
			return nil, fmt.Errorf("servers %v cannot be connected: %w", ts, ErrInfeasibleNetwork)
		}

		// Walk the shortest path from the attachment point to the
		// terminal, preferring the smallest next server id.
		cur := bestU
		for cur != bestT {
			d, _ := n.Distance(cur, bestT)
			next := -1
			for _, v := range n.Neighbours(cur) {
				dv, ok := n.Distance(v, bestT)
				if ok && dv == d-1 {
					next = v
					break
				}
			}
			if next == -1 {
				return nil, fmt.Errorf("path reconstruction failed between %d and %d", cur, bestT)
			}
			edges = append(edges, Link{A: cur, B: next})
			inTree[next] = true
			cur = next
		}

		i := slices.Index(remaining, bestT)
		remaining = slices.Delete(remaining, i, i+1)
	}
	return edges, nil
}

// SteinerCost returns the edge count of the approximate Steiner tree over
// the given servers: zero when they are all the same server.
func (n *ServerNetwork) SteinerCost(terminals []int) (int, error) {
	edges, err := n.SteinerTree(terminals)
	if err != nil {
		return 0, err
	}
	return len(edges), nil
}
