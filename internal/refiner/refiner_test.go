package refiner

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/qcdist/internal/circuit"
	"github.com/vk/qcdist/internal/ctxlog"
	"github.com/vk/qcdist/internal/distribution"
	"github.com/vk/qcdist/internal/hypergraph"
	"github.com/vk/qcdist/internal/placement"
	"github.com/vk/qcdist/internal/qnet"
)

func testCtx() context.Context {
	return ctxlog.WithLogger(context.Background(), slog.New(slog.DiscardHandler))
}

func mustDistribution(t *testing.T, hc *circuit.HypergraphCircuit, net *qnet.ServerNetwork, mapping map[int]int) *distribution.Distribution {
	t.Helper()
	d, err := distribution.New(hc, placement.New(mapping), net)
	require.NoError(t, err)
	return d
}

func mustCost(t *testing.T, d *distribution.Distribution) int {
	t.Helper()
	cost, err := d.Cost()
	require.NoError(t, err)
	return cost
}

func TestBoundaryReallocationMovesMisplacedGate(t *testing.T) {
	// Both qubits on server 0, gate stranded on server 1. Server 1 has no
	// qubit slots, so the only improving step is pulling the gate home,
	// which empties both hyperedge trees.
	hc, err := circuit.NewHypergraphCircuit(circuit.New(2).CRz(0.5, 0, 1))
	require.NoError(t, err)
	net, err := qnet.NewServerNetwork(
		[]qnet.Link{{A: 0, B: 1}},
		map[int][]int{0: {0, 1}, 1: {}},
	)
	require.NoError(t, err)
	d := mustDistribution(t, hc, net, map[int]int{0: 0, 1: 0, 2: 1})
	require.Equal(t, 2, mustCost(t, d))

	changed, err := NewBoundaryReallocation(10).Refine(testCtx(), d)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 0, mustCost(t, d))
	assert.True(t, d.IsValid())
}

func TestDetachedGatesLeavesQubitsInPlace(t *testing.T) {
	hc, err := circuit.NewHypergraphCircuit(circuit.New(2).CRz(0.5, 0, 1))
	require.NoError(t, err)
	net, err := qnet.NewServerNetwork(
		[]qnet.Link{{A: 0, B: 1}},
		map[int][]int{0: {0, 1}, 1: {2}},
	)
	require.NoError(t, err)
	d := mustDistribution(t, hc, net, map[int]int{0: 0, 1: 0, 2: 1})

	changed, err := NewDetachedGates(10).Refine(testCtx(), d)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 0, mustCost(t, d))
	assert.Equal(t, 0, d.Placement().ServerOf(0))
	assert.Equal(t, 0, d.Placement().ServerOf(1))
}

func TestBoundaryReallocationNeverIncreasesCost(t *testing.T) {
	hc, err := circuit.NewHypergraphCircuit(
		circuit.New(3).
			CRz(0.5, 0, 1).
			CRz(0.5, 1, 2).
			H(1).
			CRz(0.5, 0, 1),
	)
	require.NoError(t, err)
	net, err := qnet.NewServerNetwork(
		[]qnet.Link{{A: 0, B: 1}, {A: 1, B: 2}},
		map[int][]int{0: {0}, 1: {1}, 2: {2}},
	)
	require.NoError(t, err)
	d := mustDistribution(t, hc, net, map[int]int{0: 0, 1: 1, 2: 2, 3: 0, 4: 2, 5: 0})
	before := mustCost(t, d)

	_, err = NewBoundaryReallocation(20).Refine(testCtx(), d)
	require.NoError(t, err)
	assert.LessOrEqual(t, mustCost(t, d), before)
	assert.True(t, d.IsValid())
}

// splitQubitEdge breaks the hyperedge of qubit q into singleton gate edges
// so the merge refiners have something to reassemble.
func splitQubitEdge(t *testing.T, hc *circuit.HypergraphCircuit, q int) {
	t.Helper()
	var target *hypergraph.Hyperedge
	for _, e := range hc.IncidentHyperedges(q) {
		if len(hc.GateVerticesOf(e)) > 1 {
			target = e
			break
		}
	}
	require.NotNil(t, target)
	var parts [][]int
	for _, g := range hc.GateVerticesOf(target) {
		parts = append(parts, []int{q, g})
	}
	_, err := hc.SplitHyperedge(target, parts)
	require.NoError(t, err)
}

func TestDTypeMerge(t *testing.T) {
	// Line 0-1-2, one qubit per server. Gates v3 (qubits 0,1) and v4
	// (qubits 0,2); splitting qubit 0's edge and placing v3 on server 1 and
	// v4 on server 2 prices the halves at 1+2, while the merged tree over
	// servers {0,1,2} costs 2.
	build := func(t *testing.T) *distribution.Distribution {
		hc, err := circuit.NewHypergraphCircuit(
			circuit.New(3).CRz(0.5, 0, 1).CRz(0.5, 0, 2),
		)
		require.NoError(t, err)
		splitQubitEdge(t, hc, 0)
		net, err := qnet.NewServerNetwork(
			[]qnet.Link{{A: 0, B: 1}, {A: 1, B: 2}},
			map[int][]int{0: {0}, 1: {1}, 2: {2}},
		)
		require.NoError(t, err)
		return mustDistribution(t, hc, net, map[int]int{0: 0, 1: 1, 2: 2, 3: 1, 4: 2})
	}

	t.Run("eager merges the profitable pair", func(t *testing.T) {
		d := build(t)
		require.Equal(t, 3, mustCost(t, d))

		changed, err := NewEagerDTypeMerge().Refine(testCtx(), d)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, 2, mustCost(t, d))
	})

	t.Run("neighbouring merges adjacent halves", func(t *testing.T) {
		d := build(t)
		changed, err := NewNeighbouringDTypeMerge().Refine(testCtx(), d)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, 2, mustCost(t, d))
	})

	t.Run("intertwined skips disjoint spans", func(t *testing.T) {
		d := build(t)
		changed, err := NewIntertwinedDTypeMerge().Refine(testCtx(), d)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, 3, mustCost(t, d))
	})
}

func TestDTypeMergeRespectsBasisChange(t *testing.T) {
	// The basis change on qubit 0 separates its two hyperedges for good.
	hc, err := circuit.NewHypergraphCircuit(
		circuit.New(3).CRz(0.5, 0, 1).H(0).CRz(0.5, 0, 2),
	)
	require.NoError(t, err)
	net, err := qnet.NewServerNetwork(
		[]qnet.Link{{A: 0, B: 1}, {A: 1, B: 2}},
		map[int][]int{0: {0}, 1: {1}, 2: {2}},
	)
	require.NoError(t, err)
	d := mustDistribution(t, hc, net, map[int]int{0: 0, 1: 1, 2: 2, 3: 1, 4: 2})
	before := mustCost(t, d)

	changed, err := NewEagerDTypeMerge().Refine(testCtx(), d)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, before, mustCost(t, d))
}

func TestVertexCover(t *testing.T) {
	t.Run("rebuilds to the cover optimum", func(t *testing.T) {
		hc, err := circuit.NewHypergraphCircuit(
			circuit.New(3).CRz(0.5, 0, 1).CRz(0.5, 0, 2),
		)
		require.NoError(t, err)
		net := qnet.AllToAll(3, 1)
		// Gates deliberately stranded on the wrong servers.
		d := mustDistribution(t, hc, net, map[int]int{0: 0, 1: 1, 2: 2, 3: 2, 4: 1})
		require.Equal(t, 4, mustCost(t, d))

		changed, err := NewVertexCover().Refine(testCtx(), d)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, 2, mustCost(t, d))
		assert.True(t, d.IsValid())
	})

	t.Run("leaves a local distribution alone", func(t *testing.T) {
		hc, err := circuit.NewHypergraphCircuit(circuit.New(2).CRz(0.5, 0, 1))
		require.NoError(t, err)
		net := qnet.AllToAll(2, 2)
		d := mustDistribution(t, hc, net, map[int]int{0: 0, 1: 0, 2: 0})
		require.Equal(t, 0, mustCost(t, d))

		changed, err := NewVertexCover().Refine(testCtx(), d)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, 0, mustCost(t, d))
	})

	t.Run("rejects sparse networks", func(t *testing.T) {
		hc, err := circuit.NewHypergraphCircuit(circuit.New(3).CRz(0.5, 0, 2))
		require.NoError(t, err)
		net, err := qnet.NewServerNetwork(
			[]qnet.Link{{A: 0, B: 1}, {A: 1, B: 2}},
			map[int][]int{0: {0}, 1: {1}, 2: {2}},
		)
		require.NoError(t, err)
		d := mustDistribution(t, hc, net, map[int]int{0: 0, 1: 1, 2: 2, 3: 0})

		_, err = NewVertexCover().Refine(testCtx(), d)
		assert.ErrorContains(t, err, "fully connected")
	})
}

type countingRefiner struct {
	calls  int
	result bool
}

func (r *countingRefiner) Refine(context.Context, *distribution.Distribution) (bool, error) {
	r.calls++
	return r.result, nil
}

func TestRepeatStopsOnFixedPoint(t *testing.T) {
	hc, err := circuit.NewHypergraphCircuit(circuit.New(2).CRz(0.5, 0, 1))
	require.NoError(t, err)
	net := qnet.AllToAll(2, 1)
	d := mustDistribution(t, hc, net, map[int]int{0: 0, 1: 1, 2: 0})

	inner := &countingRefiner{result: false}
	changed, err := NewRepeat(inner).Refine(testCtx(), d)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, inner.calls)
}

func TestRepeatHonoursIterationBound(t *testing.T) {
	hc, err := circuit.NewHypergraphCircuit(circuit.New(2).CRz(0.5, 0, 1))
	require.NoError(t, err)
	net := qnet.AllToAll(2, 1)
	d := mustDistribution(t, hc, net, map[int]int{0: 0, 1: 1, 2: 0})

	// An inner refiner that always claims change without lowering the cost
	// stops after the first cost check.
	inner := &countingRefiner{result: true}
	r := NewRepeat(inner)
	changed, err := r.Refine(testCtx(), d)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, inner.calls)
}

func TestSequenceRunsEveryRefiner(t *testing.T) {
	hc, err := circuit.NewHypergraphCircuit(circuit.New(2).CRz(0.5, 0, 1))
	require.NoError(t, err)
	net := qnet.AllToAll(2, 1)
	d := mustDistribution(t, hc, net, map[int]int{0: 0, 1: 1, 2: 0})

	first := &countingRefiner{result: false}
	second := &countingRefiner{result: true}
	changed, err := NewSequence(first, second).Refine(testCtx(), d)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}
