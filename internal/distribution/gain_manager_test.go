package distribution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/qcdist/internal/circuit"
	"github.com/vk/qcdist/internal/placement"
	"github.com/vk/qcdist/internal/qnet"
)

func gainFixture(t *testing.T) *GainManager {
	t.Helper()
	hc, err := circuit.NewHypergraphCircuit(
		circuit.New(3).CRz(0.5, 0, 1).CRz(0.5, 1, 2),
	)
	require.NoError(t, err)
	net, err := qnet.NewServerNetwork(
		[]qnet.Link{{A: 0, B: 1}, {A: 1, B: 2}},
		map[int][]int{0: {0, 1}, 1: {2}, 2: {3}},
	)
	require.NoError(t, err)
	d, err := New(hc, placement.New(map[int]int{0: 0, 1: 0, 2: 1, 3: 0, 4: 1}), net)
	require.NoError(t, err)
	g, err := NewGainManager(d)
	require.NoError(t, err)
	return g
}

func TestNewGainManager(t *testing.T) {
	g := gainFixture(t)

	cost, err := g.Distribution().Cost()
	require.NoError(t, err)
	assert.Equal(t, cost, g.Cost())

	assert.Equal(t, 2, g.Occupancy(0))
	assert.Equal(t, 1, g.Occupancy(1))
	assert.Equal(t, 0, g.Occupancy(2))
}

func TestMoveGainMatchesRecomputation(t *testing.T) {
	g := gainFixture(t)
	d := g.Distribution()

	moves := []struct{ v, s int }{{2, 0}, {4, 0}, {1, 1}, {4, 2}, {2, 1}}
	for _, m := range moves {
		if !g.IsMoveValid(m.v, m.s) {
			continue
		}
		before := g.Cost()
		gain, err := g.MoveGain(m.v, m.s)
		require.NoError(t, err)
		require.NoError(t, g.Move(m.v, m.s))

		recomputed, err := d.Cost()
		require.NoError(t, err)
		assert.Equal(t, recomputed, g.Cost(), "move %d to %d", m.v, m.s)
		assert.Equal(t, before-gain, g.Cost(), "move %d to %d", m.v, m.s)
	}
}

func TestIsMoveValid(t *testing.T) {
	g := gainFixture(t)

	t.Run("capacity blocks qubit moves", func(t *testing.T) {
		// Server 1 has a single slot, already holding qubit 2.
		assert.False(t, g.IsMoveValid(0, 1))
		assert.True(t, g.IsMoveValid(0, 2))
	})

	t.Run("gate vertices are unconstrained", func(t *testing.T) {
		assert.True(t, g.IsMoveValid(3, 1))
		assert.True(t, g.IsMoveValid(3, 2))
	})

	t.Run("unknown server is invalid", func(t *testing.T) {
		assert.False(t, g.IsMoveValid(0, 9))
	})

	t.Run("staying put is always valid", func(t *testing.T) {
		assert.True(t, g.IsMoveValid(2, 1))
	})
}

func TestSwap(t *testing.T) {
	g := gainFixture(t)
	d := g.Distribution()

	gain, err := g.SwapGain(0, 2)
	require.NoError(t, err)
	before := g.Cost()
	require.NoError(t, g.Swap(0, 2))

	recomputed, err := d.Cost()
	require.NoError(t, err)
	assert.Equal(t, recomputed, g.Cost())
	assert.Equal(t, before-gain, g.Cost())
	assert.Equal(t, 0, d.Placement().ServerOf(2))
	assert.Equal(t, 1, d.Placement().ServerOf(0))

	t.Run("mixed kind swaps are rejected", func(t *testing.T) {
		err := g.Swap(0, 3)
		assert.Error(t, err)
	})

	t.Run("occupancy is preserved", func(t *testing.T) {
		assert.Equal(t, 2, g.Occupancy(0))
		assert.Equal(t, 1, g.Occupancy(1))
	})
}
