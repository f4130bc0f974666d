package qnet

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lineNetwork(t *testing.T) *ServerNetwork {
	t.Helper()
	n, err := NewServerNetwork(
		[]Link{{A: 0, B: 1}, {A: 1, B: 2}},
		map[int][]int{0: {0}, 1: {1}, 2: {2}},
	)
	require.NoError(t, err)
	return n
}

func starNetwork(t *testing.T) *ServerNetwork {
	t.Helper()
	// Server 0 is the hub; 1, 2, 3 are leaves.
	n, err := NewServerNetwork(
		[]Link{{A: 0, B: 1}, {A: 0, B: 2}, {A: 0, B: 3}},
		map[int][]int{0: {0}, 1: {1}, 2: {2}, 3: {3}},
	)
	require.NoError(t, err)
	return n
}

func TestNewServerNetwork(t *testing.T) {
	t.Run("validates links", func(t *testing.T) {
		_, err := NewServerNetwork([]Link{{A: 0, B: 0}}, map[int][]int{0: {0}})
		assert.ErrorContains(t, err, "self-loop")

		_, err = NewServerNetwork([]Link{{A: 0, B: 5}}, map[int][]int{0: {0}})
		assert.ErrorContains(t, err, "undeclared server")
	})

	t.Run("disconnected networks are allowed", func(t *testing.T) {
		n, err := NewServerNetwork(nil, map[int][]int{0: {0}, 1: {1}})
		require.NoError(t, err)
		assert.False(t, n.IsConnected())
	})

	t.Run("basic queries", func(t *testing.T) {
		n := lineNetwork(t)
		assert.Equal(t, []int{0, 1, 2}, n.Servers())
		assert.True(t, n.Adjacent(0, 1))
		assert.False(t, n.Adjacent(0, 2))
		assert.Equal(t, []int{0, 2}, n.Neighbours(1))
		assert.Equal(t, 1, n.QubitCapacity(0))
		assert.Equal(t, 3, n.TotalCapacity())
		assert.True(t, n.CanPlace(3))
		assert.False(t, n.CanPlace(4))
		assert.Equal(t, map[int][]int{0: {1}, 1: {0, 2}, 2: {1}}, n.AdjacencyList())
		assert.True(t, n.IsConnected())
		assert.False(t, n.FullyConnected())
	})

	t.Run("description string", func(t *testing.T) {
		n := lineNetwork(t)
		s := n.String()
		assert.Contains(t, s, "graph network {")
		assert.Contains(t, s, "0 -- 1")
		assert.Contains(t, s, "1 [qubits=1]")
	})
}

func TestDistance(t *testing.T) {
	n := lineNetwork(t)

	d, ok := n.Distance(0, 2)
	require.True(t, ok)
	assert.Equal(t, 2, d)

	disc, err := NewServerNetwork(nil, map[int][]int{0: {0}, 1: {1}})
	require.NoError(t, err)
	_, ok = disc.Distance(0, 1)
	assert.False(t, ok)
}

func TestEbitMemory(t *testing.T) {
	n, err := NewNISQNetwork(
		[]Link{{A: 0, B: 1}},
		map[int][]int{0: {0}, 1: {1}},
		map[int]int{0: 2},
	)
	require.NoError(t, err)

	assert.Equal(t, 2, n.EbitMemory(0))
	assert.Equal(t, -1, n.EbitMemory(1))

	unbounded := lineNetwork(t)
	assert.Equal(t, -1, unbounded.EbitMemory(0))
}

func TestSteinerTree(t *testing.T) {
	t.Run("single server costs nothing", func(t *testing.T) {
		n := lineNetwork(t)
		cost, err := n.SteinerCost([]int{1, 1})
		require.NoError(t, err)
		assert.Equal(t, 0, cost)
	})

	t.Run("adjacent pair costs one", func(t *testing.T) {
		n := lineNetwork(t)
		cost, err := n.SteinerCost([]int{0, 1})
		require.NoError(t, err)
		assert.Equal(t, 1, cost)
	})

	t.Run("line endpoints route through the middle", func(t *testing.T) {
		n := lineNetwork(t)
		edges, err := n.SteinerTree([]int{0, 2})
		require.NoError(t, err)
		assert.Len(t, edges, 2)
	})

	t.Run("star reuses the hub", func(t *testing.T) {
		n := starNetwork(t)
		// Leaves 1 and 2: both paths go through hub 0, which is shared.
		cost, err := n.SteinerCost([]int{0, 1, 2})
		require.NoError(t, err)
		assert.Equal(t, 2, cost)

		cost, err = n.SteinerCost([]int{1, 2, 3})
		require.NoError(t, err)
		assert.Equal(t, 3, cost)
	})

	t.Run("unreachable terminals fail", func(t *testing.T) {
		n, err := NewServerNetwork(nil, map[int][]int{0: {0}, 1: {1}})
		require.NoError(t, err)
		_, err = n.SteinerCost([]int{0, 1})
		assert.ErrorIs(t, err, ErrInfeasibleNetwork)
	})

	t.Run("deterministic across calls", func(t *testing.T) {
		n := starNetwork(t)
		first, err := n.SteinerTree([]int{1, 2, 3})
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := n.SteinerTree([]int{3, 1, 2})
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})
}

func TestJSONRoundTrip(t *testing.T) {
	n, err := NewNISQNetwork(
		[]Link{{A: 0, B: 1}, {A: 1, B: 2}},
		map[int][]int{0: {0, 1}, 1: {2}, 2: {3}},
		map[int]int{1: 1},
	)
	require.NoError(t, err)

	data, err := json.Marshal(n)
	require.NoError(t, err)

	var back ServerNetwork
	require.NoError(t, json.Unmarshal(data, &back))

	assert.Equal(t, n.Servers(), back.Servers())
	assert.Equal(t, n.Coupling(), back.Coupling())
	assert.Equal(t, n.Qubits(0), back.Qubits(0))
	assert.Equal(t, 1, back.EbitMemory(1))
	assert.Equal(t, -1, back.EbitMemory(0))
}
