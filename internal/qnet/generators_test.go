package qnet

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllToAll(t *testing.T) {
	n := AllToAll(4, 2)

	assert.Len(t, n.Servers(), 4)
	assert.True(t, n.FullyConnected())
	assert.Equal(t, 8, n.TotalCapacity())
	assert.Equal(t, []int{2, 3}, n.Qubits(1))
}

func TestRandomConnected(t *testing.T) {
	t.Run("always connected", func(t *testing.T) {
		for seed := int64(0); seed < 10; seed++ {
			n := RandomConnected(rand.New(rand.NewSource(seed)), 8, 2, 0.2)
			assert.True(t, n.IsConnected(), "seed %d", seed)
			assert.Len(t, n.Servers(), 8)
		}
	})

	t.Run("reproducible from the seed", func(t *testing.T) {
		a := RandomConnected(rand.New(rand.NewSource(7)), 6, 1, 0.3)
		b := RandomConnected(rand.New(rand.NewSource(7)), 6, 1, 0.3)
		assert.Equal(t, a.Coupling(), b.Coupling())
	})
}

func TestScaleFree(t *testing.T) {
	n := ScaleFree(rand.New(rand.NewSource(3)), 10, 1, 2)

	require.Len(t, n.Servers(), 10)
	assert.True(t, n.IsConnected())
	// Every server past the first two attaches at least two links.
	for _, s := range n.Servers()[2:] {
		assert.GreaterOrEqual(t, len(n.Neighbours(s)), 2, "server %d", s)
	}
}

func TestSmallWorld(t *testing.T) {
	n := SmallWorld(rand.New(rand.NewSource(5)), 12, 1, 4, 0.1)

	require.Len(t, n.Servers(), 12)
	// The ring lattice keeps the graph connected under light rewiring.
	assert.True(t, n.IsConnected())
}
