package placement

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/qcdist/internal/circuit"
	"github.com/vk/qcdist/internal/qnet"
)

func fixture(t *testing.T) (*circuit.HypergraphCircuit, *qnet.ServerNetwork) {
	t.Helper()
	hc, err := circuit.NewHypergraphCircuit(circuit.New(2).CRz(0.5, 0, 1))
	require.NoError(t, err)
	net, err := qnet.NewServerNetwork(
		[]qnet.Link{{A: 0, B: 1}},
		map[int][]int{0: {0}, 1: {1}},
	)
	require.NoError(t, err)
	return hc, net
}

func TestValidate(t *testing.T) {
	hc, net := fixture(t)

	t.Run("valid placement", func(t *testing.T) {
		p := New(map[int]int{0: 0, 1: 1, 2: 0})
		assert.NoError(t, p.Validate(hc, net))
		assert.True(t, p.IsValid(hc, net))
	})

	t.Run("missing vertex", func(t *testing.T) {
		p := New(map[int]int{0: 0, 1: 1})
		assert.ErrorIs(t, p.Validate(hc, net), ErrInvalidPlacement)
	})

	t.Run("unknown server", func(t *testing.T) {
		p := New(map[int]int{0: 0, 1: 1, 2: 9})
		assert.ErrorIs(t, p.Validate(hc, net), ErrInvalidPlacement)
	})

	t.Run("capacity exceeded", func(t *testing.T) {
		p := New(map[int]int{0: 0, 1: 0, 2: 0})
		err := p.Validate(hc, net)
		assert.ErrorIs(t, err, ErrInvalidPlacement)
		assert.ErrorContains(t, err, "capacity")
	})

	t.Run("gate vertices do not consume capacity", func(t *testing.T) {
		p := New(map[int]int{0: 0, 1: 1, 2: 1})
		assert.NoError(t, p.Validate(hc, net))
	})
}

func TestMoveAndClone(t *testing.T) {
	p := New(map[int]int{0: 0, 1: 1})
	clone := p.Clone()

	p.Move(0, 1)
	assert.Equal(t, 1, p.ServerOf(0))
	assert.Equal(t, 0, clone.ServerOf(0))

	assert.Panics(t, func() { p.ServerOf(9) })
}

func TestJSONRoundTrip(t *testing.T) {
	p := New(map[int]int{0: 0, 1: 1, 5: 2})

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var back Placement
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, p.Mapping(), back.Mapping())
}
