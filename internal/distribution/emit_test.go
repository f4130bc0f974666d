package distribution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/qcdist/internal/circuit"
	"github.com/vk/qcdist/internal/placement"
	"github.com/vk/qcdist/internal/qnet"
)

func TestToCircuit(t *testing.T) {
	t.Run("single non-local gate opens and closes one link", func(t *testing.T) {
		d := twoServerGate(t, 0)

		ec, err := d.ToCircuit(false)
		require.NoError(t, err)

		// Gate runs on server 0; qubit 1 is linked over.
		require.Len(t, ec.Commands, 3)
		assert.Equal(t, KindStart, ec.Commands[0].Kind)
		assert.Equal(t, 1, ec.Commands[0].Qubit)
		assert.Equal(t, 1, ec.Commands[0].From)
		assert.Equal(t, 0, ec.Commands[0].To)
		assert.Equal(t, KindGate, ec.Commands[1].Kind)
		assert.Equal(t, KindEnd, ec.Commands[2].Kind)

		assert.True(t, AllGatesLocal(ec))
		assert.Equal(t, map[int]int{0: 0, 1: 1}, ec.QubitHomes)
	})

	t.Run("ebit count matches the steiner cost", func(t *testing.T) {
		hc, err := circuit.NewHypergraphCircuit(
			circuit.New(3).CRz(0.5, 0, 1).CRz(0.5, 0, 2),
		)
		require.NoError(t, err)
		net, err := qnet.NewServerNetwork(
			[]qnet.Link{{A: 0, B: 1}, {A: 0, B: 2}, {A: 0, B: 3}},
			map[int][]int{0: {0}, 1: {1}, 2: {2}, 3: {3}},
		)
		require.NoError(t, err)
		d, err := New(hc, placement.New(map[int]int{0: 0, 1: 1, 2: 2, 3: 1, 4: 2}), net)
		require.NoError(t, err)

		ec, err := d.ToCircuit(false)
		require.NoError(t, err)

		cost, err := d.Cost()
		require.NoError(t, err)
		assert.Equal(t, cost, EbitCost(ec))
		assert.True(t, AllGatesLocal(ec))
	})

	t.Run("gate vertices on link qubits are marked", func(t *testing.T) {
		d := twoServerGate(t, 0)
		ec, err := d.ToCircuit(false)
		require.NoError(t, err)

		gate := ec.Commands[1]
		require.Len(t, gate.Qubits, 2)
		assert.False(t, gate.Qubits[0].Link)
		assert.True(t, gate.Qubits[1].Link)
		assert.Equal(t, 0, gate.Qubits[1].Server)
	})

	t.Run("refuses an invalidated distribution", func(t *testing.T) {
		d := twoServerGate(t, 0)
		d.Placement().Move(1, 0) // overfills server 0

		_, err := d.ToCircuit(false)
		assert.ErrorIs(t, err, placement.ErrInvalidPlacement)
	})

	t.Run("deterministic", func(t *testing.T) {
		d := twoServerGate(t, 0)
		first, err := d.ToCircuit(false)
		require.NoError(t, err)
		again, err := d.ToCircuit(false)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	})
}

// constrainedInstance needs two simultaneous links into server 1 while the
// server only has room for one.
func constrainedInstance(t *testing.T) *Distribution {
	t.Helper()
	hc, err := circuit.NewHypergraphCircuit(
		circuit.New(3).
			CRz(0.5, 0, 2).
			CRz(0.5, 1, 2).
			CRz(0.5, 0, 2),
	)
	require.NoError(t, err)
	net, err := qnet.NewNISQNetwork(
		[]qnet.Link{{A: 0, B: 1}},
		map[int][]int{0: {0, 1}, 1: {2}},
		map[int]int{1: 1},
	)
	require.NoError(t, err)
	d, err := New(hc, placement.New(map[int]int{0: 0, 1: 0, 2: 1, 3: 1, 4: 1, 5: 1}), net)
	require.NoError(t, err)
	return d
}

func TestToCircuitConstraints(t *testing.T) {
	t.Run("exceeding ebit memory fails with the offending server", func(t *testing.T) {
		d := constrainedInstance(t)

		_, err := d.ToCircuit(false)
		var ce *ConstraintError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, 1, ce.Server)
	})

	t.Run("allow update splits the long hyperedge and retries", func(t *testing.T) {
		d := constrainedInstance(t)

		ec, err := d.ToCircuit(true)
		require.NoError(t, err)

		// Splitting trades ebits for memory: three separate links now.
		assert.Equal(t, 3, EbitCost(ec))
		mem := EbitMemoryRequired(ec)
		assert.LessOrEqual(t, mem[1], 1)
		assert.True(t, AllGatesLocal(ec))
	})

	t.Run("unsplittable constraint still fails", func(t *testing.T) {
		hc, err := circuit.NewHypergraphCircuit(circuit.New(2).CRz(0.5, 0, 1))
		require.NoError(t, err)
		net, err := qnet.NewNISQNetwork(
			[]qnet.Link{{A: 0, B: 1}},
			map[int][]int{0: {0}, 1: {1}},
			map[int]int{0: 0, 1: 0},
		)
		require.NoError(t, err)
		d, err := New(hc, placement.New(map[int]int{0: 0, 1: 1, 2: 0}), net)
		require.NoError(t, err)

		_, err = d.ToCircuit(true)
		var ce *ConstraintError
		assert.ErrorAs(t, err, &ce)
	})
}

func TestEbitMemoryRequired(t *testing.T) {
	d := constrainedInstance(t)
	// Without the bound the same emission holds two links at once.
	unbounded, err := qnet.NewServerNetwork(
		[]qnet.Link{{A: 0, B: 1}},
		map[int][]int{0: {0, 1}, 1: {2}},
	)
	require.NoError(t, err)
	d2, err := New(d.Circuit(), d.Placement(), unbounded)
	require.NoError(t, err)

	ec, err := d2.ToCircuit(false)
	require.NoError(t, err)
	mem := EbitMemoryRequired(ec)
	assert.Equal(t, 2, mem[1])
	assert.Equal(t, 2, EbitCost(ec))
}
