package distribution

import (
	"fmt"

	"github.com/vk/qcdist/internal/qnet"
)

// ConstraintError reports that a server ran out of ebit memory while the
// emitter was opening link qubits for a gate vertex.
type ConstraintError struct {
	Server     int
	GateVertex int
}

// Error implements the error interface.
func (e *ConstraintError) Error() string {
	return fmt.Sprintf("ebit memory of server %d exceeded at gate vertex %d", e.Server, e.GateVertex)
}

// linkManager tracks the link qubits occupied on each server during
// emission and enforces the network's ebit memory bounds.
type linkManager struct {
	net      *qnet.ServerNetwork
	occupied map[int]int
	peak     map[int]int
}

func newLinkManager(net *qnet.ServerNetwork) *linkManager {
	return &linkManager{
		net:      net,
		occupied: make(map[int]int),
		peak:     make(map[int]int),
	}
}

// acquire claims one link qubit on server s on behalf of gate vertex v.
func (lm *linkManager) acquire(s, v int) error {
	if bound := lm.net.EbitMemory(s); bound >= 0 && lm.occupied[s] >= bound {
		return &ConstraintError{Server: s, GateVertex: v}
	}
	lm.occupied[s]++
	if lm.occupied[s] > lm.peak[s] {
		lm.peak[s] = lm.occupied[s]
	}
	return nil
}

// release frees one link qubit on server s.
func (lm *linkManager) release(s int) {
	if lm.occupied[s] == 0 {
		panic(fmt.Sprintf("distribution: releasing unoccupied link on server %d", s))
	}
	lm.occupied[s]--
}
