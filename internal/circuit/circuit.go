package circuit

import "fmt"

// Op identifies a gate type in the restricted vocabulary: one two-qubit
// interaction gate, one single-qubit phase rotation, and one single-qubit
// basis change. Arbitrary input circuits are rebased into this vocabulary
// before they reach the engine.
type Op int

const (
	// OpH is the single-qubit basis-change gate. It breaks hyperedges on
	// the qubit it acts on.
	OpH Op = iota
	// OpRz is the single-qubit phase rotation. Diagonal, so it never
	// breaks a hyperedge.
	OpRz
	// OpCRz is the two-qubit controlled phase interaction gate.
	OpCRz
)

// String returns the gate name used in serialized circuits.
func (op Op) String() string {
	switch op {
	case OpH:
		return "H"
	case OpRz:
		return "Rz"
	case OpCRz:
		return "CRz"
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

func opFromString(s string) (Op, error) {
	switch s {
	case "H":
		return OpH, nil
	case "Rz":
		return OpRz, nil
	case "CRz":
		return OpCRz, nil
	}
	return 0, fmt.Errorf("unknown op %q", s)
}

// Command is one gate application. Phase is in half-turns, following the
// usual convention for phase gates. Qubits holds one index for single-qubit
// gates and two for OpCRz.
type Command struct {
	Op     Op
	Phase  float64
	Qubits []int
}

// Circuit is an ordered command list over a fixed qubit register.
type Circuit struct {
	NQubits  int
	Commands []Command
}

// New returns an empty circuit over n qubits.
func New(n int) *Circuit {
	return &Circuit{NQubits: n}
}

func (c *Circuit) checkQubit(q int) {
	if q < 0 || q >= c.NQubits {
		panic(fmt.Sprintf("circuit: qubit %d out of range [0,%d)", q, c.NQubits))
	}
}

// H appends a basis-change gate on q. Returns the circuit for chaining.
func (c *Circuit) H(q int) *Circuit {
	c.checkQubit(q)
	c.Commands = append(c.Commands, Command{Op: OpH, Qubits: []int{q}})
	return c
}

// Rz appends a phase rotation on q.
func (c *Circuit) Rz(phase float64, q int) *Circuit {
	c.checkQubit(q)
	c.Commands = append(c.Commands, Command{Op: OpRz, Phase: phase, Qubits: []int{q}})
	return c
}

// CRz appends a controlled phase gate between q0 and q1.
func (c *Circuit) CRz(phase float64, q0, q1 int) *Circuit {
	c.checkQubit(q0)
	c.checkQubit(q1)
	if q0 == q1 {
		panic(fmt.Sprintf("circuit: CRz on a single qubit %d", q0))
	}
	c.Commands = append(c.Commands, Command{Op: OpCRz, Phase: phase, Qubits: []int{q0, q1}})
	return c
}

// TwoQubitGateCount returns the number of OpCRz commands.
func (c *Circuit) TwoQubitGateCount() int {
	n := 0
	for _, cmd := range c.Commands {
		if cmd.Op == OpCRz {
			n++
		}
	}
	return n
}
