package circuit

import (
	"encoding/json"

	"github.com/vk/qcdist/internal/hypergraph"
)

type commandJSON struct {
	Op     string  `json:"op"`
	Phase  float64 `json:"phase,omitempty"`
	Qubits []int   `json:"qubits"`
}

type circuitJSON struct {
	NQubits  int           `json:"n_qubits"`
	Commands []commandJSON `json:"commands"`
}

// MarshalJSON serializes the circuit as an ordered command list.
func (c *Circuit) MarshalJSON() ([]byte, error) {
	out := circuitJSON{NQubits: c.NQubits, Commands: make([]commandJSON, 0, len(c.Commands))}
	for _, cmd := range c.Commands {
		out.Commands = append(out.Commands, commandJSON{
			Op:     cmd.Op.String(),
			Phase:  cmd.Phase,
			Qubits: cmd.Qubits,
		})
	}
	return json.Marshal(out)
}

// UnmarshalJSON rebuilds the circuit from its serialized form.
func (c *Circuit) UnmarshalJSON(data []byte) error {
	var in circuitJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	out := New(in.NQubits)
	for _, cmd := range in.Commands {
		op, err := opFromString(cmd.Op)
		if err != nil {
			return err
		}
		out.Commands = append(out.Commands, Command{Op: op, Phase: cmd.Phase, Qubits: cmd.Qubits})
	}
	*c = *out
	return nil
}

type hypergraphCircuitJSON struct {
	Circuit    *Circuit               `json:"circuit"`
	Hypergraph *hypergraph.Hypergraph `json:"hypergraph"`
}

// MarshalJSON serializes the circuit together with the current hyperedge
// structure, which refiners may have restructured away from the freshly
// built form.
func (hc *HypergraphCircuit) MarshalJSON() ([]byte, error) {
	return json.Marshal(hypergraphCircuitJSON{Circuit: hc.circ, Hypergraph: hc.Hypergraph})
}

// UnmarshalJSON rebuilds the circuit view, then restores the serialized
// hyperedge structure over it.
func (hc *HypergraphCircuit) UnmarshalJSON(data []byte) error {
	var in hypergraphCircuitJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	built, err := NewHypergraphCircuit(in.Circuit)
	if err != nil {
		return err
	}
	if in.Hypergraph != nil {
		built.Hypergraph = in.Hypergraph
	}
	*hc = *built
	return nil
}
