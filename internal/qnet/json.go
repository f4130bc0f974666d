package qnet

import (
	"encoding/json"
	"fmt"
	"strconv"
)

type networkJSON struct {
	Coupling     []Link           `json:"coupling"`
	ServerQubits map[string][]int `json:"server_qubits"`
	ServerEbit   map[string]int   `json:"server_ebit_mem,omitempty"`
}

// MarshalJSON serializes the coupling list, qubit slots, and ebit bounds.
// Server ids become string keys because JSON objects require them.
func (n *ServerNetwork) MarshalJSON() ([]byte, error) {
	out := networkJSON{
		Coupling:     n.coupling,
		ServerQubits: make(map[string][]int, len(n.serverQubits)),
	}
	if out.Coupling == nil {
		out.Coupling = []Link{}
	}
	for s, qs := range n.serverQubits {
		out.ServerQubits[strconv.Itoa(s)] = qs
	}
	if n.ebitMem != nil {
		out.ServerEbit = make(map[string]int, len(n.ebitMem))
		for s, m := range n.ebitMem {
			out.ServerEbit[strconv.Itoa(s)] = m
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON rebuilds the network, revalidating the topology.
func (n *ServerNetwork) UnmarshalJSON(data []byte) error {
	var in networkJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	serverQubits := make(map[int][]int, len(in.ServerQubits))
	for key, qs := range in.ServerQubits {
		s, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("bad server id %q: %w", key, err)
		}
		serverQubits[s] = qs
	}
	var ebitMem map[int]int
	if in.ServerEbit != nil {
		ebitMem = make(map[int]int, len(in.ServerEbit))
		for key, m := range in.ServerEbit {
			s, err := strconv.Atoi(key)
			if err != nil {
				return fmt.Errorf("bad server id %q: %w", key, err)
			}
			ebitMem[s] = m
		}
	}
	built, err := NewNISQNetwork(in.Coupling, serverQubits, ebitMem)
	if err != nil {
		return err
	}
	*n = *built
	return nil
}
