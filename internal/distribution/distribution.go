package distribution

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/vk/qcdist/internal/circuit"
	"github.com/vk/qcdist/internal/hypergraph"
	"github.com/vk/qcdist/internal/placement"
	"github.com/vk/qcdist/internal/qnet"
)

// Distribution owns a placement of a hypergraph circuit onto a network.
// The circuit's command list and the network are read-only; the placement
// and the hyperedge structure mutate under refinement. A Distribution must
// not be shared across concurrent searches.
type Distribution struct {
	circ  *circuit.HypergraphCircuit
	place *placement.Placement
	net   *qnet.ServerNetwork
}

// New validates the placement and wraps the three parts into a
// Distribution. It fails with placement.ErrInvalidPlacement rather than
// producing a distribution whose cost would be undefined.
func New(hc *circuit.HypergraphCircuit, p *placement.Placement, net *qnet.ServerNetwork) (*Distribution, error) {
	if err := p.Validate(hc, net); err != nil {
		return nil, err
	}
	return &Distribution{circ: hc, place: p, net: net}, nil
}

// Circuit returns the hypergraph circuit.
func (d *Distribution) Circuit() *circuit.HypergraphCircuit {
	return d.circ
}

// Placement returns the mutable placement.
func (d *Distribution) Placement() *placement.Placement {
	return d.place
}

// Network returns the server network.
func (d *Distribution) Network() *qnet.ServerNetwork {
	return d.net
}

// IsValid re-checks the placement invariants.
func (d *Distribution) IsValid() bool {
	return d.place.IsValid(d.circ, d.net)
}

// HyperedgeServers returns the sorted distinct servers the hyperedge's
// vertices are placed on.
func (d *Distribution) HyperedgeServers(e *hypergraph.Hyperedge) []int {
	out := make([]int, 0, len(e.Vertices))
	for _, v := range e.Vertices {
		out = append(out, d.place.ServerOf(v))
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// HyperedgeCost returns the Steiner-tree edge count connecting the servers
// the hyperedge touches, weighted by the hyperedge weight.
func (d *Distribution) HyperedgeCost(e *hypergraph.Hyperedge) (int, error) {
	servers := d.HyperedgeServers(e)
	if len(servers) <= 1 {
		return 0, nil
	}
	cost, err := d.net.SteinerCost(servers)
	if err != nil {
		return 0, err
	}
	return cost * e.Weight, nil
}

// Cost returns the total communication cost of the distribution: the sum of
// per-hyperedge Steiner-tree costs. It fails when a hyperedge spans servers
// the network cannot connect.
func (d *Distribution) Cost() (int, error) {
	total := 0
	for _, e := range d.circ.Hyperedges() {
		c, err := d.HyperedgeCost(e)
		if err != nil {
			return 0, fmt.Errorf("hyperedge %v: %w", e.Vertices, err)
		}
		total += c
	}
	return total, nil
}

// NonLocalGateCount returns the number of gate vertices placed on a
// different server from at least one of their qubits.
func (d *Distribution) NonLocalGateCount() int {
	count := 0
	for _, v := range d.circ.GateVertices() {
		q0, q1, err := d.circ.GateQubits(v)
		if err != nil {
			continue
		}
		sv := d.place.ServerOf(v)
		if sv != d.place.ServerOf(q0) || sv != d.place.ServerOf(q1) {
			count++
		}
	}
	return count
}

// DetachedGateCount returns the number of gate vertices placed on a server
// holding neither of their qubits; such gates run entirely on link qubits.
func (d *Distribution) DetachedGateCount() int {
	count := 0
	for _, v := range d.circ.GateVertices() {
		q0, q1, err := d.circ.GateQubits(v)
		if err != nil {
			continue
		}
		sv := d.place.ServerOf(v)
		if sv != d.place.ServerOf(q0) && sv != d.place.ServerOf(q1) {
			count++
		}
	}
	return count
}

// NonLocalHyperedgeCount returns the number of hyperedges spanning more
// than one server.
func (d *Distribution) NonLocalHyperedgeCount() int {
	count := 0
	for _, e := range d.circ.Hyperedges() {
		if len(d.HyperedgeServers(e)) > 1 {
			count++
		}
	}
	return count
}

type distributionJSON struct {
	Circuit   *circuit.HypergraphCircuit `json:"circuit"`
	Network   *qnet.ServerNetwork        `json:"network"`
	Placement *placement.Placement       `json:"placement"`
}

// MarshalJSON serializes the circuit, network, and placement together.
func (d *Distribution) MarshalJSON() ([]byte, error) {
	return json.Marshal(distributionJSON{Circuit: d.circ, Network: d.net, Placement: d.place})
}

// UnmarshalJSON rebuilds and revalidates the distribution.
func (d *Distribution) UnmarshalJSON(data []byte) error {
	var in distributionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	built, err := New(in.Circuit, in.Placement, in.Network)
	if err != nil {
		return err
	}
	*d = *built
	return nil
}
