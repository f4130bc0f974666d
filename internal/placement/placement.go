package placement

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strconv"

	"github.com/vk/qcdist/internal/circuit"
	"github.com/vk/qcdist/internal/qnet"
)

// ErrInvalidPlacement is returned when a placement fails coverage or
// capacity validation against a circuit and network.
var ErrInvalidPlacement = errors.New("invalid placement")

// Placement is a total mapping from hypergraph vertex to server id.
type Placement struct {
	vertexToServer map[int]int
}

// New wraps a vertex to server mapping. The map is copied.
func New(vertexToServer map[int]int) *Placement {
	return &Placement{vertexToServer: maps.Clone(vertexToServer)}
}

// Server returns the server v is placed on.
func (p *Placement) Server(v int) (int, bool) {
	s, ok := p.vertexToServer[v]
	return s, ok
}

// ServerOf returns the server v is placed on, panicking if v is unplaced.
// Use it only after the placement has been validated.
func (p *Placement) ServerOf(v int) int {
	s, ok := p.vertexToServer[v]
	if !ok {
		panic(fmt.Sprintf("placement: vertex %d is not placed", v))
	}
	return s
}

// Move reassigns v to server s.
func (p *Placement) Move(v, s int) {
	p.vertexToServer[v] = s
}

// Len returns the number of placed vertices.
func (p *Placement) Len() int {
	return len(p.vertexToServer)
}

// Mapping returns the underlying vertex to server map. Callers must not
// mutate it; use Move.
func (p *Placement) Mapping() map[int]int {
	return p.vertexToServer
}

// Clone returns an independent copy.
func (p *Placement) Clone() *Placement {
	return New(p.vertexToServer)
}

// Validate checks the placement against a circuit and network: every vertex
// placed on a declared server, nothing extra placed, and no server holding
// more qubit vertices than it has slots.
func (p *Placement) Validate(hc *circuit.HypergraphCircuit, net *qnet.ServerNetwork) error {
	if !hc.IsPlacement(p.vertexToServer) {
		return fmt.Errorf("placement does not cover the vertex set exactly: %w", ErrInvalidPlacement)
	}
	used := make(map[int]int)
	for _, q := range hc.QubitVertices() {
		used[p.vertexToServer[q]]++
	}
	for v, s := range p.vertexToServer {
		if !net.HasServer(s) {
			return fmt.Errorf("vertex %d placed on unknown server %d: %w", v, s, ErrInvalidPlacement)
		}
	}
	for s, count := range used {
		if cap := net.QubitCapacity(s); count > cap {
			return fmt.Errorf("server %d holds %d qubits with capacity %d: %w", s, count, cap, ErrInvalidPlacement)
		}
	}
	return nil
}

// IsValid reports whether Validate succeeds.
func (p *Placement) IsValid(hc *circuit.HypergraphCircuit, net *qnet.ServerNetwork) bool {
	return p.Validate(hc, net) == nil
}

type placementJSON struct {
	Placement map[string]int `json:"placement"`
}

// MarshalJSON serializes the vertex to server mapping with string keys.
func (p *Placement) MarshalJSON() ([]byte, error) {
	out := placementJSON{Placement: make(map[string]int, len(p.vertexToServer))}
	for v, s := range p.vertexToServer {
		out.Placement[strconv.Itoa(v)] = s
	}
	return json.Marshal(out)
}

// UnmarshalJSON rebuilds the mapping.
func (p *Placement) UnmarshalJSON(data []byte) error {
	var in placementJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	p.vertexToServer = make(map[int]int, len(in.Placement))
	for key, s := range in.Placement {
		v, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("bad vertex id %q: %w", key, err)
		}
		p.vertexToServer[v] = s
	}
	return nil
}
