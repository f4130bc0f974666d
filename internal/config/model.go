package config

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Network kinds understood by the generators, plus "custom" for explicit
// topologies.
const (
	NetworkAllToAll   = "all_to_all"
	NetworkRandom     = "random"
	NetworkScaleFree  = "scale_free"
	NetworkSmallWorld = "small_world"
	NetworkCustom     = "custom"
)

// Model is the unified representation of the entire job configuration.
type Model struct {
	Network   *Network
	Circuit   *Circuit
	Workflows []*Workflow
	Solver    *Solver
}

// Network describes the server topology to distribute over. Generated kinds
// use the scalar knobs; custom topologies list hosts and links explicitly.
type Network struct {
	Kind            string
	Servers         int
	QubitsPerServer int
	Seed            int64

	EdgeProb   float64 // random
	Attach     int     // scale_free: links per new server
	Ring       int     // small_world: ring neighbours per side
	RewireProb float64 // small_world

	Hosts []*Host
	Links []Link
}

// Host is one server of a custom topology.
type Host struct {
	ID         int
	Qubits     int
	EbitMemory int // negative means unbounded
}

// Link is an undirected connection of a custom topology.
type Link struct {
	A int
	B int
}

// Circuit names the circuit input, a JSON command list.
type Circuit struct {
	Path string
}

// Workflow selects one distribution strategy. Zero-valued knobs fall back
// to strategy defaults; Options carries strategy-specific extras the loader
// could not map to a concrete field.
type Workflow struct {
	Strategy   string
	Seed       int64
	Iterations int
	Rounds     int
	Options    map[string]cty.Value
}

// OptionInt reads an integer option, reporting whether it was set.
func (w *Workflow) OptionInt(name string) (int, bool, error) {
	val, ok := w.Options[name]
	if !ok {
		return 0, false, nil
	}
	converted, err := convert.Convert(val, cty.Number)
	if err != nil {
		return 0, false, fmt.Errorf("option %q: %w", name, err)
	}
	var out int
	if err := gocty.FromCtyValue(converted, &out); err != nil {
		return 0, false, fmt.Errorf("option %q: %w", name, err)
	}
	return out, true, nil
}

// OptionString reads a string option, reporting whether it was set.
func (w *Workflow) OptionString(name string) (string, bool, error) {
	val, ok := w.Options[name]
	if !ok {
		return "", false, nil
	}
	converted, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", false, fmt.Errorf("option %q: %w", name, err)
	}
	var out string
	if err := gocty.FromCtyValue(converted, &out); err != nil {
		return "", false, fmt.Errorf("option %q: %w", name, err)
	}
	return out, true, nil
}

// Solver points at an external hypergraph partitioning service.
type Solver struct {
	URL            string
	TimeoutSeconds int
}

// Validate checks the structural integrity of the model: the parts a loader
// cannot judge file by file.
func (m *Model) Validate() error {
	if m.Network == nil {
		return fmt.Errorf("configuration defines no network")
	}
	if err := m.Network.validate(); err != nil {
		return err
	}
	if m.Circuit == nil || m.Circuit.Path == "" {
		return fmt.Errorf("configuration defines no circuit source")
	}
	if len(m.Workflows) == 0 {
		return fmt.Errorf("configuration defines no workflows")
	}
	for _, w := range m.Workflows {
		if w.Strategy == "" {
			return fmt.Errorf("workflow without a strategy")
		}
	}
	return nil
}

func (n *Network) validate() error {
	switch n.Kind {
	case NetworkAllToAll, NetworkRandom, NetworkScaleFree, NetworkSmallWorld:
		if n.Servers <= 0 {
			return fmt.Errorf("network %q needs a positive server count", n.Kind)
		}
		if n.QubitsPerServer <= 0 {
			return fmt.Errorf("network %q needs a positive qubits_per_server", n.Kind)
		}
	case NetworkCustom:
		if len(n.Hosts) == 0 {
			return fmt.Errorf("custom network declares no hosts")
		}
	default:
		return fmt.Errorf("unknown network kind %q", n.Kind)
	}
	return nil
}
