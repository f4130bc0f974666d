package app

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"

	"github.com/vk/qcdist/internal/circuit"
	"github.com/vk/qcdist/internal/config"
	"github.com/vk/qcdist/internal/qnet"
)

// buildNetwork turns the network configuration into a concrete server
// network, running the matching generator for synthetic kinds.
func buildNetwork(cfg *config.Network) (*qnet.ServerNetwork, error) {
	switch cfg.Kind {
	case config.NetworkAllToAll:
		return qnet.AllToAll(cfg.Servers, cfg.QubitsPerServer), nil
	case config.NetworkRandom:
		edgeProb := cfg.EdgeProb
		if edgeProb <= 0 {
			edgeProb = 0.5
		}
		return qnet.RandomConnected(rand.New(rand.NewSource(cfg.Seed)), cfg.Servers, cfg.QubitsPerServer, edgeProb), nil
	case config.NetworkScaleFree:
		attach := cfg.Attach
		if attach <= 0 {
			attach = 2
		}
		return qnet.ScaleFree(rand.New(rand.NewSource(cfg.Seed)), cfg.Servers, cfg.QubitsPerServer, attach), nil
	case config.NetworkSmallWorld:
		ring := cfg.Ring
		if ring <= 0 {
			ring = 2
		}
		return qnet.SmallWorld(rand.New(rand.NewSource(cfg.Seed)), cfg.Servers, cfg.QubitsPerServer, ring, cfg.RewireProb), nil
	case config.NetworkCustom:
		return buildCustomNetwork(cfg)
	}
	return nil, fmt.Errorf("unknown network kind %q", cfg.Kind)
}

func buildCustomNetwork(cfg *config.Network) (*qnet.ServerNetwork, error) {
	serverQubits := make(map[int][]int, len(cfg.Hosts))
	ebitMem := make(map[int]int)
	next := 0
	for _, host := range cfg.Hosts {
		slots := make([]int, host.Qubits)
		for i := range slots {
			slots[i] = next
			next++
		}
		serverQubits[host.ID] = slots
		if host.EbitMemory >= 0 {
			ebitMem[host.ID] = host.EbitMemory
		}
	}
	links := make([]qnet.Link, 0, len(cfg.Links))
	for _, l := range cfg.Links {
		links = append(links, qnet.Link{A: l.A, B: l.B})
	}
	if len(ebitMem) == 0 {
		return qnet.NewServerNetwork(links, serverQubits)
	}
	return qnet.NewNISQNetwork(links, serverQubits, ebitMem)
}

// loadCircuit reads a serialized command list and builds its hypergraph
// view.
func loadCircuit(path string) (*circuit.HypergraphCircuit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading circuit: %w", err)
	}
	var circ circuit.Circuit
	if err := json.Unmarshal(data, &circ); err != nil {
		return nil, fmt.Errorf("parsing circuit %s: %w", path, err)
	}
	return circuit.NewHypergraphCircuit(&circ)
}
