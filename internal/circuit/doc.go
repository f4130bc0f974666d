// Package circuit holds the restricted gate vocabulary the engine ingests
// and the HypergraphCircuit view that binds circuit commands to hypergraph
// vertices and hyperedges.
package circuit
