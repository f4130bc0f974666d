// Package distribution composes a hypergraph circuit, a placement, and a
// server network; it evaluates the Steiner-tree communication cost of the
// placement and lowers it into an executable circuit with explicit
// entanglement sharing operations.
package distribution
