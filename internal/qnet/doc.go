// Package qnet models the network of compute servers a circuit is
// distributed over: coupling topology, per-server qubit capacity, optional
// per-server ebit memory bounds, and the shortest-path and Steiner-tree
// queries cost evaluation is built on.
package qnet
