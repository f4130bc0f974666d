// Package solver is the boundary to the external min-k-cut hypergraph
// partitioner. The engine ships the hypergraph in compressed sparse row
// form and receives a per-vertex block assignment back.
package solver
