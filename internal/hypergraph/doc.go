// Package hypergraph implements the general-purpose hypergraph structure the
// distribution engine is built on: integer vertices grouped into weighted
// hyperedges, with the merge/split/remove operations refiners need.
package hypergraph
