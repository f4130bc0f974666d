// Package refiner holds the local-search strategies that improve an
// existing distribution in place: boundary moves, hyperedge merging, vertex
// cover rebuilding, and the sequence/repeat combinators that compose them.
package refiner
