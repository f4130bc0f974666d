// Package placement maps hypergraph vertices onto network servers and
// validates the capacity and coverage rules a distribution depends on.
package placement
