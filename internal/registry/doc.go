// Package registry provides the glue between workflow configuration and
// compiled distribution strategies.
//
// The Registry maps the strategy identifiers used in configuration files
// (e.g. "annealing") to factory functions that build the corresponding
// distributor from a workflow block. During application startup the
// registry is populated with the built-in strategies and then validated
// against the loaded model, so an unknown or misconfigured strategy fails
// before any work starts.
package registry
