// Package config defines the format-agnostic model of a distribution job:
// the target network, the circuit source, the workflow strategies to run,
// and the optional external partitioning solver. Format-specific loaders
// translate their input into this model.
package config
