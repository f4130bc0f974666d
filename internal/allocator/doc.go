// Package allocator holds the strategies that produce an initial
// distribution of a circuit onto a network: greedy, random, exhaustive,
// simulated annealing, external partitioning, and routing-aware variants.
package allocator
