package qnet

import (
	"fmt"
	"math/rand"
)

// evenServerQubits spreads qubit ids 0..nServers*qubitsPerServer-1 across
// the servers in blocks.
func evenServerQubits(nServers, qubitsPerServer int) map[int][]int {
	out := make(map[int][]int, nServers)
	q := 0
	for s := 0; s < nServers; s++ {
		for i := 0; i < qubitsPerServer; i++ {
			out[s] = append(out[s], q)
			q++
		}
	}
	return out
}

// AllToAll returns a fully connected network of nServers servers, each with
// qubitsPerServer qubit slots.
func AllToAll(nServers, qubitsPerServer int) *ServerNetwork {
	var coupling []Link
	for a := 0; a < nServers; a++ {
		for b := a + 1; b < nServers; b++ {
			coupling = append(coupling, Link{A: a, B: b})
		}
	}
	n, err := NewServerNetwork(coupling, evenServerQubits(nServers, qubitsPerServer))
	if err != nil {
		panic(fmt.Sprintf("qnet: all-to-all construction failed: %v", err))
	}
	return n
}

// RandomConnected returns a connected random network: a random spanning tree
// plus each extra link with probability edgeProb.
func RandomConnected(rng *rand.Rand, nServers, qubitsPerServer int, edgeProb float64) *ServerNetwork {
	var coupling []Link
	present := make(map[Link]bool)
	add := func(a, b int) {
		if a > b {
			a, b = b, a
		}
		l := Link{A: a, B: b}
		if !present[l] {
			present[l] = true
			coupling = append(coupling, l)
		}
	}

	// Random spanning tree: attach each server to a random earlier one.
	for s := 1; s < nServers; s++ {
		add(rng.Intn(s), s)
	}
	for a := 0; a < nServers; a++ {
		for b := a + 1; b < nServers; b++ {
			if rng.Float64() < edgeProb {
				add(a, b)
			}
		}
	}

	n, err := NewServerNetwork(coupling, evenServerQubits(nServers, qubitsPerServer))
	if err != nil {
		panic(fmt.Sprintf("qnet: random network construction failed: %v", err))
	}
	return n
}

// ScaleFree returns a Barabasi-Albert style network: servers join one at a
// time and attach m links preferentially to well-connected servers.
func ScaleFree(rng *rand.Rand, nServers, qubitsPerServer, m int) *ServerNetwork {
	if m < 1 {
		m = 1
	}
	var coupling []Link
	present := make(map[Link]bool)
	// Repeated endpoints of existing links; sampling from this list is the
	// preferential attachment.
	var endpoints []int

	add := func(a, b int) bool {
		if a > b {
			a, b = b, a
		}
		l := Link{A: a, B: b}
		if a == b || present[l] {
			return false
		}
		present[l] = true
		coupling = append(coupling, l)
		endpoints = append(endpoints, a, b)
		return true
	}

	for s := 1; s < nServers; s++ {
		links := min(m, s)
		for added := 0; added < links; {
			var target int
			if len(endpoints) == 0 {
				target = rng.Intn(s)
			} else {
				target = endpoints[rng.Intn(len(endpoints))]
			}
			if add(target, s) {
				added++
			}
		}
	}

	n, err := NewServerNetwork(coupling, evenServerQubits(nServers, qubitsPerServer))
	if err != nil {
		panic(fmt.Sprintf("qnet: scale-free construction failed: %v", err))
	}
	return n
}

// SmallWorld returns a Watts-Strogatz style network: a ring lattice where
// each server links to its k nearest neighbours, with each link rewired to a
// random server with probability rewireProb.
func SmallWorld(rng *rand.Rand, nServers, qubitsPerServer, k int, rewireProb float64) *ServerNetwork {
	if k < 2 {
		k = 2
	}
	present := make(map[Link]bool)
	norm := func(a, b int) Link {
		if a > b {
			a, b = b, a
		}
		return Link{A: a, B: b}
	}

	for s := 0; s < nServers; s++ {
		for i := 1; i <= k/2; i++ {
			present[norm(s, (s+i)%nServers)] = true
		}
	}
	var coupling []Link
	for s := 0; s < nServers; s++ {
		for i := 1; i <= k/2; i++ {
			l := norm(s, (s+i)%nServers)
			if !present[l] {
				continue
			}
			delete(present, l)
			if rng.Float64() < rewireProb {
				for tries := 0; tries < nServers; tries++ {
					t := rng.Intn(nServers)
					r := norm(s, t)
					if s != t && !present[r] && !contains(coupling, r) {
						l = r
						break
					}
				}
			}
			coupling = append(coupling, l)
		}
	}

	n, err := NewServerNetwork(coupling, evenServerQubits(nServers, qubitsPerServer))
	if err != nil {
		panic(fmt.Sprintf("qnet: small-world construction failed: %v", err))
	}
	return n
}

func contains(links []Link, l Link) bool {
	for _, x := range links {
		if x == l {
			return true
		}
	}
	return false
}
