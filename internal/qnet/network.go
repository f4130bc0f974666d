package qnet

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInfeasibleNetwork is returned when no valid placement can exist on the
// network: not enough total capacity, unreachable servers for a hyperedge,
// or an external solver reporting the constraints unsatisfiable.
var ErrInfeasibleNetwork = errors.New("infeasible network")

// Link is an undirected server-to-server connection.
type Link struct {
	A int `json:"a"`
	B int `json:"b"`
}

// ServerNetwork is an undirected graph of servers, each with a fixed list of
// local qubit slots. Optionally each server carries an ebit memory bound:
// the maximum number of link qubits it can hold at once (-1 = unbounded).
// The network is immutable after construction.
type ServerNetwork struct {
	coupling     []Link
	serverQubits map[int][]int
	ebitMem      map[int]int

	servers []int
	adj     map[int][]int
	dist    map[int]map[int]int
}

// NewServerNetwork builds a network from a coupling list and a server to
// qubit-slot mapping. Every linked server must be declared in serverQubits;
// self-loops are rejected. Disconnected networks are allowed: they only make
// some placements infeasible, which surfaces during cost evaluation.
func NewServerNetwork(coupling []Link, serverQubits map[int][]int) (*ServerNetwork, error) {
	return NewNISQNetwork(coupling, serverQubits, nil)
}

// NewNISQNetwork builds a network with per-server ebit memory bounds. A
// missing entry or a negative bound means unbounded.
func NewNISQNetwork(coupling []Link, serverQubits map[int][]int, ebitMem map[int]int) (*ServerNetwork, error) {
	n := &ServerNetwork{
		coupling:     slices.Clone(coupling),
		serverQubits: make(map[int][]int, len(serverQubits)),
		adj:          make(map[int][]int),
	}
	for s, qs := range serverQubits {
		n.serverQubits[s] = slices.Clone(qs)
		n.servers = append(n.servers, s)
	}
	slices.Sort(n.servers)

	for _, l := range n.coupling {
		if l.A == l.B {
			return nil, fmt.Errorf("self-loop on server %d", l.A)
		}
		if _, ok := n.serverQubits[l.A]; !ok {
			return nil, fmt.Errorf("link references undeclared server %d", l.A)
		}
		if _, ok := n.serverQubits[l.B]; !ok {
			return nil, fmt.Errorf("link references undeclared server %d", l.B)
		}
		n.adj[l.A] = append(n.adj[l.A], l.B)
		n.adj[l.B] = append(n.adj[l.B], l.A)
	}
	for s := range n.adj {
		slices.Sort(n.adj[s])
		n.adj[s] = slices.Compact(n.adj[s])
	}

	if ebitMem != nil {
		n.ebitMem = make(map[int]int, len(ebitMem))
		for s, m := range ebitMem {
			if _, ok := n.serverQubits[s]; !ok {
				return nil, fmt.Errorf("ebit memory declared for unknown server %d", s)
			}
			n.ebitMem[s] = m
		}
	}

	n.buildDistances()
	return n, nil
}

// Servers returns the server ids in ascending order.
func (n *ServerNetwork) Servers() []int {
	return n.servers
}

// HasServer reports whether s is declared.
func (n *ServerNetwork) HasServer(s int) bool {
	_, ok := n.serverQubits[s]
	return ok
}

// Coupling returns the link list as constructed.
func (n *ServerNetwork) Coupling() []Link {
	return n.coupling
}

// QubitCapacity returns the number of qubit slots on server s.
func (n *ServerNetwork) QubitCapacity(s int) int {
	return len(n.serverQubits[s])
}

// Qubits returns the qubit slot ids hosted by server s.
func (n *ServerNetwork) Qubits(s int) []int {
	return n.serverQubits[s]
}

// TotalCapacity returns the total number of qubit slots across all servers.
func (n *ServerNetwork) TotalCapacity() int {
	total := 0
	for _, qs := range n.serverQubits {
		total += len(qs)
	}
	return total
}

// EbitMemory returns the link-qubit bound of server s, -1 if unbounded.
func (n *ServerNetwork) EbitMemory(s int) int {
	if n.ebitMem == nil {
		return -1
	}
	m, ok := n.ebitMem[s]
	if !ok || m < 0 {
		return -1
	}
	return m
}

// CanPlace reports whether the network has enough qubit slots for nQubits.
func (n *ServerNetwork) CanPlace(nQubits int) bool {
	return nQubits <= n.TotalCapacity()
}

// AdjacencyList returns a copy of the server adjacency lists.
func (n *ServerNetwork) AdjacencyList() map[int][]int {
	out := make(map[int][]int, len(n.servers))
	for _, s := range n.servers {
		out[s] = slices.Clone(n.adj[s])
	}
	return out
}

// Adjacent reports whether servers a and b share a link.
func (n *ServerNetwork) Adjacent(a, b int) bool {
	_, found := slices.BinarySearch(n.adj[a], b)
	return found
}

// Neighbours returns the sorted neighbours of server s.
func (n *ServerNetwork) Neighbours(s int) []int {
	return n.adj[s]
}

// IsConnected reports whether every server can reach every other.
func (n *ServerNetwork) IsConnected() bool {
	if len(n.servers) == 0 {
		return true
	}
	root := n.servers[0]
	return len(n.dist[root]) == len(n.servers)
}

// FullyConnected reports whether every pair of servers shares a direct link.
func (n *ServerNetwork) FullyConnected() bool {
	for i, a := range n.servers {
		for _, b := range n.servers[i+1:] {
			if !n.Adjacent(a, b) {
				return false
			}
		}
	}
	return true
}

// String renders the network in a graphviz-style form, one server per line
// with its capacity, followed by the links.
func (n *ServerNetwork) String() string {
	var b strings.Builder
	b.WriteString("graph network {\n")
	for _, s := range n.servers {
		fmt.Fprintf(&b, "  %d [qubits=%d]\n", s, len(n.serverQubits[s]))
	}
	for _, l := range n.coupling {
		fmt.Fprintf(&b, "  %d -- %d\n", l.A, l.B)
	}
	b.WriteString("}")
	return b.String()
}

// Distance returns the hop count of the shortest path between a and b, and
// false if b is unreachable from a.
func (n *ServerNetwork) Distance(a, b int) (int, bool) {
	d, ok := n.dist[a][b]
	return d, ok
}

// buildDistances computes the all-pairs shortest-path table by BFS from each
// server. Networks are small, so the quadratic table is cheap and makes
// Steiner evaluation deterministic.
func (n *ServerNetwork) buildDistances() {
	n.dist = make(map[int]map[int]int, len(n.servers))
	for _, s := range n.servers {
		n.dist[s] = n.bfs(s)
	}
}

func (n *ServerNetwork) bfs(root int) map[int]int {
	dist := map[int]int{root: 0}
	queue := []int{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range n.adj[cur] {
			if _, seen := dist[next]; !seen {
				dist[next] = dist[cur] + 1
				queue = append(queue, next)
			}
		}
	}
	return dist
}
