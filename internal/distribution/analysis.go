package distribution

// EbitCost returns the number of ebits an emitted circuit consumes: one per
// start process.
func EbitCost(ec *EmittedCircuit) int {
	count := 0
	for _, cmd := range ec.Commands {
		if cmd.Kind == KindStart {
			count++
		}
	}
	return count
}

// EbitMemoryRequired scans an emitted circuit and returns, per server, the
// maximum number of link qubits alive at once: the ebit memory the circuit
// needs on that server.
func EbitMemoryRequired(ec *EmittedCircuit) map[int]int {
	current := make(map[int]int)
	peak := make(map[int]int)
	for _, cmd := range ec.Commands {
		switch cmd.Kind {
		case KindStart:
			current[cmd.To]++
			if current[cmd.To] > peak[cmd.To] {
				peak[cmd.To] = current[cmd.To]
			}
		case KindEnd:
			current[cmd.To]--
		}
	}
	return peak
}

// AllGatesLocal reports whether every two-qubit gate of an emitted circuit
// acts on qubits resident on a single server, counting link copies as
// resident. A correctly lowered circuit always satisfies this.
func AllGatesLocal(ec *EmittedCircuit) bool {
	for _, cmd := range ec.Commands {
		if cmd.Kind != KindGate || len(cmd.Qubits) < 2 {
			continue
		}
		server := cmd.Qubits[0].Server
		for _, q := range cmd.Qubits[1:] {
			if q.Server != server {
				return false
			}
		}
	}
	return true
}
