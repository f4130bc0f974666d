package distributor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/vk/qcdist/internal/circuit"
	"github.com/vk/qcdist/internal/ctxlog"
	"github.com/vk/qcdist/internal/distribution"
	"github.com/vk/qcdist/internal/qnet"
)

// Concurrent races its distributors over a worker pool and returns the
// cheapest valid result. Each distributor works on its own copy of the
// hypergraph circuit, so destructive refinement in one candidate never
// leaks into another. Ties go to the earliest distributor in the list.
type Concurrent struct {
	Distributors []Distributor
	Workers      int
}

// NewConcurrent returns a concurrent distributor with the given pool size.
// A non-positive pool size runs one worker per distributor.
func NewConcurrent(workers int, distributors ...Distributor) *Concurrent {
	return &Concurrent{Distributors: distributors, Workers: workers}
}

type candidateResult struct {
	d    *distribution.Distribution
	cost int
	err  error
}

// Distribute implements the Distributor interface.
func (c *Concurrent) Distribute(ctx context.Context, hc *circuit.HypergraphCircuit, net *qnet.ServerNetwork) (*distribution.Distribution, error) {
	if len(c.Distributors) == 0 {
		return nil, errors.New("concurrent distributor has no candidates")
	}
	logger := ctxlog.FromContext(ctx)

	workers := c.Workers
	if workers <= 0 || workers > len(c.Distributors) {
		workers = len(c.Distributors)
	}

	jobs := make(chan int)
	results := make([]candidateResult, len(c.Distributors))
	var wg sync.WaitGroup

	for workerID := 0; workerID < workers; workerID++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			workerLogger := logger.With("workerID", workerID)
			workerLogger.Debug("Worker started.")
			for i := range jobs {
				results[i] = c.runCandidate(ctx, c.Distributors[i], hc, net)
			}
			workerLogger.Debug("Worker finished.")
		}(workerID)
	}

	for i := range c.Distributors {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	best := -1
	var errs []error
	for i, res := range results {
		if res.err != nil {
			errs = append(errs, res.err)
			continue
		}
		if best == -1 || res.cost < results[best].cost {
			best = i
		}
	}
	if best == -1 {
		return nil, fmt.Errorf("every candidate failed: %w", errors.Join(errs...))
	}
	logger.Debug("Best candidate selected.", "candidate", best, "cost", results[best].cost)
	return results[best].d, nil
}

func (c *Concurrent) runCandidate(ctx context.Context, dist Distributor, hc *circuit.HypergraphCircuit, net *qnet.ServerNetwork) candidateResult {
	if err := ctx.Err(); err != nil {
		return candidateResult{err: err}
	}
	own, err := cloneHypergraphCircuit(hc)
	if err != nil {
		return candidateResult{err: err}
	}
	d, err := dist.Distribute(ctx, own, net)
	if err != nil {
		return candidateResult{err: err}
	}
	cost, err := d.Cost()
	if err != nil {
		return candidateResult{err: err}
	}
	return candidateResult{d: d, cost: cost}
}

// cloneHypergraphCircuit deep-copies a circuit together with its current
// hyperedge structure through its JSON form.
func cloneHypergraphCircuit(hc *circuit.HypergraphCircuit) (*circuit.HypergraphCircuit, error) {
	data, err := json.Marshal(hc)
	if err != nil {
		return nil, err
	}
	var out circuit.HypergraphCircuit
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
