package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/vk/qcdist/internal/ctxlog"
	"github.com/vk/qcdist/internal/distribution"
	"github.com/vk/qcdist/internal/distributor"
	"github.com/vk/qcdist/internal/placement"
)

// Result is the serialized outcome of one distribution run.
type Result struct {
	Cost          int                          `json:"cost"`
	Ebits         int                          `json:"ebits"`
	NonLocalGates int                          `json:"non_local_gates"`
	Placement     *placement.Placement         `json:"placement"`
	Circuit       *distribution.EmittedCircuit `json:"circuit"`
}

// Run executes the main application logic based on the provided
// configuration: build the network and circuit, race the configured
// workflows, lower the winner to an executable circuit, and write the
// result.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if appConfig.HealthcheckPort > 0 {
		a.startHealthcheckServer(appConfig.HealthcheckPort)
	}

	net, err := buildNetwork(a.model.Network)
	if err != nil {
		return fmt.Errorf("failed to build network: %w", err)
	}
	a.logger.Debug("Network built.", "servers", len(net.Servers()), "capacity", net.TotalCapacity())

	hc, err := loadCircuit(a.model.Circuit.Path)
	if err != nil {
		return fmt.Errorf("failed to load circuit: %w", err)
	}
	a.logger.Debug("Circuit loaded.", "qubits", hc.NQubits(), "gates", len(hc.GateVertices()))

	candidates, err := a.registry.BuildAll(a.model, a.deps)
	if err != nil {
		return fmt.Errorf("failed to build workflows: %w", err)
	}

	a.logger.Info("🚀 Starting distribution...", "workflows", len(candidates), "workers", appConfig.WorkerCount)
	d, err := distributor.NewConcurrent(appConfig.WorkerCount, candidates...).Distribute(ctx, hc, net)
	if err != nil {
		return fmt.Errorf("distribution failed: %w", err)
	}
	cost, err := d.Cost()
	if err != nil {
		return err
	}

	ec, err := d.ToCircuit(appConfig.AllowUpdate)
	if err != nil {
		return fmt.Errorf("failed to lower distribution: %w", err)
	}

	result := &Result{
		Cost:          cost,
		Ebits:         distribution.EbitCost(ec),
		NonLocalGates: d.NonLocalGateCount(),
		Placement:     d.Placement(),
		Circuit:       ec,
	}
	if err := a.writeResult(appConfig.OutPath, result); err != nil {
		return err
	}

	a.logger.Info("🏁 Distribution finished.", "cost", cost, "ebits", result.Ebits)
	a.logger.Debug("App.Run method finished.")
	return nil
}

func (a *App) writeResult(outPath string, result *Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	data = append(data, '\n')

	if outPath == "" {
		_, err := a.outW.Write(data)
		return err
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	a.logger.Debug("Result written.", "path", outPath)
	return nil
}
