package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/qcdist/internal/config"
	"github.com/vk/qcdist/internal/ctxlog"
	"github.com/vk/qcdist/internal/registry"
	"github.com/vk/qcdist/internal/solver"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	model    *config.Model
	deps     registry.Deps
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// Configuration failures panic; the entrypoint recovers and reports them.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, appConfig.ConfigPath)
	if err != nil {
		// A failure to load config is a fatal startup error.
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	if appConfig.CircuitPath != "" {
		model.Circuit = &config.Circuit{Path: appConfig.CircuitPath}
	}
	logger.Debug("Configuration loaded and translated into unified model.")

	deps := registry.Deps{}
	if model.Solver != nil {
		deps.Partitioner = solver.NewHTTPPartitioner(model.Solver.URL)
	}

	reg := registry.New()
	if err := reg.Validate(model, deps); err != nil {
		// A mismatch between config and registered strategies cannot be
		// recovered from at runtime.
		panic(err)
	}
	logger.Debug("Registry validation passed.", "strategies", reg.Strategies())

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		model:    model,
		deps:     deps,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Model returns the loaded configuration model. This is primarily for
// testing.
func (a *App) Model() *config.Model {
	return a.model
}
