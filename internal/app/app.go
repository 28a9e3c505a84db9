package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/vk/refinery/internal/config"
	"github.com/vk/refinery/internal/ctxlog"
	"github.com/vk/refinery/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	config   *Config
}

// NewApp is the constructor for the main application. Refined documents
// are written to outW and logs to logW. Go modules are registered before
// the manifests, so manifest attachments can target them.
//
// A manifest that fails to load or validate is a fatal startup error and
// panics.
func NewApp(outW, logW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	cfgModel, err := loader.Load(ctx, cfg.ManifestPath)
	if err != nil {
		panic(fmt.Errorf("failed to load manifests: %w", err))
	}
	logger.Debug("Manifests loaded and translated into unified model.", "refiners", len(cfgModel.Definitions), "views", len(cfgModel.Views))

	reg := registry.New()
	modules = slices.Concat(coreModules, modules)
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	reg.PopulateDefinitionsFromModel(cfgModel)
	logger.Debug("Registry populated from manifest model.", "refiners", reg.Names(), "views", reg.ViewNames())

	if err := reg.ValidateRegistry(ctx); err != nil {
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		config:   cfg,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}
