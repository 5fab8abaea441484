package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/rendis/oscaptool/internal/actions"
	"github.com/rendis/oscaptool/internal/engine"
	"github.com/rendis/oscaptool/internal/logging"
	"github.com/rendis/oscaptool/internal/registry"
	"github.com/rendis/oscaptool/pkg/schema"
)

// app is the wired process: factory, registry and engine built from Config.
type app struct {
	cfg      Config
	stdout   io.Writer
	stderr   io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	engine   *engine.Engine
}

func newApp(cfg Config, stdout, stderr io.Writer) (*app, error) {
	logger := logging.New(stderr, cfg.LogLevel)

	factory, err := actions.NewBuiltinFactory(actions.Deps{
		Limits: cfg.limits(),
		Stdout: stdout,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build action factory: %w", err)
	}

	var reg *registry.Registry
	if cfg.WorkflowsPath != "" {
		reg, err = registry.LoadFile(cfg.WorkflowsPath, factory)
	} else {
		reg, err = registry.LoadDefault(factory)
	}
	if err != nil {
		return nil, fmt.Errorf("load workflows: %w", err)
	}
	for _, w := range reg.Warnings() {
		logger.Warn("workflow document warning", "code", w.Code, "path", w.Path, "message", w.Message)
	}

	return &app{
		cfg:      cfg,
		stdout:   stdout,
		stderr:   stderr,
		logger:   logger,
		registry: reg,
		engine:   engine.New(reg, factory, engine.Config{Logger: logger}),
	}, nil
}

// inputs returns inv's inputs with the configured results_dir unless the
// caller already set one.
func (a *app) inputs(inv invocation) map[string]any {
	in := make(map[string]any, len(inv.inputs)+1)
	for k, v := range inv.inputs {
		in[k] = v
	}
	if _, ok := in[keyResultsDir]; !ok {
		in[keyResultsDir] = a.cfg.ResultsDir
	}
	return in
}

// execute runs inv once. An unknown workflow is a usage error.
func (a *app) execute(ctx context.Context, inv invocation) error {
	_, err := a.engine.RunWorkflow(ctx, inv.workflowID, a.inputs(inv))
	if err != nil {
		if schema.HasCode(err, schema.ErrCodeUnknownWorkflow) {
			return withExit(exitUsage, err)
		}
		return withExit(exitWorkflow, err)
	}
	return nil
}
