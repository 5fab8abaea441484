package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/rendis/oscaptool/pkg/mcp"
)

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the loaded workflows over MCP on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// stdout carries the protocol, so action output goes to stderr.
			a, err := c.newApp(c.stderr)
			if err != nil {
				return err
			}
			return a.serve(cmd.Context())
		},
	}
}

// serve runs until ctx is cancelled or stdin closes.
func (a *app) serve(ctx context.Context) error {
	srv := mcp.NewServer(mcp.ServerDeps{
		Runner:    a.engine,
		Workflows: a.registry,
		Logger:    a.logger,
		Version:   version,
	})
	a.logger.Info("mcp server listening on stdio")
	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return withExit(exitWorkflow, err)
	}
	return nil
}
