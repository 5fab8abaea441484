package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rendis/oscaptool/internal/diagram"
)

func (c *cli) diagramCmd() *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "diagram <workflow_id>",
		Short: "Draw a workflow's action chain",
		Long: `Draw the chain of actions a workflow follows from its initial action.

Formats are ascii (default), mermaid, png and svg. Images are rendered with
Graphviz and are best written to a file with --out.`,
		Example: `  oscaptool diagram comp-scan-results --format mermaid
  oscaptool diagram scan-xccdf-eval --format png --out scan.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.newApp(c.stdout)
			if err != nil {
				return err
			}
			wf, err := a.registry.Workflow(args[0])
			if err != nil {
				return withExit(exitUsage, err)
			}
			data, err := renderDiagram(cmd, diagram.Build(wf, nil), format)
			if err != nil {
				return err
			}
			if out != "" {
				return withExit(exitWorkflow, os.WriteFile(out, data, 0o644))
			}
			_, err = c.stdout.Write(data)
			return withExit(exitWorkflow, err)
		},
	}
	cmd.Flags().StringVar(&format, "format", "ascii", "output format: ascii, mermaid, png, svg")
	cmd.Flags().StringVar(&out, "out", "", "write to this file instead of stdout")
	return cmd
}

func renderDiagram(cmd *cobra.Command, model *diagram.DiagramModel, format string) ([]byte, error) {
	switch format {
	case "ascii":
		return []byte(diagram.RenderASCII(model)), nil
	case "mermaid":
		return []byte(diagram.RenderMermaid(model)), nil
	case "png", "svg":
		data, err := diagram.RenderImage(cmd.Context(), model, diagram.ImageFormat(format))
		return data, withExit(exitWorkflow, err)
	default:
		return nil, usageErrorf("unknown diagram format %q", format)
	}
}
