package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// cli holds what every subcommand needs to build the app on demand.
type cli struct {
	cfg    Config
	stdout io.Writer
	stderr io.Writer
}

// newApp wires the app with action output on actionOut. A load failure is a
// workflow error, not a usage error.
func (c *cli) newApp(actionOut io.Writer) (*app, error) {
	a, err := newApp(c.cfg, actionOut, c.stderr)
	if err != nil {
		return nil, withExit(exitWorkflow, err)
	}
	return a, nil
}

func newRootCmd(cfg Config, stdout, stderr io.Writer) *cobra.Command {
	c := &cli{cfg: cfg, stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "oscaptool",
		Short: "Run OpenSCAP scans and inspect stored results",
		Long: `oscaptool drives the oscap scanner through configured workflows.

Every command runs a workflow from the loaded workflow document: scan stores
a new result, show and comp read stored results, and run starts any workflow
with raw key=value inputs.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return usageErrorf("a command is required")
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")

	root.AddCommand(
		c.scanCmd(),
		c.showCmd(),
		c.compCmd(),
		c.runCmd(),
		c.workflowsCmd(),
		c.diagramCmd(),
		c.scheduleCmd(),
		c.serveCmd(),
		versionCmd(),
	)
	return root
}

func (c *cli) scanCmd() *cobra.Command {
	var profile string
	cmd := &cobra.Command{
		Use:   "scan <scantype> <scansubtype> <content>",
		Short: "Run an oscap scan and store the result",
		Example: `  oscaptool scan xccdf eval --profile standard ssg-fedora-ds.xml
  oscaptool scan oval eval oval.xml`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.execute(cmd, scanInvocation(args[0], args[1], args[2], profile))
		},
	}
	cmd.Flags().StringVar(&profile, "profile", "", "XCCDF profile to evaluate")
	return cmd
}

func (c *cli) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [scan_id]",
		Short: "Print a stored result, or the scan history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := parseShow(args)
			if err != nil {
				return err
			}
			return c.execute(cmd, inv)
		},
	}
}

func (c *cli) compCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comp <scan_id_1> <scan_id_2>",
		Short: "Compare pass/fail/notapplicable counts of two stored results",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := parseComp(args)
			if err != nil {
				return err
			}
			return c.execute(cmd, inv)
		},
	}
}

func (c *cli) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "run <workflow_id> [key=value...]",
		Short:   "Run any workflow with raw string inputs",
		Example: `  oscaptool run show-scan-result scan_id=1700000000_xccdf_eval`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := parseRun(args)
			if err != nil {
				return err
			}
			return c.execute(cmd, inv)
		},
	}
}

func (c *cli) workflowsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "workflows",
		Short: "List the ids of the loaded workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.newApp(c.stdout)
			if err != nil {
				return err
			}
			for _, id := range a.registry.IDs() {
				fmt.Fprintln(c.stdout, id)
			}
			return nil
		},
	}
}

// execute builds the app and runs inv once.
func (c *cli) execute(cmd *cobra.Command, inv invocation) error {
	a, err := c.newApp(c.stdout)
	if err != nil {
		return err
	}
	return a.execute(cmd.Context(), inv)
}
