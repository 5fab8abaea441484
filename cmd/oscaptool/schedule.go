package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rendis/oscaptool/internal/scheduler"
	"github.com/rendis/oscaptool/pkg/schema"
)

func (c *cli) scheduleCmd() *cobra.Command {
	var (
		cronExpr string
		jobID    string
		tick     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "schedule --cron EXPR <command> [arguments]",
		Short: "Repeat a workflow command on a cron schedule",
		Long: `Repeat scan, show, comp or run on a cron schedule until interrupted.

The cron expression takes five fields or a descriptor such as @daily or
@every 1h. Overlapping runs of the same job are skipped.`,
		Example: `  oscaptool schedule --cron "0 3 * * *" scan xccdf eval --profile standard ssg.xml
  oscaptool schedule --cron "@every 1h" --id hourly-history show`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := parseInvocation(args[0], args[1:], c.stderr)
			if err != nil {
				return err
			}
			a, err := c.newApp(c.stdout)
			if err != nil {
				return err
			}
			if _, err := a.registry.Workflow(inv.workflowID); err != nil {
				return withExit(exitUsage, err)
			}
			if jobID == "" {
				jobID = inv.workflowID
			}
			return a.schedule(cmd, jobID, cronExpr, tick, inv)
		},
	}
	// Flags after the repeated command belong to it.
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVar(&cronExpr, "cron", "", "cron expression (5 fields or @every/@daily descriptor)")
	cmd.Flags().StringVar(&jobID, "id", "", "job id (default: the workflow id)")
	cmd.Flags().DurationVar(&tick, "tick", 10*time.Second, "how often due jobs are checked")
	_ = cmd.MarkFlagRequired("cron")
	return cmd
}

// schedule registers inv as a cron job and blocks until the command's
// context is cancelled.
func (a *app) schedule(cmd *cobra.Command, jobID, cronExpr string, tick time.Duration, inv invocation) error {
	ctx := cmd.Context()
	sched := scheduler.NewScheduler(a.engine, a.logger, scheduler.Options{
		TickInterval: tick,
		Concurrency:  a.cfg.PoolSize,
		OnRunDone: func(jobID string, _ schema.DataBag, err error) {
			if err != nil {
				fmt.Fprintf(a.stderr, "Error: job %s: %v\n", jobID, err)
			}
		},
	})
	if err := sched.AddJob(jobID, cronExpr, inv.workflowID, a.inputs(inv)); err != nil {
		return withExit(exitUsage, err)
	}
	if err := sched.Start(ctx); err != nil {
		return withExit(exitWorkflow, err)
	}
	for _, job := range sched.Jobs() {
		a.logger.Info("job scheduled", "job_id", job.ID, "workflow_id", job.WorkflowID, "next_run_at", job.NextRunAt)
	}

	<-ctx.Done()
	_ = sched.Stop()
	return nil
}
