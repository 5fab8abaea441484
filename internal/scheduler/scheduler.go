// Package scheduler repeats workflow runs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rendis/oscaptool/internal/engine"
	"github.com/rendis/oscaptool/pkg/schema"
)

const (
	defaultTickInterval = 10 * time.Second
	defaultConcurrency  = 4
)

// Run statuses recorded on a job.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Job is a workflow run repeated on a cron schedule.
type Job struct {
	ID             string         `json:"id"`
	CronExpression string         `json:"cron_expression"`
	WorkflowID     string         `json:"workflow_id"`
	Inputs         map[string]any `json:"inputs,omitempty"`
	NextRunAt      time.Time      `json:"next_run_at"`
	LastRunAt      *time.Time     `json:"last_run_at,omitempty"`
	LastRunStatus  string         `json:"last_run_status,omitempty"`
	Runs           int            `json:"runs"`
}

// Options tune a Scheduler. Zero values select defaults.
type Options struct {
	TickInterval time.Duration
	Concurrency  int
	Now          func() time.Time
	// OnRunDone is called after every run with the job id and outcome.
	OnRunDone func(jobID string, bag schema.DataBag, err error)
}

// Scheduler checks its jobs on every tick and submits the due ones to a run
// pool. A job whose previous run is still in flight is skipped.
type Scheduler struct {
	pool     *engine.RunPool
	parser   cron.Parser
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time
	onDone   func(jobID string, bag schema.DataBag, err error)

	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex

	jobsMu sync.Mutex
	jobs   map[string]*Job

	inflightMu sync.Mutex
	inflight   map[string]struct{} // job IDs currently executing (dedup)
}

// NewScheduler creates a Scheduler running workflows through runner.
func NewScheduler(runner engine.Runner, logger *slog.Logger, opts Options) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{
		pool:     engine.NewRunPool(runner, opts.Concurrency, logger),
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		logger:   logger,
		interval: opts.TickInterval,
		now:      opts.Now,
		onDone:   opts.OnRunDone,
		jobs:     make(map[string]*Job),
		inflight: make(map[string]struct{}),
	}
}

// AddJob schedules workflowID with inputs on cronExpr. Returns CONFLICT when
// id is taken and VALIDATION_ERROR for a bad expression.
func (s *Scheduler) AddJob(id, cronExpr, workflowID string, inputs map[string]any) error {
	if id == "" || workflowID == "" {
		return schema.NewError(schema.ErrCodeValidation, "job id and workflow id are required")
	}
	next, err := s.CalculateNextRun(cronExpr, s.now())
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeValidation, "invalid schedule for job %q", id).WithCause(err)
	}

	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	if _, exists := s.jobs[id]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "job %q already scheduled", id)
	}
	s.jobs[id] = &Job{
		ID:             id,
		CronExpression: cronExpr,
		WorkflowID:     workflowID,
		Inputs:         inputs,
		NextRunAt:      next,
	}
	s.logger.Info("job scheduled", slog.String("job_id", id), slog.String("workflow_id", workflowID),
		slog.Time("next_run_at", next))
	return nil
}

// RemoveJob unschedules id. A run already in flight is not interrupted.
func (s *Scheduler) RemoveJob(id string) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	delete(s.jobs, id)
}

// Jobs returns a snapshot of the scheduled jobs sorted by id.
func (s *Scheduler) Jobs() []Job {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, *j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out
}

// Start launches the background scheduling loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already started")
	}

	schedCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.loop(schedCtx)
	s.logger.Info("scheduler started", slog.Duration("tick", s.interval))
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick submits every job that is due and not already running.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()
	for _, job := range s.dueJobs(now) {
		if !s.tryAcquire(job.ID) {
			s.logger.Warn("previous run still in flight, skipping", slog.String("job_id", job.ID))
			continue
		}
		if err := s.runJob(ctx, job, now); err != nil {
			s.logger.Error("failed to submit scheduled job",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
			s.releaseJob(job.ID)
		}
	}
}

func (s *Scheduler) dueJobs(now time.Time) []Job {
	var due []Job
	for _, j := range s.Jobs() {
		if !j.NextRunAt.After(now) {
			due = append(due, j)
		}
	}
	return due
}

// runJob advances the job's next run time and submits the workflow run.
func (s *Scheduler) runJob(ctx context.Context, job Job, now time.Time) error {
	next, err := s.CalculateNextRun(job.CronExpression, now)
	if err != nil {
		return err
	}
	s.updateJob(job.ID, func(j *Job) { j.NextRunAt = next })

	s.logger.Info("running scheduled job",
		slog.String("job_id", job.ID),
		slog.String("workflow_id", job.WorkflowID),
	)

	inputs := schema.NewDataBag(job.Inputs)
	return s.pool.Submit(ctx, job.WorkflowID, inputs, func(bag schema.DataBag, err error) {
		defer s.releaseJob(job.ID)

		status := StatusSuccess
		if err != nil {
			status = StatusError
			s.logger.Error("scheduled job execution failed",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
		}
		s.updateJob(job.ID, func(j *Job) {
			j.LastRunAt = &now
			j.LastRunStatus = status
			j.Runs++
		})
		if s.onDone != nil {
			s.onDone(job.ID, bag, err)
		}
	})
}

func (s *Scheduler) updateJob(id string, fn func(*Job)) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	if j, ok := s.jobs[id]; ok {
		fn(j)
	}
}

// tryAcquire returns true and marks the job as in-flight if it is not already running.
func (s *Scheduler) tryAcquire(jobID string) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if _, ok := s.inflight[jobID]; ok {
		return false
	}
	s.inflight[jobID] = struct{}{}
	return true
}

// releaseJob removes the job from the in-flight set.
func (s *Scheduler) releaseJob(jobID string) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	delete(s.inflight, jobID)
}

// CalculateNextRun computes the next run time for a cron expression.
func (s *Scheduler) CalculateNextRun(cronExpr string, from time.Time) (time.Time, error) {
	schedule, err := s.parser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}
	return schedule.Next(from), nil
}

// Stop shuts down the loop and waits for in-flight runs to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		<-s.done
		s.cancel = nil
		s.done = nil
	}
	s.pool.Shutdown()

	s.logger.Info("scheduler stopped")
	return nil
}
