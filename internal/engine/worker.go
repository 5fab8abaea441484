package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/rendis/oscaptool/internal/logging"
	"github.com/rendis/oscaptool/pkg/schema"
)

// PoolMetrics tracks run pool operational metrics.
type PoolMetrics struct {
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Panics    int64 `json:"panics"`
}

// ErrPoolShutdown is returned when a run is submitted to a shut-down pool.
var ErrPoolShutdown = errors.New("run pool is shut down")

// RunDone receives the outcome of a pooled run.
type RunDone func(bag schema.DataBag, err error)

// RunPool bounds how many independent workflow runs execute at once. Each
// run is still strictly sequential; the pool only overlaps separate runs.
type RunPool struct {
	runner  Runner
	logger  *slog.Logger
	sem     chan struct{}
	wg      sync.WaitGroup
	metrics PoolMetrics
	mu      sync.Mutex
	done    chan struct{}
	closed  bool
}

// NewRunPool creates a pool running at most size workflows concurrently.
func NewRunPool(runner Runner, size int, logger *slog.Logger) *RunPool {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RunPool{
		runner: runner,
		logger: logger,
		sem:    make(chan struct{}, size),
		done:   make(chan struct{}),
	}
}

// Submit starts workflowID in the background. It blocks while the pool is at
// capacity and respects context cancellation while waiting. onDone may be nil.
func (p *RunPool) Submit(ctx context.Context, workflowID string, inputs map[string]any, onDone RunDone) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolShutdown
	}
	p.mu.Unlock()

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return ErrPoolShutdown
	}

	// wg.Add must happen under the lock so Shutdown's Wait cannot miss it.
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.sem
		return ErrPoolShutdown
	}
	p.wg.Add(1)
	atomic.AddInt64(&p.metrics.Active, 1)
	p.mu.Unlock()

	go func() {
		var (
			bag schema.DataBag
			err error
		)
		defer func() {
			if r := recover(); r != nil {
				atomic.AddInt64(&p.metrics.Panics, 1)
				err = fmt.Errorf("workflow %s panicked: %v", workflowID, r)
				logging.LogWith(logging.WithWorkflowID(ctx, workflowID), p.logger).Error("run panicked", "panic", r)
			}
			if err != nil {
				atomic.AddInt64(&p.metrics.Failed, 1)
			} else {
				atomic.AddInt64(&p.metrics.Completed, 1)
			}
			if onDone != nil {
				onDone(bag, err)
			}
			atomic.AddInt64(&p.metrics.Active, -1)
			<-p.sem
			p.wg.Done()
		}()

		bag, err = p.runner.RunWorkflow(ctx, workflowID, inputs)
	}()

	return nil
}

// Wait blocks until all submitted runs complete.
func (p *RunPool) Wait() {
	p.wg.Wait()
}

// Shutdown prevents new submissions and waits for active runs to finish.
func (p *RunPool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()
}

// Metrics returns a snapshot of the current pool metrics.
func (p *RunPool) Metrics() PoolMetrics {
	return PoolMetrics{
		Active:    atomic.LoadInt64(&p.metrics.Active),
		Completed: atomic.LoadInt64(&p.metrics.Completed),
		Failed:    atomic.LoadInt64(&p.metrics.Failed),
		Panics:    atomic.LoadInt64(&p.metrics.Panics),
	}
}
