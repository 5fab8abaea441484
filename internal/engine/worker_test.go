package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rendis/oscaptool/internal/logging"
	"github.com/rendis/oscaptool/pkg/schema"
)

// runnerFunc adapts a function to Runner.
type runnerFunc func(ctx context.Context, workflowID string, inputs map[string]any) (schema.DataBag, error)

func (f runnerFunc) RunWorkflow(ctx context.Context, workflowID string, inputs map[string]any) (schema.DataBag, error) {
	return f(ctx, workflowID, inputs)
}

func okRunner() runnerFunc {
	return func(_ context.Context, _ string, inputs map[string]any) (schema.DataBag, error) {
		return schema.NewDataBag(inputs), nil
	}
}

func TestRunPool_BasicExecution(t *testing.T) {
	pool := NewRunPool(okRunner(), 2, logging.Discard())
	defer pool.Shutdown()

	var got schema.DataBag
	err := pool.Submit(context.Background(), "wf", map[string]any{"k": "v"}, func(bag schema.DataBag, err error) {
		if err != nil {
			t.Errorf("unexpected run error: %v", err)
		}
		got = bag
	})
	if err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}

	pool.Wait()

	if got["k"] != "v" {
		t.Errorf("expected final bag to carry inputs, got %v", got)
	}
	if m := pool.Metrics(); m.Completed != 1 || m.Active != 0 {
		t.Errorf("unexpected metrics %+v", m)
	}
}

func TestRunPool_ConcurrencyLimit(t *testing.T) {
	poolSize := 3
	var maxConcurrent, current int64
	var mu sync.Mutex

	pool := NewRunPool(runnerFunc(func(context.Context, string, map[string]any) (schema.DataBag, error) {
		c := atomic.AddInt64(&current, 1)
		mu.Lock()
		if c > maxConcurrent {
			maxConcurrent = c
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt64(&current, -1)
		return schema.DataBag{}, nil
	}), poolSize, logging.Discard())
	defer pool.Shutdown()

	for i := 0; i < 10; i++ {
		if err := pool.Submit(context.Background(), "wf", nil, nil); err != nil {
			t.Fatalf("unexpected submit error: %v", err)
		}
	}
	pool.Wait()

	if maxConcurrent > int64(poolSize) {
		t.Errorf("max concurrent %d exceeded pool size %d", maxConcurrent, poolSize)
	}
	if maxConcurrent == 0 {
		t.Error("no run executed")
	}
}

func TestRunPool_FailuresAndPanics(t *testing.T) {
	pool := NewRunPool(runnerFunc(func(_ context.Context, id string, _ map[string]any) (schema.DataBag, error) {
		switch id {
		case "boom":
			panic("kaboom")
		case "fail":
			return nil, errors.New("failed")
		}
		return schema.DataBag{}, nil
	}), 2, logging.Discard())
	defer pool.Shutdown()

	var panicErr error
	for _, id := range []string{"ok", "fail", "boom"} {
		var onDone RunDone
		if id == "boom" {
			onDone = func(_ schema.DataBag, err error) { panicErr = err }
		}
		if err := pool.Submit(context.Background(), id, nil, onDone); err != nil {
			t.Fatalf("unexpected submit error: %v", err)
		}
	}
	pool.Wait()

	m := pool.Metrics()
	if m.Completed != 1 || m.Failed != 2 || m.Panics != 1 {
		t.Errorf("unexpected metrics %+v", m)
	}
	if panicErr == nil {
		t.Error("panicking run should report an error")
	}
}

func TestRunPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewRunPool(okRunner(), 1, logging.Discard())
	pool.Shutdown()

	if err := pool.Submit(context.Background(), "wf", nil, nil); !errors.Is(err, ErrPoolShutdown) {
		t.Errorf("expected ErrPoolShutdown, got %v", err)
	}
	pool.Shutdown() // idempotent
}

func TestRunPool_SubmitRespectsContext(t *testing.T) {
	block := make(chan struct{})
	pool := NewRunPool(runnerFunc(func(context.Context, string, map[string]any) (schema.DataBag, error) {
		<-block
		return schema.DataBag{}, nil
	}), 1, logging.Discard())
	defer pool.Shutdown()
	defer close(block)

	if err := pool.Submit(context.Background(), "wf", nil, nil); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := pool.Submit(ctx, "wf", nil, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
