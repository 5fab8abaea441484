package engine

import (
	"context"
	"sync"

	"github.com/rendis/oscaptool/pkg/schema"
)

// Observer receives the events of workflow runs. Implementations must be
// safe for concurrent use when the engine serves concurrent runs.
type Observer interface {
	OnEvent(ctx context.Context, ev schema.Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, ev schema.Event)

// OnEvent calls f.
func (f ObserverFunc) OnEvent(ctx context.Context, ev schema.Event) {
	f(ctx, ev)
}

type observerKey struct{}

// WithObserver attaches an observer that only sees runs started with ctx.
func WithObserver(ctx context.Context, obs Observer) context.Context {
	return context.WithValue(ctx, observerKey{}, obs)
}

func observerFrom(ctx context.Context) Observer {
	obs, _ := ctx.Value(observerKey{}).(Observer)
	return obs
}

// Recorder is an Observer that keeps every event it sees.
type Recorder struct {
	mu     sync.Mutex
	events []schema.Event
}

// OnEvent records ev.
func (r *Recorder) OnEvent(_ context.Context, ev schema.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events in arrival order.
func (r *Recorder) Events() []schema.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]schema.Event, len(r.events))
	copy(cp, r.events)
	return cp
}

// Actions returns the names of the actions that started, in order.
func (r *Recorder) Actions() []string {
	var names []string
	for _, ev := range r.Events() {
		if ev.Type == schema.EventActionStarted {
			names = append(names, ev.Action)
		}
	}
	return names
}
