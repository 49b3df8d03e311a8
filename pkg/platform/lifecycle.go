package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrAlreadyStarted is returned by Lifecycle.Start on a second call.
var ErrAlreadyStarted = errors.New("lifecycle already started")

// hook pairs a named start step with the step that undoes it.
type hook struct {
	name  string
	start func(context.Context) error
	stop  func(context.Context) error
}

// Lifecycle runs startup steps in order and shutdown steps in reverse.
type Lifecycle struct {
	mu      sync.Mutex
	hooks   []hook
	started int // number of hooks whose start succeeded
	running bool
}

// NewLifecycle creates a new lifecycle manager.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{}
}

// Append registers a step. Either function may be nil.
func (l *Lifecycle) Append(name string, start, stop func(context.Context) error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, hook{name: name, start: start, stop: stop})
}

// Start runs every start step. When one fails, the steps already started
// are stopped in reverse order and the failure is returned.
func (l *Lifecycle) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return ErrAlreadyStarted
	}

	l.started = 0
	for _, h := range l.hooks {
		if h.start != nil {
			if err := h.start(ctx); err != nil {
				if rbErr := l.stopStarted(ctx); rbErr != nil {
					slog.Warn("lifecycle rollback failed", "step", h.name, "error", rbErr)
				}
				return fmt.Errorf("starting %s: %w", h.name, err)
			}
		}
		l.started++
	}

	l.running = true
	return nil
}

// Stop runs the stop steps of every started hook in reverse order.
// Stopping a lifecycle that is not running is a no-op.
func (l *Lifecycle) Stop(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running {
		return nil
	}
	l.running = false
	return l.stopStarted(ctx)
}

func (l *Lifecycle) stopStarted(ctx context.Context) error {
	var errs []error
	for i := l.started - 1; i >= 0; i-- {
		h := l.hooks[i]
		if h.stop == nil {
			continue
		}
		if err := h.stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stopping %s: %w", h.name, err))
		}
	}
	l.started = 0
	return errors.Join(errs...)
}

// IsStarted returns whether the lifecycle is running.
func (l *Lifecycle) IsStarted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}
