package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

type Component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type named struct {
	name      string
	component Component
}

// Runtime starts components in registration order and stops the started ones in reverse.
type Runtime struct {
	mu         sync.Mutex
	components []named
	started    []named
}

func NewRuntime() *Runtime {
	return &Runtime{}
}

func (r *Runtime) getLogEntry() *log.Entry {
	return log.WithField("object", "Runtime")
}

func (r *Runtime) Register(name string, component Component) {
	if component == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components = append(r.components, named{name: name, component: component})
}

func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.getLogEntry().WithField("method", "Start")
	for _, c := range r.components[len(r.started):] {
		if err := c.component.Start(ctx); err != nil {
			stopErr := r.stopStarted(ctx)
			return errors.Join(fmt.Errorf("start %s: %w", c.name, err), stopErr)
		}
		r.started = append(r.started, c)
		entry.WithField("component", c.name).Debug("started")
	}
	return nil
}

func (r *Runtime) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopStarted(ctx)
}

func (r *Runtime) stopStarted(ctx context.Context) error {
	entry := r.getLogEntry().WithField("method", "Stop")

	var stopErr error
	for i := len(r.started) - 1; i >= 0; i-- {
		c := r.started[i]
		if err := c.component.Stop(ctx); err != nil {
			entry.WithField("component", c.name).WithField("error", err.Error()).Warn("stop failed")
			stopErr = errors.Join(stopErr, fmt.Errorf("stop %s: %w", c.name, err))
			continue
		}
		entry.WithField("component", c.name).Debug("stopped")
	}
	r.started = r.started[:0]
	return stopErr
}
