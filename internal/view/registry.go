package view

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"timeframechart/internal/logger"
)

// ErrViewNotFound is returned for unknown or already closed view ids
var ErrViewNotFound = errors.New("view not found")

// Factory builds a view for a freshly generated id
type Factory func(id string) *Model

type entry struct {
	model    *Model
	lastUsed time.Time
}

// Registry maps view ids to mounted views and evicts idle ones
type Registry struct {
	mu      sync.Mutex
	views   map[string]*entry
	ttl     time.Duration
	newView Factory
	now     func() time.Time
	log     *logger.Logger
}

// NewRegistry creates a registry whose views expire after ttl without use
func NewRegistry(ttl time.Duration, factory Factory) *Registry {
	return &Registry{
		views:   make(map[string]*entry),
		ttl:     ttl,
		newView: factory,
		now:     time.Now,
		log:     logger.Component("registry"),
	}
}

// Mount creates and registers a new view
func (r *Registry) Mount() *Model {
	id := uuid.NewString()
	m := r.newView(id)

	r.mu.Lock()
	r.views[id] = &entry{model: m, lastUsed: r.now()}
	r.mu.Unlock()

	r.log.Debug("view registered", logger.Fields{"view_id": id})
	return m
}

// Get returns the view with id and marks it as used
func (r *Registry) Get(id string) (*Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.views[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrViewNotFound, id)
	}
	e.lastUsed = r.now()
	return e.model, nil
}

// Close tears down and forgets the view with id
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	e, ok := r.views[id]
	delete(r.views, id)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrViewNotFound, id)
	}
	e.model.Close()
	return nil
}

// Len returns the number of registered views
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Sweep closes views idle for longer than the ttl and returns how many were evicted
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	var idle []*Model
	for id, e := range r.views {
		if e.lastUsed.Before(cutoff) {
			idle = append(idle, e.model)
			delete(r.views, id)
		}
	}
	r.mu.Unlock()

	for _, m := range idle {
		m.Close()
	}
	if len(idle) > 0 {
		r.log.Info("idle views evicted", logger.Fields{"count": len(idle)})
	}
	return len(idle)
}

// CloseAll tears down every registered view
func (r *Registry) CloseAll() {
	r.mu.Lock()
	views := r.views
	r.views = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range views {
		e.model.Close()
	}
}

// Run sweeps idle views until ctx is done, then closes the rest
func (r *Registry) Run(ctx context.Context) {
	interval := r.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Sweep()
		case <-ctx.Done():
			r.CloseAll()
			return
		}
	}
}
