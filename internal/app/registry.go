package app

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shinyyama/hoko/internal/session"
)

// Registry holds one App per browser session.
type Registry struct {
	deps Deps

	mu   sync.Mutex
	apps map[string]*App
	seen map[string]time.Time
}

func NewRegistry(deps Deps) *Registry {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Registry{deps: deps, apps: make(map[string]*App), seen: make(map[string]time.Time)}
}

// Open returns the App of id, or starts a new session when id is unknown.
// The returned id is the one to hand back to the browser.
func (r *Registry) Open(ctx context.Context, id string, storage session.Storage) (string, *App, error) {
	r.mu.Lock()
	if a, ok := r.apps[id]; ok && id != "" {
		r.seen[id] = r.deps.Now()
		r.mu.Unlock()
		return id, a, nil
	}
	id = uuid.NewString()
	a := New(r.deps, storage)
	r.apps[id] = a
	r.seen[id] = r.deps.Now()
	r.mu.Unlock()

	if err := a.Start(ctx); err != nil {
		return id, a, err
	}
	return id, a, nil
}

func (r *Registry) Get(id string) (*App, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.apps[id]
	if ok {
		r.seen[id] = r.deps.Now()
	}
	return a, ok
}

// Remove closes and forgets the session.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	a, ok := r.apps[id]
	delete(r.apps, id)
	delete(r.seen, id)
	r.mu.Unlock()
	if ok {
		a.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.apps)
}

// Expire closes every session untouched for longer than maxIdle and
// returns how many were dropped.
func (r *Registry) Expire(maxIdle time.Duration) int {
	cutoff := r.deps.Now().Add(-maxIdle)
	var stale []*App
	r.mu.Lock()
	for id, at := range r.seen {
		if at.Before(cutoff) {
			stale = append(stale, r.apps[id])
			delete(r.apps, id)
			delete(r.seen, id)
		}
	}
	r.mu.Unlock()
	for _, a := range stale {
		a.Close()
	}
	return len(stale)
}

// RunJanitor expires idle sessions every interval until ctx ends.
func (r *Registry) RunJanitor(ctx context.Context, every, maxIdle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Expire(maxIdle); n > 0 {
				log.Printf("[registry] stage=expire dropped=%d left=%d", n, r.Len())
			}
		}
	}
}
