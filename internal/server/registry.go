package server

import (
	"context"
	"sync"

	"github.com/abhisek/supertutor/internal/auth"
	"github.com/abhisek/supertutor/internal/session"
)

// controllerFactory builds and hydrates the controller for one user.
type controllerFactory func(ctx context.Context, u *auth.User) (*session.Controller, error)

type registryEntry struct {
	ready chan struct{}
	c     *session.Controller
	err   error
}

// registry keeps one session controller per authenticated user. Each
// controller is created once; concurrent first requests for the same user
// wait for the same load.
type registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
	closed  bool
	factory controllerFactory
}

func newRegistry(f controllerFactory) *registry {
	return &registry{entries: make(map[string]*registryEntry), factory: f}
}

func (r *registry) get(ctx context.Context, u *auth.User) (*session.Controller, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, session.ErrClosed
	}
	e, ok := r.entries[u.ID]
	if !ok {
		e = &registryEntry{ready: make(chan struct{})}
		r.entries[u.ID] = e
	}
	r.mu.Unlock()

	if !ok {
		e.c, e.err = r.factory(ctx, u)
		if e.err != nil {
			// Drop failed entries so the next request retries the load.
			r.mu.Lock()
			if r.entries[u.ID] == e {
				delete(r.entries, u.ID)
			}
			r.mu.Unlock()
		}
		close(e.ready)
	}

	select {
	case <-e.ready:
		return e.c, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// closeAll closes every controller, waiting for loads still in progress,
// and refuses further gets.
func (r *registry) closeAll() {
	r.mu.Lock()
	r.closed = true
	pending := make([]*registryEntry, 0, len(r.entries))
	for id, e := range r.entries {
		pending = append(pending, e)
		delete(r.entries, id)
	}
	r.mu.Unlock()

	for _, e := range pending {
		<-e.ready
		if e.c != nil {
			e.c.Close()
		}
	}
}
