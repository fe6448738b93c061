package progress

import (
	"context"
	"sync"
)

// Registry maps progress tokens to the cancel functions of in-flight builds.
// All access is serialized; no method blocks on anything but the mutex.
type Registry struct {
	mu       sync.Mutex
	handles  map[Token]context.CancelFunc
	wildcard Token
}

// NewRegistry creates an empty registry. Cancelling wildcard cancels every
// registered build.
func NewRegistry(wildcard Token) *Registry {
	return &Registry{
		handles:  make(map[Token]context.CancelFunc),
		wildcard: wildcard,
	}
}

// Register stores cancel under token, replacing any previous handle.
func (r *Registry) Register(token Token, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[token] = cancel
}

// Remove forgets token. Removing an unknown token is a no-op.
func (r *Registry) Remove(token Token) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, token)
}

// Cancel aborts the build registered under token. When no build matches and
// token is the wildcard, every registered build is aborted. It returns the
// number of handles invoked; unknown tokens yield 0.
func (r *Registry) Cancel(token Token) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cancel, ok := r.handles[token]; ok {
		cancel()
		return 1
	}
	if token != r.wildcard {
		return 0
	}
	for _, cancel := range r.handles {
		cancel()
	}
	return len(r.handles)
}

// Has reports whether token has a registered handle.
func (r *Registry) Has(token Token) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.handles[token]
	return ok
}

// Len returns the number of in-flight builds.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}
