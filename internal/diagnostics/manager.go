package diagnostics

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"texlsp/internal/workspace"
)

// Manager aggregates the linters in a fixed order. One manager may serve
// several sessions; documents are reference counted across them.
type Manager struct {
	linters []*Linter

	mu      sync.Mutex
	holders map[string]int
}

// NewManager keeps linters in the given order; Get reports in that order.
func NewManager(linters ...*Linter) *Manager {
	return &Manager{linters: linters, holders: make(map[string]int)}
}

// Acquire records that one more session has uri open.
func (m *Manager) Acquire(uri string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holders[workspace.Canonical(uri)]++
}

// Release drops one holder of uri. The cached sets are evicted once no
// session holds the document any more; Release reports whether that happened.
func (m *Manager) Release(uri string) bool {
	uri = workspace.Canonical(uri)
	m.mu.Lock()
	n := m.holders[uri] - 1
	if n > 0 {
		m.holders[uri] = n
		m.mu.Unlock()
		return false
	}
	delete(m.holders, uri)
	m.mu.Unlock()
	m.Evict(uri)
	return true
}

// Linters returns the managed linters in report order.
func (m *Manager) Linters() []*Linter {
	return m.linters
}

// Get concatenates the cached sets of every linter for uri. Duplicates are
// kept.
func (m *Manager) Get(uri string) []Diagnostic {
	out := []Diagnostic{}
	for _, l := range m.linters {
		out = append(out, l.Get(uri)...)
	}
	return out
}

// Update offers the new text to every linter concurrently and returns once
// all of them are done. It reports whether any linter ran.
func (m *Manager) Update(ctx context.Context, uri, text string) bool {
	ran := make([]bool, len(m.linters))
	var g errgroup.Group
	for i, l := range m.linters {
		i, l := i, l
		g.Go(func() error {
			ran[i] = l.Update(ctx, uri, text)
			return nil
		})
	}
	_ = g.Wait()
	for _, r := range ran {
		if r {
			return true
		}
	}
	return false
}

// Evict drops uri from every linter cache.
func (m *Manager) Evict(uri string) {
	for _, l := range m.linters {
		l.Evict(uri)
	}
}

// Snapshot copies every linter cache, keyed by tool name.
func (m *Manager) Snapshot() map[string]map[string][]Diagnostic {
	out := make(map[string]map[string][]Diagnostic, len(m.linters))
	for _, l := range m.linters {
		out[l.Name()] = l.entries()
	}
	return out
}

// Restore loads cached sets produced by Snapshot. Tools that are not managed
// are ignored. Throttle state is not affected.
func (m *Manager) Restore(snapshot map[string]map[string][]Diagnostic) {
	for _, l := range m.linters {
		if entries, ok := snapshot[l.Name()]; ok {
			l.restore(entries)
		}
	}
}
