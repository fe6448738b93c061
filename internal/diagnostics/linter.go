package diagnostics

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"texlsp/internal/logfields"
	"texlsp/internal/metrics"
	"texlsp/internal/proc"
	"texlsp/internal/trace"
	"texlsp/internal/workspace"
)

// LinterOptions configures a Linter.
type LinterOptions struct {
	// Clock defaults to time.Now.
	Clock    func() time.Time
	Recorder metrics.Recorder
	Logger   *slog.Logger
}

// Linter runs one Tool on demand, at most once per Tool.Interval, and caches
// the latest diagnostics per document.
type Linter struct {
	tool     Tool
	limiter  *rate.Limiter
	clock    func() time.Time
	run      func(ctx context.Context, c proc.Command, input string) ([]byte, error)
	recorder metrics.Recorder
	logger   *slog.Logger

	// runMu serializes tool invocations.
	runMu sync.Mutex

	mu    sync.RWMutex
	cache map[string][]Diagnostic
}

// NewLinter returns a linter for tool. The first Update is never throttled.
func NewLinter(tool Tool, opts LinterOptions) *Linter {
	limit := rate.Inf
	if tool.Interval > 0 {
		limit = rate.Every(tool.Interval)
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if tool.Input == nil {
		tool.Input = func(text string) string { return text }
	}
	return &Linter{
		tool:     tool,
		limiter:  rate.NewLimiter(limit, 1),
		clock:    clock,
		run:      proc.Pipe,
		recorder: metrics.OrNoop(opts.Recorder),
		logger:   logger.With(logfields.Tool(tool.Name)),
		cache:    make(map[string][]Diagnostic),
	}
}

// Name returns the tool name.
func (l *Linter) Name() string { return l.tool.Name }

// Update lints text as the content of uri and reports whether the tool ran.
// Non-file documents are skipped. Within the throttle interval the call is
// a no-op and the cached set is kept. A tool that fails to run leaves an
// empty set behind.
func (l *Linter) Update(ctx context.Context, uri, text string) bool {
	if !workspace.IsLocal(uri) {
		l.recorder.IncLint(l.tool.Name, metrics.LintSkipped)
		return false
	}
	if !l.limiter.AllowN(l.clock(), 1) {
		l.recorder.IncLint(l.tool.Name, metrics.LintThrottled)
		l.logger.Debug("lint throttled", logfields.URI(uri))
		return false
	}

	l.runMu.Lock()
	defer l.runMu.Unlock()

	_, span := trace.Start(ctx, trace.ScopeTool, l.tool.Name)
	started := time.Now()
	diags := []Diagnostic{}
	out, err := l.run(ctx, l.tool.Command, l.tool.Input(text))
	elapsed := time.Since(started)
	span.End(uri)
	l.recorder.ObserveLintDuration(l.tool.Name, elapsed)
	if err != nil {
		l.recorder.IncLint(l.tool.Name, metrics.LintFailed)
		l.logger.Warn("lint failed", logfields.URI(uri), logfields.Command(l.tool.Command.String()), logfields.Error(err))
	} else {
		l.recorder.IncLint(l.tool.Name, metrics.LintRan)
		if parsed := l.tool.Parse(out); parsed != nil {
			diags = parsed
		}
		l.logger.Debug("lint finished", logfields.URI(uri), logfields.Count(len(diags)), logfields.Duration(elapsed))
	}

	l.mu.Lock()
	l.cache[workspace.Canonical(uri)] = diags
	l.mu.Unlock()
	return true
}

// Lookup returns the cached set for uri. ok is false when uri was never linted,
// which is different from a clean document.
func (l *Linter) Lookup(uri string) (diags []Diagnostic, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	cached, ok := l.cache[workspace.Canonical(uri)]
	if !ok {
		return nil, false
	}
	return slices.Clone(cached), true
}

// Get returns the cached set for uri, or an empty set.
func (l *Linter) Get(uri string) []Diagnostic {
	if diags, ok := l.Lookup(uri); ok && diags != nil {
		return diags
	}
	return []Diagnostic{}
}

// Evict forgets the cached set for uri.
func (l *Linter) Evict(uri string) {
	l.mu.Lock()
	delete(l.cache, workspace.Canonical(uri))
	l.mu.Unlock()
}

func (l *Linter) entries() map[string][]Diagnostic {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string][]Diagnostic, len(l.cache))
	for uri, diags := range l.cache {
		out[uri] = slices.Clone(diags)
	}
	return out
}

func (l *Linter) restore(entries map[string][]Diagnostic) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for uri, diags := range entries {
		if diags == nil {
			diags = []Diagnostic{}
		}
		l.cache[workspace.Canonical(uri)] = diags
	}
}
