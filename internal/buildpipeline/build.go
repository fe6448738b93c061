// Package buildpipeline runs the LaTeX compiler for build requests, streams
// its output to the client and reports work-done progress.
package buildpipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"texlsp/internal/logfields"
	"texlsp/internal/metrics"
	"texlsp/internal/proc"
	"texlsp/internal/progress"
	"texlsp/internal/trace"
	"texlsp/internal/workspace"
)

// OrchestratorOptions configures an Orchestrator.
type OrchestratorOptions struct {
	// TokenPrefix is used to mint progress tokens; progress.DefaultPrefix when empty.
	TokenPrefix string
	Recorder    metrics.Recorder
	Logger      *slog.Logger
}

// Orchestrator runs builds. Builds may run concurrently; they share only the
// registry.
type Orchestrator struct {
	client   Client
	graph    DocumentGraph
	registry *progress.Registry
	prefix   string
	recorder metrics.Recorder
	logger   *slog.Logger
}

// NewOrchestrator wires an orchestrator to the client connection, the
// document graph and the process-wide token registry.
func NewOrchestrator(client Client, graph DocumentGraph, registry *progress.Registry, opts OrchestratorOptions) *Orchestrator {
	prefix := opts.TokenPrefix
	if prefix == "" {
		prefix = progress.DefaultPrefix
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		client:   client,
		graph:    graph,
		registry: registry,
		prefix:   prefix,
		recorder: metrics.OrNoop(opts.Recorder),
		logger:   logger,
	}
}

// Build compiles the root document of uri. It always returns a Result; the
// build is aborted with StatusCancelled when ctx is cancelled or when its token
// is cancelled through the registry.
func (o *Orchestrator) Build(ctx context.Context, uri string, opts Options) Result {
	started := time.Now()
	root := o.resolveRoot(uri)
	path := workspace.URIToPath(root)
	token := progress.NewToken(o.prefix)

	ctx, span := trace.Start(ctx, trace.ScopeRequest, "build")
	buildCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.registry.Register(token, cancel)
	o.recorder.SetBuildsInFlight(o.registry.Len())
	defer func() {
		o.registry.Remove(token)
		o.recorder.SetBuildsInFlight(o.registry.Len())
	}()

	log := o.logger.With(logfields.Token(token.String()), logfields.URI(root))
	if opts.Progress {
		o.client.ProgressBegin(buildCtx, token, buildTitle(root, path))
		defer o.client.ProgressEnd(context.WithoutCancel(ctx), token)
	}

	fwd := &lineForwarder{ctx: buildCtx, client: o.client}
	done := make(chan Status, 1)
	go func() {
		done <- o.run(buildCtx, path, opts, fwd, log)
	}()

	var status Status
	select {
	case status = <-done:
		if buildCtx.Err() != nil {
			status = StatusCancelled
		}
	case <-buildCtx.Done():
		status = StatusCancelled
	}
	fwd.close()

	elapsed := time.Since(started)
	o.recorder.ObserveBuild(status.String(), elapsed)
	span.WithExtra("status", status.String()).End(filepath.Base(path))
	log.Info("build finished", logfields.Status(status.String()), logfields.Duration(elapsed))
	return Result{Status: status}
}

// Cancel aborts the build registered under token, or every build when token
// is the wildcard. Unknown tokens are ignored.
func (o *Orchestrator) Cancel(token progress.Token) {
	n := o.registry.Cancel(token)
	o.logger.Debug("build cancel requested", logfields.Token(token.String()), logfields.Count(n))
}

// resolveRoot picks the file the compiler must be run on: the including root
// document, else the document itself, else the bare uri.
func (o *Orchestrator) resolveRoot(uri string) string {
	if o.graph != nil {
		if parent, ok := o.graph.FindParent(uri); ok {
			return parent.URI
		}
		if doc, ok := o.graph.Find(uri); ok {
			return doc.URI
		}
	}
	return workspace.Canonical(uri)
}

func (o *Orchestrator) run(ctx context.Context, path string, opts Options, fwd *lineForwarder, log *slog.Logger) Status {
	if path == "" {
		log.Warn("build target is not a local file")
		return StatusFailure
	}
	if opts.Executable == "" {
		opts.Executable = DefaultOptions().Executable
	}
	args := make([]string, 0, len(opts.Args)+1)
	args = append(args, opts.Args...)
	args = append(args, filepath.Base(path))
	cmd := proc.Command{Name: opts.Executable, Args: args, Dir: filepath.Dir(path)}

	_, span := trace.Start(ctx, trace.ScopeTool, opts.Executable)
	log.Debug("starting compiler", logfields.Command(cmd.String()))
	ok, err := proc.Run(ctx, cmd, fwd.forward)
	span.End("")
	switch {
	case err != nil:
		if ctx.Err() == nil {
			log.Warn("compiler failed to run", logfields.Command(cmd.String()), logfields.Error(err))
		}
		return StatusFailure
	case ok:
		return StatusSuccess
	default:
		return StatusError
	}
}

func buildTitle(root, path string) string {
	if path == "" {
		return root
	}
	return filepath.Base(path)
}

// lineForwarder relays compiler output to the client until the build settles.
// Once closed, late lines from a dying process are dropped so that nothing is
// logged after the matching progress end.
type lineForwarder struct {
	ctx    context.Context
	client Client
	mu     sync.Mutex
	closed bool
}

func (f *lineForwarder) forward(line string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.client.LogMessage(f.ctx, line)
}

func (f *lineForwarder) close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}
