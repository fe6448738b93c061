// Package lsp speaks JSON-RPC with the editor: it routes document events to
// the linters, build requests to the orchestrator and sends back logs,
// progress and diagnostics.
package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"texlsp/internal/buildpipeline"
	"texlsp/internal/diagnostics"
	"texlsp/internal/logfields"
	"texlsp/internal/metrics"
	"texlsp/internal/progress"
	"texlsp/internal/trace"
	"texlsp/internal/version"
	"texlsp/internal/workspace"
)

var (
	// ErrExit signals a graceful shutdown after receiving "exit".
	ErrExit = errors.New("lsp exit")
	// ErrExitWithoutShutdown signals an "exit" without a preceding "shutdown".
	ErrExitWithoutShutdown = errors.New("lsp exit without shutdown")
)

// ServerOptions configures LSP server behavior.
type ServerOptions struct {
	// Diagnostics is nil when linting is disabled.
	Diagnostics *diagnostics.Manager
	// Registry is shared by every connection of the process; a private one is
	// created when nil.
	Registry    *progress.Registry
	Build       buildpipeline.Options
	TokenPrefix string
	// WatchFiles evicts diagnostics of documents deleted on disk.
	WatchFiles bool
	// ProgressTimeout bounds the wait for the client to accept a progress token.
	ProgressTimeout time.Duration
	Recorder        metrics.Recorder
	Logger          *slog.Logger
}

// Server handles one JSON-RPC connection.
type Server struct {
	in     *bufio.Reader
	out    *bufio.Writer
	sendMu sync.Mutex
	mu     sync.Mutex

	workspace    *workspace.Workspace
	orchestrator *buildpipeline.Orchestrator
	diagnostics  *diagnostics.Manager
	watcher      *diagnostics.Watcher
	watchFiles   bool
	logger       *slog.Logger

	build             buildpipeline.Options
	buildOnSave       bool
	workDoneProgress  bool
	shutdownRequested bool
	progressTimeout   time.Duration

	baseCtx context.Context
	tasks   sync.WaitGroup

	nextID    atomic.Int64
	pendingMu sync.Mutex
	pending   map[string]chan *rpcMessage
}

// NewServer constructs a server reading from in and writing to out.
func NewServer(in io.Reader, out io.Writer, opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	prefix := opts.TokenPrefix
	if prefix == "" {
		prefix = progress.DefaultPrefix
	}
	registry := opts.Registry
	if registry == nil {
		registry = progress.NewRegistry(progress.Wildcard(prefix))
	}
	build := opts.Build
	if build.Executable == "" {
		build = buildpipeline.DefaultOptions()
	}
	timeout := opts.ProgressTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	s := &Server{
		in:              bufio.NewReader(in),
		out:             bufio.NewWriter(out),
		workspace:       workspace.New(),
		diagnostics:     opts.Diagnostics,
		watchFiles:      opts.WatchFiles,
		logger:          logger,
		build:           build,
		progressTimeout: timeout,
		baseCtx:         context.Background(),
		pending:         make(map[string]chan *rpcMessage),
	}
	s.orchestrator = buildpipeline.NewOrchestrator(s, s.workspace, registry, buildpipeline.OrchestratorOptions{
		TokenPrefix: prefix,
		Recorder:    opts.Recorder,
		Logger:      logger,
	})
	return s
}

// Run serves requests until the client exits or the stream ends. Background
// builds and lint passes are cancelled and awaited before it returns.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.baseCtx = ctx
	defer func() {
		cancel()
		s.tasks.Wait()
		if s.watcher != nil {
			_ = s.watcher.Close()
		}
		s.releaseDocuments()
	}()

	if s.watchFiles && s.diagnostics != nil {
		w, err := diagnostics.NewWatcher(s.handleFileGone, s.logger)
		if err != nil {
			s.logger.Warn("file watching disabled", logfields.Error(err))
		} else {
			s.watcher = w
			s.goTask(func() { w.Run(ctx) })
		}
	}

	_, span := trace.Start(ctx, trace.ScopeServer, "lsp")
	defer span.End("")

	for {
		payload, err := readMessage(s.in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logger.Warn("failed to parse message", logfields.Error(err))
			continue
		}
		if msg.isResponse() {
			s.resolve(&msg)
			continue
		}
		if msg.Method == "" {
			continue
		}
		if err := s.handleMessage(ctx, &msg); err != nil {
			return err
		}
	}
}

func (s *Server) handleMessage(ctx context.Context, msg *rpcMessage) error {
	if s.isShuttingDown() && msg.isRequest() && msg.Method != "shutdown" {
		return s.sendError(msg.ID, codeInvalidRequest, "server is shutting down")
	}
	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		return nil
	case "shutdown":
		return s.handleShutdown(msg)
	case "exit":
		if s.isShuttingDown() {
			return ErrExit
		}
		return ErrExitWithoutShutdown
	case "workspace/didChangeConfiguration":
		return s.handleDidChangeConfiguration(msg)
	case "textDocument/didOpen":
		return s.handleDidOpen(msg)
	case "textDocument/didChange":
		return s.handleDidChange(msg)
	case "textDocument/didSave":
		return s.handleDidSave(msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	case "textDocument/build":
		return s.handleBuild(msg)
	case "window/workDoneProgress/cancel":
		return s.handleCancel(msg)
	case "$/cancelRequest", "$/setTrace":
		return nil
	default:
		if msg.isRequest() {
			return s.sendError(msg.ID, codeMethodNotFound, "method not found")
		}
		s.logger.Debug("ignored notification", logfields.Method(msg.Method))
		return nil
	}
}

func (s *Server) handleInitialize(msg *rpcMessage) error {
	var params initializeParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return s.sendError(msg.ID, codeInvalidParams, "invalid params")
		}
	}
	s.mu.Lock()
	s.workDoneProgress = params.Capabilities.workDoneProgress()
	s.mu.Unlock()
	s.applySettings(params.InitializationOptions)

	result := initializeResult{
		Capabilities: serverCapabilities{
			TextDocumentSync: textDocumentSyncOptions{
				OpenClose: true,
				Change:    2,
				Save:      saveOptions{IncludeText: true},
			},
		},
		ServerInfo: serverInfo{Name: "texlsp", Version: version.Version},
	}
	return s.sendResponse(msg.ID, result)
}

func (s *Server) handleShutdown(msg *rpcMessage) error {
	s.mu.Lock()
	s.shutdownRequested = true
	s.mu.Unlock()
	return s.sendResponse(msg.ID, nil)
}

func (s *Server) handleDidOpen(msg *rpcMessage) error {
	var params didOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := workspace.Canonical(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	_, reopened := s.workspace.Find(uri)
	s.workspace.Put(uri, params.TextDocument.Text)
	if s.diagnostics != nil && !reopened {
		s.diagnostics.Acquire(uri)
	}
	if s.watcher != nil {
		if err := s.watcher.Track(uri); err != nil {
			s.logger.Debug("cannot watch document", logfields.URI(uri), logfields.Error(err))
		}
	}
	s.scheduleLint(uri, params.TextDocument.Text)
	return nil
}

func (s *Server) handleDidChange(msg *rpcMessage) error {
	var params didChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := workspace.Canonical(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	doc, ok := s.workspace.Find(uri)
	if !ok {
		return nil
	}
	text := applyChanges(doc.Text, params.ContentChanges)
	s.workspace.Put(uri, text)
	s.scheduleLint(uri, text)
	return nil
}

func (s *Server) handleDidSave(msg *rpcMessage) error {
	var params didSaveTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := workspace.Canonical(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	doc, ok := s.workspace.Find(uri)
	if !ok {
		return nil
	}
	if params.Text != nil {
		doc.Text = *params.Text
		s.workspace.Put(uri, doc.Text)
	}
	s.scheduleLint(uri, doc.Text)
	if s.currentBuildOnSave() {
		s.goTask(func() { s.orchestrator.Build(s.baseCtx, uri, s.currentBuildOptions()) })
	}
	return nil
}

func (s *Server) handleDidClose(msg *rpcMessage) error {
	var params didCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := workspace.Canonical(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	_, wasOpen := s.workspace.Find(uri)
	s.workspace.Close(uri)
	if s.watcher != nil {
		s.watcher.Untrack(uri)
	}
	if s.diagnostics != nil {
		// another session sharing the manager may still have it open
		if wasOpen {
			s.diagnostics.Release(uri)
		}
		if err := s.sendPublish(uri, nil); err != nil {
			s.logger.Warn("failed to clear diagnostics", logfields.URI(uri), logfields.Error(err))
		}
	}
	return nil
}

// releaseDocuments gives up the documents the client left open.
func (s *Server) releaseDocuments() {
	if s.diagnostics == nil {
		return
	}
	for _, uri := range s.workspace.URIs() {
		s.workspace.Close(uri)
		s.diagnostics.Release(uri)
	}
}

func (s *Server) goTask(fn func()) {
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		fn()
	}()
}

func (s *Server) sendResponse(id json.RawMessage, result any) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	}
	return s.send(msg)
}

func (s *Server) sendError(id json.RawMessage, code int, message string) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": rpcError{
			Code:    code,
			Message: message,
		},
	}
	return s.send(msg)
}

func (s *Server) notify(method string, params any) error {
	return s.send(map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	})
}

func (s *Server) send(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := writeMessage(s.out, payload); err != nil {
		return err
	}
	return s.out.Flush()
}
