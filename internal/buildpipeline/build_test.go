package buildpipeline

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"texlsp/internal/progress"
	"texlsp/internal/workspace"
)

type recordingClient struct {
	mu     sync.Mutex
	events []Event
	onLog  func(line string)
	begun  chan progress.Token
}

func newRecordingClient() *recordingClient {
	return &recordingClient{begun: make(chan progress.Token, 8)}
}

func (c *recordingClient) LogMessage(_ context.Context, message string) {
	c.mu.Lock()
	c.events = append(c.events, Event{Kind: EventLog, Line: message})
	onLog := c.onLog
	c.mu.Unlock()
	if onLog != nil {
		onLog(message)
	}
}

func (c *recordingClient) ProgressBegin(_ context.Context, token progress.Token, title string) {
	c.mu.Lock()
	c.events = append(c.events, Event{Kind: EventBegin, Token: token, Title: title})
	c.mu.Unlock()
	c.begun <- token
}

func (c *recordingClient) ProgressEnd(_ context.Context, token progress.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, Event{Kind: EventEnd, Token: token})
}

func (c *recordingClient) snapshot() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake compiler scripts need a POSIX sh")
	}
	path := filepath.Join(dir, "fake-compiler")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o700))
	return path
}

func newTestOrchestrator(client Client, graph DocumentGraph) (*Orchestrator, *progress.Registry) {
	reg := progress.NewRegistry(progress.Wildcard(progress.DefaultPrefix))
	return NewOrchestrator(client, graph, reg, OrchestratorOptions{}), reg
}

func assertPairedProgress(t *testing.T, events []Event) {
	t.Helper()
	require.NotEmpty(t, events)
	begins, ends := 0, 0
	for _, ev := range events {
		switch ev.Kind {
		case EventBegin:
			begins++
		case EventEnd:
			ends++
		}
	}
	assert.Equal(t, 1, begins, "progress begin count")
	assert.Equal(t, 1, ends, "progress end count")
	assert.Equal(t, EventBegin, events[0].Kind)
	assert.Equal(t, EventEnd, events[len(events)-1].Kind)
	assert.Equal(t, events[0].Token, events[len(events)-1].Token)
}

func TestBuildSuccessStreamsLogLines(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, `echo "args: $@"; echo "cwd: $(pwd -P)"; exit 0`)
	uri := workspace.PathToURI(filepath.Join(dir, "main.tex"))
	client := newRecordingClient()
	orch, reg := newTestOrchestrator(client, workspace.New())

	res := orch.Build(context.Background(), uri, Options{Executable: script, Args: []string{"-pdf"}, Progress: true})

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 0, reg.Len())
	events := client.snapshot()
	assertPairedProgress(t, events)
	assert.Equal(t, "main.tex", events[0].Title)
	require.Len(t, events, 4)
	assert.Equal(t, "args: -pdf main.tex", events[1].Line)
	realDir, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, "cwd: "+realDir, events[2].Line)
}

func TestBuildNonZeroExitIsError(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, `echo "! Undefined control sequence." 1>&2; exit 12`)
	client := newRecordingClient()
	orch, reg := newTestOrchestrator(client, nil)

	res := orch.Build(context.Background(), workspace.PathToURI(filepath.Join(dir, "main.tex")), Options{Executable: script, Progress: true})

	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, 0, reg.Len())
	assertPairedProgress(t, client.snapshot())
}

func TestBuildSpawnFailureIsFailure(t *testing.T) {
	client := newRecordingClient()
	orch, reg := newTestOrchestrator(client, nil)

	res := orch.Build(context.Background(), workspace.PathToURI(filepath.Join(t.TempDir(), "main.tex")), Options{Executable: "texlsp-missing-compiler", Progress: true})

	assert.Equal(t, StatusFailure, res.Status)
	assert.Equal(t, 0, reg.Len())
	assertPairedProgress(t, client.snapshot())
}

func TestBuildNonLocalDocumentIsFailure(t *testing.T) {
	client := newRecordingClient()
	orch, _ := newTestOrchestrator(client, nil)

	res := orch.Build(context.Background(), "untitled:Untitled-1", Options{Executable: "latexmk", Progress: true})

	assert.Equal(t, StatusFailure, res.Status)
	events := client.snapshot()
	assertPairedProgress(t, events)
	assert.Equal(t, "untitled:Untitled-1", events[0].Title)
}

func TestBuildWithoutProgressSupport(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, `echo hello`)
	client := newRecordingClient()
	orch, _ := newTestOrchestrator(client, nil)

	res := orch.Build(context.Background(), workspace.PathToURI(filepath.Join(dir, "main.tex")), Options{Executable: script})

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, []Event{{Kind: EventLog, Line: "hello"}}, client.snapshot())
}

func TestBuildCompilesIncludingRoot(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, `echo "$@"`)
	root := workspace.PathToURI(filepath.Join(dir, "thesis.tex"))
	child := workspace.PathToURI(filepath.Join(dir, "chapter.tex"))
	ws := workspace.New()
	ws.Put(root, "\\documentclass{report}\n\\include{chapter}\n")
	ws.Put(child, "Body")
	client := newRecordingClient()
	orch, _ := newTestOrchestrator(client, ws)

	res := orch.Build(context.Background(), child, Options{Executable: script, Progress: true})

	assert.Equal(t, StatusSuccess, res.Status)
	events := client.snapshot()
	assert.Equal(t, "thesis.tex", events[0].Title)
	assert.Equal(t, "thesis.tex", events[1].Line)
}

func TestCancelTokenAbortsBuild(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, `echo started; sleep 30`)
	client := newRecordingClient()
	orch, reg := newTestOrchestrator(client, nil)
	started := make(chan struct{})
	var once sync.Once
	client.onLog = func(string) { once.Do(func() { close(started) }) }

	resCh := make(chan Result, 1)
	go func() {
		resCh <- orch.Build(context.Background(), workspace.PathToURI(filepath.Join(dir, "main.tex")), Options{Executable: script, Progress: true})
	}()
	token := <-client.begun
	<-started
	assert.True(t, reg.Has(token))
	orch.Cancel(token)

	select {
	case res := <-resCh:
		assert.Equal(t, StatusCancelled, res.Status)
	case <-time.After(10 * time.Second):
		t.Fatal("build did not settle after cancellation")
	}
	assert.False(t, reg.Has(token))
	assertPairedProgress(t, client.snapshot())
}

func TestWildcardCancelAbortsAllBuilds(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, `sleep 30`)
	client := newRecordingClient()
	orch, reg := newTestOrchestrator(client, nil)

	const builds = 3
	resCh := make(chan Result, builds)
	for i := 0; i < builds; i++ {
		go func() {
			resCh <- orch.Build(context.Background(), workspace.PathToURI(filepath.Join(dir, "main.tex")), Options{Executable: script, Progress: true})
		}()
	}
	for i := 0; i < builds; i++ {
		<-client.begun
	}
	orch.Cancel(progress.Wildcard(progress.DefaultPrefix))

	for i := 0; i < builds; i++ {
		select {
		case res := <-resCh:
			assert.Equal(t, StatusCancelled, res.Status)
		case <-time.After(10 * time.Second):
			t.Fatal("build did not settle after wildcard cancellation")
		}
	}
	assert.Equal(t, 0, reg.Len())
}

func TestCancelUnknownTokenLeavesBuildRunning(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, `sleep 1; echo finished`)
	client := newRecordingClient()
	orch, _ := newTestOrchestrator(client, nil)

	resCh := make(chan Result, 1)
	go func() {
		resCh <- orch.Build(context.Background(), workspace.PathToURI(filepath.Join(dir, "main.tex")), Options{Executable: script, Progress: true})
	}()
	<-client.begun
	orch.Cancel(progress.StringToken("texlab-build-unknown"))

	res := <-resCh
	assert.Equal(t, StatusSuccess, res.Status)
}

func TestContextCancellationCancelsBuild(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, `sleep 30`)
	client := newRecordingClient()
	orch, reg := newTestOrchestrator(client, nil)
	ctx, cancel := context.WithCancel(context.Background())

	resCh := make(chan Result, 1)
	go func() {
		resCh <- orch.Build(ctx, workspace.PathToURI(filepath.Join(dir, "main.tex")), Options{Executable: script, Progress: true})
	}()
	<-client.begun
	cancel()

	res := <-resCh
	assert.Equal(t, StatusCancelled, res.Status)
	assert.Equal(t, 0, reg.Len())
	assertPairedProgress(t, client.snapshot())
}

func TestChannelSinkForwardsEvents(t *testing.T) {
	ch := make(chan Event, 3)
	sink := ChannelSink{Ch: ch}
	token := progress.StringToken("t")
	sink.ProgressBegin(context.Background(), token, "main.tex")
	sink.LogMessage(context.Background(), "line")
	sink.ProgressEnd(context.Background(), token)
	close(ch)

	var kinds []EventKind
	for ev := range ch {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []EventKind{EventBegin, EventLog, EventEnd}, kinds)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "cancelled", StatusCancelled.String())
	assert.Equal(t, "status(9)", Status(9).String())
	assert.Equal(t, "latexmk -pdf -interaction=nonstopmode -synctex=1", DefaultOptions().String())
}
