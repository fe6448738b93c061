package diagnostics

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"texlsp/internal/proc"
	"texlsp/internal/workspace"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeTool struct {
	calls  atomic.Int32
	inputs []string
	mu     sync.Mutex
	out    string
	err    error
}

func (f *fakeTool) run(_ context.Context, _ proc.Command, input string) ([]byte, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.inputs = append(f.inputs, input)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.out), nil
}

func newFakeLinter(tool Tool, clock *fakeClock, fake *fakeTool) *Linter {
	l := NewLinter(tool, LinterOptions{Clock: clock.Now})
	l.run = fake.run
	return l
}

func docURI(t *testing.T, name string) string {
	t.Helper()
	return workspace.PathToURI(filepath.Join(t.TempDir(), name))
}

func TestLinterThrottlesWithinInterval(t *testing.T) {
	clock := newFakeClock()
	fake := &fakeTool{out: "5:10:3:Warning:12:Command terminated with space.\n"}
	l := newFakeLinter(Chktex(), clock, fake)
	uri := docURI(t, "main.tex")

	require.True(t, l.Update(context.Background(), uri, "first"))
	first := l.Get(uri)
	require.Len(t, first, 1)

	fake.out = ""
	clock.Advance(30 * time.Second)
	assert.False(t, l.Update(context.Background(), uri, "second"))
	assert.Equal(t, int32(1), fake.calls.Load())
	assert.Equal(t, first, l.Get(uri))

	clock.Advance(31 * time.Second)
	assert.True(t, l.Update(context.Background(), uri, "third"))
	assert.Equal(t, int32(2), fake.calls.Load())
	assert.Empty(t, l.Get(uri))
}

func TestLinterThrottleIsSharedAcrossDocuments(t *testing.T) {
	clock := newFakeClock()
	fake := &fakeTool{out: "& hte 1 3: the\n"}
	l := newFakeLinter(Hunspell(), clock, fake)
	a, b := docURI(t, "a.tex"), docURI(t, "b.tex")

	require.True(t, l.Update(context.Background(), a, "hte"))
	clock.Advance(5 * time.Second)
	assert.False(t, l.Update(context.Background(), b, "hte"))
	_, ok := l.Lookup(b)
	assert.False(t, ok)

	clock.Advance(6 * time.Second)
	assert.True(t, l.Update(context.Background(), b, "hte"))
	assert.Len(t, l.Get(b), 1)
}

func TestLinterIgnoresNonFileDocuments(t *testing.T) {
	clock := newFakeClock()
	fake := &fakeTool{}
	l := newFakeLinter(Chktex(), clock, fake)

	assert.False(t, l.Update(context.Background(), "untitled:Untitled-1", "text"))
	assert.Equal(t, int32(0), fake.calls.Load())
	_, ok := l.Lookup("untitled:Untitled-1")
	assert.False(t, ok)

	// a skipped document does not consume the throttle
	assert.True(t, l.Update(context.Background(), docURI(t, "main.tex"), "text"))
}

func TestLinterFailureYieldsEmptySet(t *testing.T) {
	clock := newFakeClock()
	fake := &fakeTool{err: errors.New("exec: \"chktex\": executable file not found")}
	l := newFakeLinter(Chktex(), clock, fake)
	uri := docURI(t, "main.tex")

	assert.True(t, l.Update(context.Background(), uri, "text"))
	diags, ok := l.Lookup(uri)
	assert.True(t, ok)
	assert.NotNil(t, diags)
	assert.Empty(t, diags)
}

func TestLinterFeedsFramedInput(t *testing.T) {
	clock := newFakeClock()
	fake := &fakeTool{}
	l := newFakeLinter(Hunspell(), clock, fake)

	l.Update(context.Background(), docURI(t, "main.tex"), "Hello")
	require.Len(t, fake.inputs, 1)
	assert.Equal(t, "Hello/n/n/0", fake.inputs[0])
}

func TestLinterLookupDistinguishesNeverLinted(t *testing.T) {
	clock := newFakeClock()
	l := newFakeLinter(Chktex(), clock, &fakeTool{})
	uri := docURI(t, "main.tex")

	_, ok := l.Lookup(uri)
	assert.False(t, ok)
	assert.Empty(t, l.Get(uri))

	l.Update(context.Background(), uri, "clean")
	diags, ok := l.Lookup(uri)
	assert.True(t, ok)
	assert.Empty(t, diags)

	l.Evict(uri)
	_, ok = l.Lookup(uri)
	assert.False(t, ok)
}

func TestLinterWithoutInterval(t *testing.T) {
	clock := newFakeClock()
	tool := Chktex()
	tool.Interval = 0
	fake := &fakeTool{}
	l := newFakeLinter(tool, clock, fake)
	uri := docURI(t, "main.tex")

	for i := 0; i < 3; i++ {
		assert.True(t, l.Update(context.Background(), uri, "x"))
	}
	assert.Equal(t, int32(3), fake.calls.Load())
}

func TestLinterRunsRealProcess(t *testing.T) {
	if _, err := proc.Pipe(context.Background(), proc.Command{Name: "cat"}, ""); err != nil {
		t.Skip("cat not available")
	}
	tool := Tool{
		Name:    "cat",
		Command: proc.Command{Name: "cat"},
		Parse:   ParseChktex,
	}
	l := NewLinter(tool, LinterOptions{})
	uri := docURI(t, "main.tex")

	require.True(t, l.Update(context.Background(), uri, "3:1:2:Message:8:Wrong length of dash may have been used.\n"))
	diags := l.Get(uri)
	require.Len(t, diags, 1)
	assert.Equal(t, lineRange(2, 0, 2), diags[0].Range)
}
