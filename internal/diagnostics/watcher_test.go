package diagnostics

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"texlsp/internal/workspace"
)

func TestWatcherEvictsRemovedDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.tex")
	other := filepath.Join(dir, "other.tex")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(other, []byte("y"), 0o600))

	var mu sync.Mutex
	var evicted []string
	w, err := NewWatcher(func(uri string) {
		mu.Lock()
		evicted = append(evicted, uri)
		mu.Unlock()
	}, nil)
	require.NoError(t, err)
	defer w.Close()

	uri := workspace.PathToURI(path)
	require.NoError(t, w.Track(uri))
	require.NoError(t, w.Track("untitled:Untitled-1"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.Remove(other))
	require.NoError(t, os.Remove(path))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(evicted) == 1
	}, 5*time.Second, 10*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []string{workspace.Canonical(uri)}, evicted)
	mu.Unlock()
}

func TestWatcherUntrack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.tex")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	w, err := NewWatcher(func(string) {}, nil)
	require.NoError(t, err)
	defer w.Close()

	uri := workspace.PathToURI(path)
	require.NoError(t, w.Track(uri))
	require.NoError(t, w.Track(uri))
	assert.Len(t, w.tracked, 1)
	assert.Equal(t, 1, w.dirs[dir])

	w.Untrack(uri)
	assert.Empty(t, w.tracked)
	assert.Empty(t, w.dirs)
}
