// Package workspace keeps the set of open LaTeX documents and answers the one
// structural question the build needs: which root file includes a given file.
package workspace

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Document is an open (or on-disk) LaTeX source file.
type Document struct {
	URI  string
	Text string
}

// IsStandalone reports whether the document can be compiled on its own.
func (d Document) IsStandalone() bool {
	return documentClassRe.MatchString(d.Text)
}

var (
	documentClassRe = regexp.MustCompile(`(?m)^[^%\n]*\\documentclass`)
	includeRe       = regexp.MustCompile(`\\(?:input|include|subfile)\s*\{([^}]+)\}`)
)

// maxIncludeDepth bounds the include closure walk.
const maxIncludeDepth = 16

// Workspace is the set of documents the client has opened. It is safe for
// concurrent use.
type Workspace struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// New creates an empty workspace.
func New() *Workspace {
	return &Workspace{docs: make(map[string]Document)}
}

// Put records the current text of uri, opening it if needed.
func (w *Workspace) Put(uri, text string) {
	uri = Canonical(uri)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.docs[uri] = Document{URI: uri, Text: text}
}

// Close forgets uri.
func (w *Workspace) Close(uri string) {
	uri = Canonical(uri)
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.docs, uri)
}

// Find returns the open document for uri.
func (w *Workspace) Find(uri string) (Document, bool) {
	uri = Canonical(uri)
	w.mu.RLock()
	defer w.mu.RUnlock()
	doc, ok := w.docs[uri]
	return doc, ok
}

// URIs returns the open document URIs in sorted order.
func (w *Workspace) URIs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	uris := make([]string, 0, len(w.docs))
	for uri := range w.docs {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

// FindParent returns the standalone document whose include closure contains
// uri. A standalone document is its own parent. Candidates are tried in URI
// order so the answer is deterministic.
func (w *Workspace) FindParent(uri string) (Document, bool) {
	uri = Canonical(uri)
	if doc, ok := w.Find(uri); ok && doc.IsStandalone() {
		return doc, true
	}
	for _, candidateURI := range w.URIs() {
		if candidateURI == uri {
			continue
		}
		candidate, ok := w.Find(candidateURI)
		if !ok || !candidate.IsStandalone() {
			continue
		}
		if w.includes(candidate, uri) {
			return candidate, true
		}
	}
	return Document{}, false
}

func (w *Workspace) includes(root Document, target string) bool {
	visited := map[string]struct{}{root.URI: {}}
	queue := []Document{root}
	for depth := 0; depth < maxIncludeDepth && len(queue) > 0; depth++ {
		var next []Document
		for _, doc := range queue {
			for _, child := range includedURIs(doc) {
				if child == target {
					return true
				}
				if _, seen := visited[child]; seen {
					continue
				}
				visited[child] = struct{}{}
				if childDoc, ok := w.load(child); ok {
					next = append(next, childDoc)
				}
			}
		}
		queue = next
	}
	return false
}

// load returns the open text of uri, falling back to the file on disk.
func (w *Workspace) load(uri string) (Document, bool) {
	if doc, ok := w.Find(uri); ok {
		return doc, true
	}
	path := URIToPath(uri)
	if path == "" {
		return Document{}, false
	}
	// #nosec G304 -- path comes from an include in a workspace document
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, false
	}
	return Document{URI: uri, Text: string(data)}, true
}

func includedURIs(doc Document) []string {
	base := URIToPath(doc.URI)
	if base == "" {
		return nil
	}
	dir := filepath.Dir(base)
	var out []string
	for _, line := range strings.Split(doc.Text, "\n") {
		if idx := commentStart(line); idx >= 0 {
			line = line[:idx]
		}
		for _, m := range includeRe.FindAllStringSubmatch(line, -1) {
			for _, name := range strings.Split(m[1], ",") {
				name = strings.TrimSpace(name)
				if name == "" {
					continue
				}
				if filepath.Ext(name) == "" {
					name += ".tex"
				}
				if !filepath.IsAbs(name) {
					name = filepath.Join(dir, filepath.FromSlash(name))
				}
				out = append(out, PathToURI(filepath.Clean(name)))
			}
		}
	}
	return out
}

// commentStart returns the index of the first unescaped '%' in line, or -1.
func commentStart(line string) int {
	for i := 0; i < len(line); i++ {
		if line[i] == '%' && (i == 0 || line[i-1] != '\\') {
			return i
		}
	}
	return -1
}
