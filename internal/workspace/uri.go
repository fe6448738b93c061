package workspace

import (
	"net/url"
	"path/filepath"
)

// URIToPath converts a file:// URI to an absolute local path. Anything else,
// including a bare path without a scheme, has no local path and yields "".
func URIToPath(uri string) string {
	if uri == "" {
		return ""
	}
	parsed, err := url.Parse(uri)
	if err != nil || parsed.Scheme != "file" {
		return ""
	}
	// Path is already unescaped by url.Parse
	path := parsed.Path
	if path == "" {
		return ""
	}
	path = filepath.FromSlash(path)
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return path
}

// PathToURI converts a local path to a file:// URI.
func PathToURI(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}

// IsLocal reports whether uri names a file on the local file system.
func IsLocal(uri string) bool {
	return URIToPath(uri) != ""
}

// Canonical normalizes uri so that equal files compare equal.
func Canonical(uri string) string {
	path := URIToPath(uri)
	if path == "" {
		return uri
	}
	return PathToURI(filepath.Clean(path))
}
