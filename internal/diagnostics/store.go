package diagnostics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// storeSchemaVersion is bumped whenever Snapshot changes shape.
const storeSchemaVersion uint16 = 1

const storeFile = "diagnostics.mp"

// Snapshot is the persisted form of every linter cache.
type Snapshot struct {
	Schema uint16
	// Tools maps tool name -> document URI -> diagnostics.
	Tools map[string]map[string][]Diagnostic
}

// DiskStore persists diagnostics between server runs. A nil store is valid
// and stores nothing.
type DiskStore struct {
	mu  sync.RWMutex
	dir string
}

// OpenDiskStore opens the store in dir, or in $XDG_CACHE_HOME/<app> when dir
// is empty.
func OpenDiskStore(dir, app string) (*DiskStore, error) {
	if dir == "" {
		base := os.Getenv("XDG_CACHE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("locate cache dir: %w", err)
			}
			base = filepath.Join(home, ".cache")
		}
		dir = filepath.Join(base, app)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Path returns the snapshot file location.
func (s *DiskStore) Path() string {
	if s == nil {
		return ""
	}
	return filepath.Join(s.dir, storeFile)
}

// Save writes the manager caches atomically.
func (s *DiskStore) Save(m *Manager) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{Schema: storeSchemaVersion, Tools: m.Snapshot()}
	f, err := os.CreateTemp(s.dir, "tmp-*")
	if err != nil {
		return fmt.Errorf("save diagnostics: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if err := msgpack.NewEncoder(f).Encode(&snap); err != nil {
		f.Close()
		return fmt.Errorf("encode diagnostics: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("save diagnostics: %w", err)
	}
	return os.Rename(tmp, s.Path())
}

// Load restores a previously saved snapshot into m. It reports false when
// there is nothing to restore or the snapshot was written by another schema.
func (s *DiskStore) Load(m *Manager) (bool, error) {
	if s == nil {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("load diagnostics: %w", err)
	}
	defer f.Close()

	var snap Snapshot
	if err := msgpack.NewDecoder(f).Decode(&snap); err != nil {
		return false, fmt.Errorf("decode diagnostics: %w", err)
	}
	if snap.Schema != storeSchemaVersion {
		return false, nil
	}
	m.Restore(snap.Tools)
	return true, nil
}
