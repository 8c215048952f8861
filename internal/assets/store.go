// Package assets resolves and inspects the on-disk model cache: canonical
// paths, completeness, installed size, and removal.
package assets

import (
	"os"
	"path/filepath"

	"whisperd/internal/catalog"
	"whisperd/internal/common/fsutil"
)

// SnapshotsDir is the marker subdirectory whose non-empty presence
// declares a model's assets complete. Partial downloads never create it.
const SnapshotsDir = "snapshots"

// DefaultRoot is the conventional cache location shared with other hub
// consumers on the same machine.
const DefaultRoot = "~/.cache/huggingface/hub"

// Store reads and mutates one model cache root.
type Store struct {
	root string
}

// New builds a Store for root, expanding a leading '~'. An empty root
// selects DefaultRoot.
func New(root string) (*Store, error) {
	if root == "" {
		root = DefaultRoot
	}
	expanded, err := fsutil.ExpandHome(root)
	if err != nil {
		return nil, err
	}
	return &Store{root: expanded}, nil
}

// Root returns the expanded cache root.
func (s *Store) Root() string { return s.root }

// ResolvePath maps id to its cache directory. The second result is false
// for plain identifiers outside the catalog, which have no canonical
// location.
func (s *Store) ResolvePath(id string) (string, bool) {
	name, ok := catalog.CacheDirName(id)
	if !ok {
		return "", false
	}
	return filepath.Join(s.root, name), true
}

// IsComplete reports whether id's assets carry a non-empty snapshots
// marker. Raw bytes without the marker are an unfinished download.
func (s *Store) IsComplete(id string) bool {
	dir, ok := s.ResolvePath(id)
	if !ok {
		return false
	}
	entries, err := os.ReadDir(filepath.Join(dir, SnapshotsDir))
	if err != nil {
		return false
	}
	return len(entries) > 0
}

// SnapshotModelFile resolves the weights file inside id's snapshot. The
// second result is false when no complete snapshot carries one.
func (s *Store) SnapshotModelFile(id string) (string, bool) {
	dir, ok := s.ResolvePath(id)
	if !ok {
		return "", false
	}
	snaps := filepath.Join(dir, SnapshotsDir)
	entries, err := os.ReadDir(snaps)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		p := filepath.Join(snaps, e.Name(), "model.bin")
		if fsutil.PathExists(p) {
			return p, true
		}
	}
	return "", false
}

// InstalledSize reports the bytes currently on disk for id, staging areas
// included. Unknown or absent models report zero.
func (s *Store) InstalledSize(id string) int64 {
	dir, ok := s.ResolvePath(id)
	if !ok {
		return 0
	}
	return fsutil.DirSize(dir)
}

// Remove deletes id's cache directory and reports the bytes freed.
// A model with no installed assets returns os.ErrNotExist.
func (s *Store) Remove(id string) (int64, error) {
	dir, ok := s.ResolvePath(id)
	if !ok || !fsutil.PathExists(dir) {
		return 0, os.ErrNotExist
	}
	freed := fsutil.DirSize(dir)
	if err := os.RemoveAll(dir); err != nil {
		return 0, err
	}
	return freed, nil
}
