package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// snapshotStampLayout is the timestamp suffix on flat snapshot files,
// MM-DD-YYYY_HH-mm.
const snapshotStampLayout = "01-02-2006_15-04"

// FlatFile stores each write as a new timestamped snapshot file. It keeps no
// deduplication and no queryable history; the missing history support is a
// deliberate capability gap reported via ErrUnsupportedOperation, not a bug.
type FlatFile struct {
	root string
}

// NewFlatFile returns a flat backend rooted at root.
func NewFlatFile(root string) *FlatFile {
	return &FlatFile{root: root}
}

// SnapshotName returns the timestamped file name a snapshot of name would be
// written to at time t.
func SnapshotName(name string, t time.Time) string {
	return fmt.Sprintf("%s_%s.txt", stripSnapshotExt(name), t.Format(snapshotStampLayout))
}

// IsInitialized reports whether the storage directory exists.
func (f *FlatFile) IsInitialized() bool {
	info, err := os.Stat(f.root)
	return err == nil && info.IsDir()
}

// Init creates the storage directory. Already existing is a no-op.
func (f *FlatFile) Init() (bool, error) {
	if f.IsInitialized() {
		return false, nil
	}
	if err := os.MkdirAll(f.root, 0o755); err != nil {
		return false, fmt.Errorf("%w: creating storage directory: %v", ErrBackendUnavailable, err)
	}
	return true, nil
}

// WriteFile always creates a fresh snapshot; prior snapshots are never
// overwritten. message is ignored because there is no history to attach it to.
func (f *FlatFile) WriteFile(path, content, message string) error {
	if err := os.MkdirAll(f.root, 0o755); err != nil {
		return fmt.Errorf("%w: creating storage directory: %v", ErrBackendUnavailable, err)
	}
	full := filepath.Join(f.root, SnapshotName(path, time.Now()))
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", full, err)
	}
	return nil
}

// ListVersions reports no history: flat storage tracks none.
func (f *FlatFile) ListVersions(path string) ([]VersionRecord, error) {
	return nil, nil
}

// ReadVersion is unsupported for flat storage.
func (f *FlatFile) ReadVersion(path, rev string) (string, error) {
	return "", fmt.Errorf("%w: flat storage keeps no version history", ErrUnsupportedOperation)
}

// DiffVersions is unsupported for flat storage.
func (f *FlatFile) DiffVersions(path, rev1, rev2 string) (string, error) {
	return "", fmt.Errorf("%w: flat storage keeps no version history", ErrUnsupportedOperation)
}

// Status is unsupported for flat storage: there is no per-file state beyond
// the snapshots themselves.
func (f *FlatFile) Status() (string, error) {
	return "", fmt.Errorf("%w: flat storage has no repository status", ErrUnsupportedOperation)
}
