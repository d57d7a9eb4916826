package store

import (
	"errors"
	"fmt"
)

// Kind selects one of the interchangeable persistence backends.
type Kind string

const (
	// KindFlat stores one timestamped file per write with no history.
	KindFlat Kind = "flat"

	// KindGitCLI drives the git executable as subprocesses.
	KindGitCLI Kind = "git"

	// KindGitLib manipulates repository objects in-process via go-git.
	KindGitLib Kind = "gogit"
)

// ParseKind validates a backend selector string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindFlat, KindGitCLI, KindGitLib:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w: %q (valid: flat, git, gogit)", ErrUnknownBackendKind, s)
}

// VersionRecord is one historical entry for an artifact. Records are derived
// on demand from backend history; the version-control object store is the
// source of truth.
type VersionRecord struct {
	ShortHash string `json:"short_hash"` // first 8 hex characters, for display
	FullHash  string `json:"full_hash"`  // complete commit identifier, for lookups
	Timestamp string `json:"timestamp"`  // commit time as "YYYY-MM-DD HH:MM:SS"
	Message   string `json:"message"`    // commit message
}

// NoDifferences is the literal sentinel returned by diff operations when the
// two compared states are identical. It is never the empty string, so callers
// can distinguish "ran successfully, nothing changed" from "did not run".
const NoDifferences = "No differences found."

// Error taxonomy. Backend-internal failures (subprocess exit codes, go-git
// errors) are wrapped into one of these at the backend boundary with the
// original diagnostic preserved; raw backend failure types never cross the
// facade.
var (
	// ErrBackendUnavailable reports a construction or runtime failure of the
	// selected backend.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrUninitializedRepository reports an operation invoked before the
	// underlying tracked tree exists.
	ErrUninitializedRepository = errors.New("repository not initialized")

	// ErrVersionNotFound reports an unresolvable revision, or a path absent
	// from the resolved commit's tree.
	ErrVersionNotFound = errors.New("version not found")

	// ErrUnknownBackendKind reports an invalid backend selector.
	ErrUnknownBackendKind = errors.New("unknown backend kind")

	// ErrUnsupportedOperation reports a history query against the flat
	// backend, which is a deliberate capability gap rather than a failure.
	ErrUnsupportedOperation = errors.New("operation not supported by this backend")
)

// Backend is the capability set shared by all persistence strategies. The two
// version-control variants implement identical semantics; a shared contract
// test suite asserts they agree on commit counts for identical operation
// sequences.
type Backend interface {
	// IsInitialized reports whether the backend's persistent state exists at
	// the storage root.
	IsInitialized() bool

	// Init creates the persistent state. It returns false without error when
	// the backend was already initialized (a reported no-op, not a failure).
	Init() (bool, error)

	// WriteFile writes content to path and records it with message. Writing
	// content identical to the currently committed state succeeds without
	// creating new history.
	WriteFile(path, content, message string) error

	// ListVersions returns newest-first history restricted to commits that
	// touched path.
	ListVersions(path string) ([]VersionRecord, error)

	// ReadVersion returns the content of path as of rev, where rev may be a
	// short-hash prefix or a full identifier.
	ReadVersion(path, rev string) (string, error)

	// DiffVersions diffs path between two revisions, or between rev1 and the
	// working state when rev2 is empty. Identical states yield NoDifferences.
	DiffVersions(path, rev1, rev2 string) (string, error)

	// Status summarizes per-path repository state.
	Status() (string, error)
}
