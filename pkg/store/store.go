package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// epochLayout formats the timestamp captured once at store construction
	// and reused in every commit message the store produces.
	epochLayout = "2006-01-02_15-04"

	// timestampLayout is the fixed human-readable format for VersionRecord
	// timestamps, shared by both version-control backends.
	timestampLayout = "2006-01-02 15:04:05"
)

// Repository-scoped identity defaults so commits never depend on a global
// git configuration being present.
const (
	identityName  = "ConfVault"
	identityEmail = "confvault@git.local"
)

// Ledger operation kinds.
const (
	OpWrite    = "WRITE"     // flat snapshot write
	OpVCCommit = "VC-COMMIT" // version-control commit
)

// Options configures an ArtifactStore.
type Options struct {
	// Root is the storage directory. The store owns everything beneath it.
	Root string

	// Backend selects the persistence strategy. Immutable after construction,
	// except for the documented downgrade to KindFlat when a version-control
	// backend cannot be initialized.
	Backend Kind

	// OwnerTag identifies the logical producer in commit messages.
	// Defaults to "unknown".
	OwnerTag string

	// Simulate suppresses all filesystem and repository mutation; intended
	// effects are recorded in the dry-run ledger instead.
	Simulate bool

	// Logger receives the backend-downgrade warning and dry-run notices.
	// Defaults to slog.Default().
	Logger *slog.Logger
}

// ArtifactStore is the facade over the interchangeable backends. One instance
// serves one storage root for its lifetime.
type ArtifactStore struct {
	root     string
	kind     Kind
	ownerTag string
	epoch    string
	simulate bool
	backend  Backend
	ledger   *Ledger
	logger   *slog.Logger
}

// New constructs a store rooted at opts.Root. For version-control kinds the
// repository is initialized on first use; if the backend cannot be
// constructed or initialized the store falls back to flat storage and logs
// the downgrade rather than failing.
func New(opts Options) (*ArtifactStore, error) {
	kind, err := ParseKind(string(opts.Backend))
	if err != nil {
		return nil, err
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving storage root: %w", err)
	}

	s := &ArtifactStore{
		root:     root,
		kind:     kind,
		ownerTag: opts.OwnerTag,
		epoch:    time.Now().Format(epochLayout),
		simulate: opts.Simulate,
		logger:   opts.Logger,
	}
	if s.ownerTag == "" {
		s.ownerTag = "unknown"
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	if s.simulate {
		s.ledger = NewLedger()
		return s, nil
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating storage root: %v", ErrBackendUnavailable, err)
	}
	s.backend, s.kind = s.selectBackend(kind)
	return s, nil
}

// selectBackend constructs and initializes the requested backend, downgrading
// to flat storage when a version-control backend cannot be made ready.
func (s *ArtifactStore) selectBackend(kind Kind) (Backend, Kind) {
	if kind == KindFlat {
		return NewFlatFile(s.root), KindFlat
	}

	backend, err := NewBackend(kind, s.root)
	if err == nil && !backend.IsInitialized() {
		_, err = backend.Init()
	}
	if err != nil {
		s.logger.Warn("version-control backend unavailable, falling back to flat storage",
			"backend", string(kind),
			"root", s.root,
			"error", err)
		return NewFlatFile(s.root), KindFlat
	}
	return backend, kind
}

// NewBackend constructs the backend for kind without the facade's
// downgrade-to-flat behavior. Callers that want the fallback should use New.
func NewBackend(kind Kind, root string) (Backend, error) {
	switch kind {
	case KindFlat:
		return NewFlatFile(root), nil
	case KindGitCLI:
		return NewGitShell(root)
	case KindGitLib:
		return NewGitLib(root)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackendKind, kind)
}

// BackendKind reports the effective backend, which differs from the requested
// one after a downgrade.
func (s *ArtifactStore) BackendKind() Kind { return s.kind }

// Root returns the absolute storage root.
func (s *ArtifactStore) Root() string { return s.root }

// WriteArtifact stores one snapshot of the named artifact. Under flat storage
// it creates a fresh timestamped file; under a version-control backend it
// writes {name}.txt and creates exactly one commit unless the content is
// byte-identical to the committed state. deviceTag, when non-empty, is folded
// into the commit message.
func (s *ArtifactStore) WriteArtifact(name, content, deviceTag string) error {
	if s.kind == KindFlat {
		return s.WriteFile(name, content, "")
	}
	return s.WriteFile(trackedPath(name), content, s.commitMessage(deviceTag))
}

// WriteFile is the path-level write used by the store CLI: path is stored
// verbatim (the flat backend appends its own timestamp suffix) and message is
// used as-is, defaulting to "Add {path}" when empty.
func (s *ArtifactStore) WriteFile(path, content, message string) error {
	if s.simulate {
		op, target := OpVCCommit, path
		if s.kind == KindFlat {
			op, target = OpWrite, SnapshotName(path, time.Now())
		}
		s.ledger.Record(op, target, int64(len(content)))
		s.logger.Info("dry-run: skipping write", "path", target, "bytes", len(content))
		return nil
	}
	return s.backend.WriteFile(path, content, message)
}

// ListVersions returns newest-first history for the named artifact. Flat
// storage has no history and yields an empty result, as does simulation mode.
func (s *ArtifactStore) ListVersions(name string) ([]VersionRecord, error) {
	return s.ListFileVersions(trackedPath(name))
}

// ListFileVersions is the path-level equivalent of ListVersions.
func (s *ArtifactStore) ListFileVersions(path string) ([]VersionRecord, error) {
	if s.simulate {
		return nil, nil
	}
	return s.backend.ListVersions(path)
}

// ReadVersion returns the named artifact's content as of rev, which may be an
// 8-character abbreviation or a full commit identifier.
func (s *ArtifactStore) ReadVersion(name, rev string) (string, error) {
	return s.ReadFileVersion(trackedPath(name), rev)
}

// ReadFileVersion is the path-level equivalent of ReadVersion.
func (s *ArtifactStore) ReadFileVersion(path, rev string) (string, error) {
	if s.simulate {
		return "", fmt.Errorf("%w: version reads are skipped in dry-run mode", ErrUnsupportedOperation)
	}
	return s.backend.ReadVersion(path, rev)
}

// DiffVersions diffs the named artifact between two revisions, or between
// rev1 and the working state when rev2 is empty. Identical states yield the
// NoDifferences sentinel.
func (s *ArtifactStore) DiffVersions(name, rev1, rev2 string) (string, error) {
	return s.DiffFile(trackedPath(name), rev1, rev2)
}

// DiffFile is the path-level equivalent of DiffVersions.
func (s *ArtifactStore) DiffFile(path, rev1, rev2 string) (string, error) {
	if s.simulate {
		return "", fmt.Errorf("%w: diffs are skipped in dry-run mode", ErrUnsupportedOperation)
	}
	return s.backend.DiffVersions(path, rev1, rev2)
}

// Status summarizes per-path repository state. The flat backend has no notion
// of status and reports ErrUnsupportedOperation.
func (s *ArtifactStore) Status() (string, error) {
	if s.simulate {
		return "", fmt.Errorf("%w: status is skipped in dry-run mode", ErrUnsupportedOperation)
	}
	return s.backend.Status()
}

// DryRunSummary renders the accumulated ledger. The second return is false
// unless the store was constructed with Simulate.
func (s *ArtifactStore) DryRunSummary() (string, bool) {
	if !s.simulate {
		return "", false
	}
	return s.ledger.Summary(), true
}

// Ledger exposes the dry-run ledger for inspection; nil unless simulating.
func (s *ArtifactStore) Ledger() *Ledger { return s.ledger }

func (s *ArtifactStore) commitMessage(deviceTag string) string {
	tag := ""
	if deviceTag != "" {
		tag = fmt.Sprintf(" (%s)", deviceTag)
	}
	return fmt.Sprintf("Backup %s%s at %s", s.ownerTag, tag, s.epoch)
}

// trackedPath maps an artifact name to its tracked file inside a
// version-control backend.
func trackedPath(name string) string {
	return name + ".txt"
}

// shortHash truncates a full commit identifier to its 8-character display
// form.
func shortHash(full string) string {
	if len(full) > 8 {
		return full[:8]
	}
	return full
}

// stripSnapshotExt removes a trailing .txt so flat snapshot names never end
// up with a doubled extension.
func stripSnapshotExt(name string) string {
	return strings.TrimSuffix(name, ".txt")
}
