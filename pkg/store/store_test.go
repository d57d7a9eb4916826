package store

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for _, valid := range []string{"flat", "git", "gogit"} {
		kind, err := ParseKind(valid)
		require.NoError(t, err)
		assert.Equal(t, Kind(valid), kind)
	}

	_, err := ParseKind("svn")
	assert.ErrorIs(t, err, ErrUnknownBackendKind)

	_, err = ParseKind("")
	assert.ErrorIs(t, err, ErrUnknownBackendKind)
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(Options{Root: t.TempDir(), Backend: "bogus"})
	assert.ErrorIs(t, err, ErrUnknownBackendKind)
}

func TestNew_FlatBackend(t *testing.T) {
	root := filepath.Join(t.TempDir(), "store")
	s, err := New(Options{Root: root, Backend: KindFlat})
	require.NoError(t, err)

	assert.Equal(t, KindFlat, s.BackendKind())
	assert.DirExists(t, root)
}

func TestNew_GitLibInitializesRepository(t *testing.T) {
	root := filepath.Join(t.TempDir(), "store")
	s, err := New(Options{Root: root, Backend: KindGitLib})
	require.NoError(t, err)

	assert.Equal(t, KindGitLib, s.BackendKind())
	assert.DirExists(t, filepath.Join(root, ".git"))
}

func TestNew_DowngradesToFlatAndWarns(t *testing.T) {
	// A regular file where the repository metadata directory should be makes
	// the library backend unopenable without touching PATH.
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git"), []byte("not a repository\n"), 0o644))

	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))

	s, err := New(Options{Root: root, Backend: KindGitLib, Logger: logger})
	require.NoError(t, err)

	assert.Equal(t, KindFlat, s.BackendKind())
	assert.Contains(t, logBuf.String(), "falling back to flat storage")

	// The downgraded store still accepts writes.
	require.NoError(t, s.WriteArtifact("r1", "content\n", ""))
	matches, err := filepath.Glob(filepath.Join(root, "r1_*.txt"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestWriteArtifact_FlatNaming(t *testing.T) {
	root := t.TempDir()
	s, err := New(Options{Root: root, Backend: KindFlat})
	require.NoError(t, err)

	require.NoError(t, s.WriteArtifact("router1", "hostname router1\n", ""))

	matches, err := filepath.Glob(filepath.Join(root, "router1_*.txt"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Regexp(t, regexp.MustCompile(`router1_\d{2}-\d{2}-\d{4}_\d{2}-\d{2}\.txt$`), matches[0])
}

func TestWriteArtifact_CommitMessageFormat(t *testing.T) {
	s, err := New(Options{
		Root:     t.TempDir(),
		Backend:  KindGitLib,
		OwnerTag: "core-sw-1",
	})
	require.NoError(t, err)

	require.NoError(t, s.WriteArtifact("r1", "content\n", "192.0.2.9"))

	records, err := s.ListVersions("r1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Regexp(t,
		regexp.MustCompile(`^Backup core-sw-1 \(192\.0\.2\.9\) at \d{4}-\d{2}-\d{2}_\d{2}-\d{2}$`),
		records[0].Message)
}

func TestWriteArtifact_CommitMessageWithoutDeviceTag(t *testing.T) {
	s, err := New(Options{Root: t.TempDir(), Backend: KindGitLib})
	require.NoError(t, err)

	require.NoError(t, s.WriteArtifact("r1", "content\n", ""))

	records, err := s.ListVersions("r1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Regexp(t,
		regexp.MustCompile(`^Backup unknown at \d{4}-\d{2}-\d{2}_\d{2}-\d{2}$`),
		records[0].Message)
}

func TestSimulate_NoFilesystemMutation(t *testing.T) {
	root := filepath.Join(t.TempDir(), "never-created")
	s, err := New(Options{Root: root, Backend: KindGitLib, Simulate: true})
	require.NoError(t, err)

	require.NoError(t, s.WriteArtifact("r1", "0123456789", ""))
	require.NoError(t, s.WriteArtifact("r2", "01234", ""))

	_, err = os.Stat(root)
	assert.True(t, os.IsNotExist(err), "simulation must not create the storage root")

	ledger := s.Ledger()
	require.NotNil(t, ledger)
	assert.Equal(t, int64(15), ledger.TotalBytes())
	require.Len(t, ledger.Operations(), 2)
	assert.Equal(t, OpVCCommit, ledger.Operations()[0].Kind)
	assert.Equal(t, "r1.txt", ledger.Operations()[0].Path)
}

func TestSimulate_FlatRecordsSnapshotNames(t *testing.T) {
	s, err := New(Options{Root: t.TempDir(), Backend: KindFlat, Simulate: true})
	require.NoError(t, err)

	require.NoError(t, s.WriteArtifact("r1", "content", ""))

	ops := s.Ledger().Operations()
	require.Len(t, ops, 1)
	assert.Equal(t, OpWrite, ops[0].Kind)
	assert.Regexp(t, regexp.MustCompile(`^r1_\d{2}-\d{2}-\d{4}_\d{2}-\d{2}\.txt$`), ops[0].Path)
}

func TestSimulate_QueriesAreInert(t *testing.T) {
	s, err := New(Options{Root: t.TempDir(), Backend: KindGitLib, Simulate: true})
	require.NoError(t, err)
	require.NoError(t, s.WriteArtifact("r1", "content", ""))

	records, err := s.ListVersions("r1")
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = s.ReadVersion("r1", "abc12345")
	assert.ErrorIs(t, err, ErrUnsupportedOperation)

	_, err = s.DiffVersions("r1", "abc12345", "def67890")
	assert.ErrorIs(t, err, ErrUnsupportedOperation)

	_, err = s.Status()
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
}

func TestDryRunSummary(t *testing.T) {
	s, err := New(Options{Root: t.TempDir(), Backend: KindGitLib, Simulate: true})
	require.NoError(t, err)
	require.NoError(t, s.WriteArtifact("r1", "0123456789", ""))

	summary, ok := s.DryRunSummary()
	require.True(t, ok)
	assert.Contains(t, summary, "Files:      1")
	assert.Contains(t, summary, "Total size: 10 bytes")
	assert.Contains(t, summary, "[VC-COMMIT] r1.txt (10 bytes)")

	live, err := New(Options{Root: t.TempDir(), Backend: KindFlat})
	require.NoError(t, err)
	_, ok = live.DryRunSummary()
	assert.False(t, ok)
	assert.Nil(t, live.Ledger())
}

func TestStore_GitLibEndToEnd(t *testing.T) {
	s, err := New(Options{Root: t.TempDir(), Backend: KindGitLib, OwnerTag: "nms-host"})
	require.NoError(t, err)

	require.NoError(t, s.WriteArtifact("r1", "Line 1\nLine 2\n", "r1.lab"))
	require.NoError(t, s.WriteArtifact("r1", "Line 1\nLine 2\n", "r1.lab")) // no-op
	require.NoError(t, s.WriteArtifact("r1", "Line 1\nModified Line 2\nLine 3\n", "r1.lab"))

	records, err := s.ListVersions("r1")
	require.NoError(t, err)
	require.Len(t, records, 2)

	oldContent, err := s.ReadVersion("r1", records[1].ShortHash)
	require.NoError(t, err)
	assert.Equal(t, "Line 1\nLine 2\n", oldContent)

	diff, err := s.DiffVersions("r1", records[1].ShortHash, records[0].ShortHash)
	require.NoError(t, err)
	assert.Contains(t, diff, "Modified Line 2")
	assert.Contains(t, diff, "Line 3")

	same, err := s.DiffVersions("r1", records[0].ShortHash, records[0].ShortHash)
	require.NoError(t, err)
	assert.Equal(t, NoDifferences, same)
}

// The two version-control backends must agree on the observable outcome of an
// identical operation sequence.
func TestBackendParity_CommitCounts(t *testing.T) {
	requireGit(t)

	sequence := func(b Backend) {
		_, err := b.Init()
		require.NoError(t, err)
		require.NoError(t, b.WriteFile("r1.txt", "A\n", "first"))
		require.NoError(t, b.WriteFile("r1.txt", "A\n", "no-op"))
		require.NoError(t, b.WriteFile("r1.txt", "B\n", "second"))
		require.NoError(t, b.WriteFile("r2.txt", "other\n", "other file"))
	}

	shell, err := NewGitShell(t.TempDir())
	require.NoError(t, err)
	lib, err := NewGitLib(t.TempDir())
	require.NoError(t, err)

	sequence(shell)
	sequence(lib)

	for _, path := range []string{"r1.txt", "r2.txt"} {
		shellRecords, err := shell.ListVersions(path)
		require.NoError(t, err)
		libRecords, err := lib.ListVersions(path)
		require.NoError(t, err)

		require.Equal(t, len(shellRecords), len(libRecords), "history length for %s", path)
		for i := range shellRecords {
			assert.Equal(t, shellRecords[i].Message, libRecords[i].Message, "message %d for %s", i, path)
		}
	}
}
