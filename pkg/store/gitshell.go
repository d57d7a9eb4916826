package store

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// GitShell implements Backend by invoking the git executable as subprocesses.
// Its text output is the sole information channel: history is parsed from
// formatted log lines and blobs are read through git show.
type GitShell struct {
	root string
}

// NewGitShell returns a shell-driven backend rooted at root. Construction
// fails when the git executable is not in PATH, which the facade treats as a
// downgrade-to-flat condition.
func NewGitShell(root string) (*GitShell, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return nil, fmt.Errorf("%w: git executable not found in PATH", ErrBackendUnavailable)
	}
	return &GitShell{root: root}, nil
}

// runGit executes one git subcommand against the repository, returning stdout
// and stderr separately. The locale is pinned so diagnostic text stays stable
// across systems.
func (g *GitShell) runGit(args ...string) (string, string, error) {
	cmd := exec.Command("git", append([]string{"-C", g.root}, args...)...)
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// IsInitialized reports whether the repository metadata directory exists.
func (g *GitShell) IsInitialized() bool {
	info, err := os.Stat(filepath.Join(g.root, ".git"))
	return err == nil && info.IsDir()
}

// Init creates the root if absent, initializes a repository and sets a
// repository-scoped identity so commits succeed without any global git
// configuration. Calling it on an initialized repository is a no-op.
func (g *GitShell) Init() (bool, error) {
	if g.IsInitialized() {
		return false, nil
	}
	if err := os.MkdirAll(g.root, 0o755); err != nil {
		return false, fmt.Errorf("%w: creating repository directory: %v", ErrBackendUnavailable, err)
	}
	if _, stderr, err := g.runGit("init"); err != nil {
		return false, fmt.Errorf("%w: git init: %s", ErrBackendUnavailable, strings.TrimSpace(stderr))
	}
	// Identity failures are non-fatal here; commits fall back to whatever
	// global configuration exists.
	for key, value := range map[string]string{
		"user.email": identityEmail,
		"user.name":  identityName,
	} {
		if _, stderr, err := g.runGit("config", key, value); err != nil {
			slog.Debug("setting repository identity failed",
				"key", key, "error", strings.TrimSpace(stderr))
		}
	}
	return true, nil
}

// WriteFile writes content to path, stages it and commits with message. A
// commit that fails because nothing changed is the no-op write contract and
// reports success; any other commit failure surfaces with git's diagnostic.
func (g *GitShell) WriteFile(path, content, message string) error {
	if !g.IsInitialized() {
		return ErrUninitializedRepository
	}
	full := filepath.Join(g.root, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("creating parent directory for %s: %w", path, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	if _, stderr, err := g.runGit("add", path); err != nil {
		return fmt.Errorf("%w: git add %s: %s", ErrBackendUnavailable, path, strings.TrimSpace(stderr))
	}

	if message == "" {
		message = "Add " + path
	}
	stdout, stderr, err := g.runGit("commit", "-m", message)
	if err != nil {
		if strings.Contains(stdout, "nothing to commit") || strings.Contains(stderr, "nothing to commit") {
			return nil
		}
		return fmt.Errorf("%w: git commit: %s", ErrBackendUnavailable, strings.TrimSpace(stderr+stdout))
	}
	return nil
}

// ListVersions queries history filtered to path with rename-following and
// parses each hash|isoDate|subject line into a VersionRecord, newest first.
func (g *GitShell) ListVersions(path string) ([]VersionRecord, error) {
	if !g.IsInitialized() {
		return nil, ErrUninitializedRepository
	}
	stdout, stderr, err := g.runGit("log", "--follow", "--format=%H|%ci|%s", "--", path)
	if err != nil {
		// A repository with no commits yet simply has no history to report.
		if strings.Contains(stderr, "does not have any commits") {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: git log: %s", ErrBackendUnavailable, strings.TrimSpace(stderr))
	}

	var records []VersionRecord
	for _, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
		if !strings.Contains(line, "|") {
			continue
		}
		parts := strings.SplitN(line, "|", 3)
		if len(parts) != 3 {
			continue
		}
		records = append(records, VersionRecord{
			ShortHash: shortHash(parts[0]),
			FullHash:  parts[0],
			Timestamp: normalizeGitDate(parts[1]),
			Message:   parts[2],
		})
	}
	return records, nil
}

// ReadVersion retrieves the blob for path as of rev. An unknown revision and
// a path absent at that revision both surface as ErrVersionNotFound.
func (g *GitShell) ReadVersion(path, rev string) (string, error) {
	if !g.IsInitialized() {
		return "", ErrUninitializedRepository
	}
	stdout, stderr, err := g.runGit("show", rev+":"+path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrVersionNotFound, strings.TrimSpace(stderr))
	}
	return stdout, nil
}

// DiffVersions diffs path between two revisions, or between rev1 and the
// working tree when rev2 is empty. Empty diff output maps to the
// NoDifferences sentinel, never to an empty string.
func (g *GitShell) DiffVersions(path, rev1, rev2 string) (string, error) {
	if !g.IsInitialized() {
		return "", ErrUninitializedRepository
	}
	args := []string{"diff", rev1}
	if rev2 != "" {
		args = append(args, rev2)
	}
	args = append(args, "--", path)
	stdout, stderr, err := g.runGit(args...)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrVersionNotFound, strings.TrimSpace(stderr))
	}
	if strings.TrimSpace(stdout) == "" {
		return NoDifferences, nil
	}
	return stdout, nil
}

// DiffWithPrevious diffs path between rev and its first parent. The parent
// check is structural rather than a match on git's error text: rev-list
// prints the commit followed by its parent hashes, so a single field means a
// parentless commit.
func (g *GitShell) DiffWithPrevious(path, rev string) (string, error) {
	if !g.IsInitialized() {
		return "", ErrUninitializedRepository
	}
	parents, stderr, err := g.runGit("rev-list", "--parents", "-n", "1", rev)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrVersionNotFound, strings.TrimSpace(stderr))
	}
	if len(strings.Fields(parents)) < 2 {
		return "No parent commit (this is the initial commit)", nil
	}

	stdout, stderr, err := g.runGit("diff", rev+"^.."+rev, "--", path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrVersionNotFound, strings.TrimSpace(stderr))
	}
	if strings.TrimSpace(stdout) == "" {
		return NoDifferences, nil
	}
	return stdout, nil
}

// Status returns git's status text verbatim. This backend does not normalize
// states into the fixed vocabulary; callers needing that should use the
// library backend.
func (g *GitShell) Status() (string, error) {
	if !g.IsInitialized() {
		return "", ErrUninitializedRepository
	}
	stdout, stderr, err := g.runGit("status")
	if err != nil {
		return "", fmt.Errorf("%w: git status: %s", ErrBackendUnavailable, strings.TrimSpace(stderr))
	}
	return stdout, nil
}

// normalizeGitDate rewrites git's %ci output ("2024-05-01 10:11:12 +0200")
// into the store's fixed timestamp layout.
func normalizeGitDate(s string) string {
	t, err := time.Parse("2006-01-02 15:04:05 -0700", strings.TrimSpace(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return t.Format(timestampLayout)
}
