package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/pmezard/go-difflib/difflib"
)

// GitLib implements Backend by manipulating repository objects (trees,
// commits, references) in-process via go-git. No subprocess is ever spawned,
// which gives deterministic programmatic access to commit internals.
type GitLib struct {
	root string
	repo *git.Repository
}

// NewGitLib returns a library-driven backend rooted at root, opening an
// existing repository when one is present. Construction fails when the
// metadata directory exists but cannot be opened as a repository; the facade
// treats that as a downgrade-to-flat condition.
func NewGitLib(root string) (*GitLib, error) {
	b := &GitLib{root: root}
	if _, err := os.Stat(filepath.Join(root, ".git")); err == nil {
		repo, err := git.PlainOpen(root)
		if err != nil {
			return nil, fmt.Errorf("%w: opening repository: %v", ErrBackendUnavailable, err)
		}
		b.repo = repo
	}
	return b, nil
}

// IsInitialized reports whether a repository object is held open.
func (g *GitLib) IsInitialized() bool { return g.repo != nil }

// Init creates the repository object directly and sets identity config
// values only if unset; an existing identity is never overwritten. Calling
// it on an initialized repository is a no-op.
func (g *GitLib) Init() (bool, error) {
	if g.IsInitialized() {
		return false, nil
	}
	if err := os.MkdirAll(g.root, 0o755); err != nil {
		return false, fmt.Errorf("%w: creating repository directory: %v", ErrBackendUnavailable, err)
	}

	repo, err := git.PlainInit(g.root, false)
	if errors.Is(err, git.ErrRepositoryAlreadyExists) {
		repo, err = git.PlainOpen(g.root)
	}
	if err != nil {
		return false, fmt.Errorf("%w: initializing repository: %v", ErrBackendUnavailable, err)
	}
	g.repo = repo

	cfg, err := repo.Config()
	if err != nil {
		return false, fmt.Errorf("%w: reading repository config: %v", ErrBackendUnavailable, err)
	}
	changed := false
	if cfg.User.Name == "" {
		cfg.User.Name = identityName
		changed = true
	}
	if cfg.User.Email == "" {
		cfg.User.Email = identityEmail
		changed = true
	}
	if changed {
		if err := repo.SetConfig(cfg); err != nil {
			return false, fmt.Errorf("%w: writing repository config: %v", ErrBackendUnavailable, err)
		}
	}
	return true, nil
}

// signature builds the commit identity from repository config, falling back
// to the store defaults.
func (g *GitLib) signature() *object.Signature {
	name, email := identityName, identityEmail
	if cfg, err := g.repo.Config(); err == nil {
		if cfg.User.Name != "" {
			name = cfg.User.Name
		}
		if cfg.User.Email != "" {
			email = cfg.User.Email
		}
	}
	return &object.Signature{Name: name, Email: email, When: time.Now()}
}

// WriteFile writes content to path and commits it. When the worktree status
// reports the path as unchanged relative to the index, the write
// short-circuits as a no-op success without creating a commit. The first
// commit of a fresh repository carries an empty parent list; every later
// commit's parent is the current head.
func (g *GitLib) WriteFile(path, content, message string) error {
	if !g.IsInitialized() {
		return ErrUninitializedRepository
	}
	rel := filepath.ToSlash(path)
	full := filepath.Join(g.root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("creating parent directory for %s: %w", rel, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}

	wt, err := g.repo.Worktree()
	if err != nil {
		return fmt.Errorf("%w: opening worktree: %v", ErrBackendUnavailable, err)
	}
	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("%w: reading worktree status: %v", ErrBackendUnavailable, err)
	}
	// Status lists only paths that differ from the index or head; an absent
	// entry means this exact content is already committed.
	if _, changed := status[rel]; !changed {
		return nil
	}

	if _, err := wt.Add(rel); err != nil {
		return fmt.Errorf("%w: staging %s: %v", ErrBackendUnavailable, rel, err)
	}
	if message == "" {
		message = "Add " + rel
	}
	if _, err := wt.Commit(message, &git.CommitOptions{Author: g.signature()}); err != nil {
		return fmt.Errorf("%w: committing %s: %v", ErrBackendUnavailable, rel, err)
	}
	return nil
}

// history walks commits from the current head in committer-time order.
func (g *GitLib) history() (object.CommitIter, error) {
	head, err := g.repo.Head()
	if err != nil {
		return nil, err
	}
	return g.repo.Log(&git.LogOptions{From: head.Hash(), Order: git.LogOrderCommitterTime})
}

// resolveHash expands a short-hash prefix by scanning history from the head
// in time order, returning the first identifier whose prefix matches.
// Full-length identifiers pass through untouched.
func (g *GitLib) resolveHash(rev string) (plumbing.Hash, error) {
	if len(rev) == 40 {
		return plumbing.NewHash(rev), nil
	}
	iter, err := g.history()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: %s", ErrVersionNotFound, rev)
	}
	defer iter.Close()

	var found plumbing.Hash
	err = iter.ForEach(func(c *object.Commit) error {
		if strings.HasPrefix(c.Hash.String(), rev) {
			found = c.Hash
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: scanning history: %v", ErrBackendUnavailable, err)
	}
	if found.IsZero() {
		return plumbing.ZeroHash, fmt.Errorf("%w: %s", ErrVersionNotFound, rev)
	}
	return found, nil
}

// ListVersions walks history and keeps the commits that touched path: the
// parentless root commit when the path exists in its tree, and every other
// commit whose first-parent delta lists the path on either side (covering
// add, modify, rename and delete).
func (g *GitLib) ListVersions(path string) ([]VersionRecord, error) {
	if !g.IsInitialized() {
		return nil, ErrUninitializedRepository
	}
	rel := filepath.ToSlash(path)
	iter, err := g.history()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: walking history: %v", ErrBackendUnavailable, err)
	}
	defer iter.Close()

	var records []VersionRecord
	err = iter.ForEach(func(c *object.Commit) error {
		touched, err := commitTouches(c, rel)
		if err != nil {
			return err
		}
		if touched {
			records = append(records, recordFor(c))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walking history: %v", ErrBackendUnavailable, err)
	}
	return records, nil
}

// commitTouches reports whether rel was added, modified, renamed or deleted
// by c.
func commitTouches(c *object.Commit, rel string) (bool, error) {
	if c.NumParents() == 0 {
		if _, err := c.File(rel); err != nil {
			if errors.Is(err, object.ErrFileNotFound) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	}

	parent, err := c.Parent(0)
	if err != nil {
		return false, err
	}
	parentTree, err := parent.Tree()
	if err != nil {
		return false, err
	}
	tree, err := c.Tree()
	if err != nil {
		return false, err
	}
	changes, err := object.DiffTree(parentTree, tree)
	if err != nil {
		return false, err
	}
	for _, ch := range changes {
		if ch.From.Name == rel || ch.To.Name == rel {
			return true, nil
		}
	}
	return false, nil
}

func recordFor(c *object.Commit) VersionRecord {
	full := c.Hash.String()
	return VersionRecord{
		ShortHash: shortHash(full),
		FullHash:  full,
		Timestamp: c.Committer.When.Format(timestampLayout),
		Message:   strings.TrimSpace(c.Message),
	}
}

// ReadVersion resolves rev and looks path up in that commit's tree.
func (g *GitLib) ReadVersion(path, rev string) (string, error) {
	if !g.IsInitialized() {
		return "", ErrUninitializedRepository
	}
	rel := filepath.ToSlash(path)
	c, err := g.commitFor(rev)
	if err != nil {
		return "", err
	}
	f, err := c.File(rel)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return "", fmt.Errorf("%w: %s not present at %s", ErrVersionNotFound, rel, rev)
		}
		return "", fmt.Errorf("%w: reading %s: %v", ErrBackendUnavailable, rel, err)
	}
	content, err := f.Contents()
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", ErrBackendUnavailable, rel, err)
	}
	return content, nil
}

// commitFor resolves rev (short or full) to its commit object.
func (g *GitLib) commitFor(rev string) (*object.Commit, error) {
	hash, err := g.resolveHash(rev)
	if err != nil {
		return nil, err
	}
	c, err := g.repo.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrVersionNotFound, rev)
	}
	return c, nil
}

// DiffVersions diffs path between two revisions via tree deltas, extracting
// the unified patch text only for delta entries naming path. When rev2 is
// empty the committed blob is compared against the working state of that one
// path, ignoring unrelated pending changes.
func (g *GitLib) DiffVersions(path, rev1, rev2 string) (string, error) {
	if !g.IsInitialized() {
		return "", ErrUninitializedRepository
	}
	rel := filepath.ToSlash(path)
	c1, err := g.commitFor(rev1)
	if err != nil {
		return "", err
	}

	if rev2 == "" {
		return g.diffWorkingTree(c1, rel)
	}

	c2, err := g.commitFor(rev2)
	if err != nil {
		return "", err
	}
	tree1, err := c1.Tree()
	if err != nil {
		return "", fmt.Errorf("%w: loading tree: %v", ErrBackendUnavailable, err)
	}
	tree2, err := c2.Tree()
	if err != nil {
		return "", fmt.Errorf("%w: loading tree: %v", ErrBackendUnavailable, err)
	}
	changes, err := object.DiffTree(tree1, tree2)
	if err != nil {
		return "", fmt.Errorf("%w: computing tree delta: %v", ErrBackendUnavailable, err)
	}

	var b strings.Builder
	for _, ch := range changes {
		if ch.From.Name != rel && ch.To.Name != rel {
			continue
		}
		patch, err := ch.Patch()
		if err != nil {
			return "", fmt.Errorf("%w: rendering patch: %v", ErrBackendUnavailable, err)
		}
		b.WriteString(patch.String())
	}
	if b.Len() == 0 {
		return NoDifferences, nil
	}
	return b.String(), nil
}

// diffWorkingTree compares the blob at c against the on-disk file for rel.
func (g *GitLib) diffWorkingTree(c *object.Commit, rel string) (string, error) {
	old := ""
	if f, err := c.File(rel); err == nil {
		old, err = f.Contents()
		if err != nil {
			return "", fmt.Errorf("%w: reading %s: %v", ErrBackendUnavailable, rel, err)
		}
	} else if !errors.Is(err, object.ErrFileNotFound) {
		return "", fmt.Errorf("%w: reading %s: %v", ErrBackendUnavailable, rel, err)
	}

	current := ""
	data, err := os.ReadFile(filepath.Join(g.root, filepath.FromSlash(rel)))
	if err == nil {
		current = string(data)
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("reading working copy of %s: %w", rel, err)
	}

	if old == current {
		return NoDifferences, nil
	}
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(old),
		B:        difflib.SplitLines(current),
		FromFile: "a/" + rel,
		ToFile:   "b/" + rel,
		Context:  3,
	})
	if err != nil {
		return "", fmt.Errorf("%w: rendering diff: %v", ErrBackendUnavailable, err)
	}
	if strings.TrimSpace(text) == "" {
		return NoDifferences, nil
	}
	return text, nil
}

// DiffWithPrevious diffs path between rev and its first parent.
func (g *GitLib) DiffWithPrevious(path, rev string) (string, error) {
	if !g.IsInitialized() {
		return "", ErrUninitializedRepository
	}
	c, err := g.commitFor(rev)
	if err != nil {
		return "", err
	}
	if c.NumParents() == 0 {
		return "No parent commit (this is the initial commit)", nil
	}
	parent, err := c.Parent(0)
	if err != nil {
		return "", fmt.Errorf("%w: loading parent commit: %v", ErrBackendUnavailable, err)
	}
	return g.DiffVersions(path, parent.Hash.String(), c.Hash.String())
}

// Status maps every worktree entry onto the store's fixed status vocabulary.
// Codes outside it render as unknown rather than being dropped.
func (g *GitLib) Status() (string, error) {
	if !g.IsInitialized() {
		return "", ErrUninitializedRepository
	}
	wt, err := g.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("%w: opening worktree: %v", ErrBackendUnavailable, err)
	}
	status, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("%w: reading worktree status: %v", ErrBackendUnavailable, err)
	}
	if len(status) == 0 {
		return "Working tree clean", nil
	}

	paths := make([]string, 0, len(status))
	for p := range status {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var b strings.Builder
	b.WriteString("Repository status:")
	for _, p := range paths {
		fmt.Fprintf(&b, "\n  %s: %s", p, describeFileStatus(status[p]))
	}
	return b.String(), nil
}

// describeFileStatus maps go-git status codes onto the fixed vocabulary:
// current, staged-new, staged-modified, staged-deleted, untracked, modified,
// deleted.
func describeFileStatus(fs *git.FileStatus) string {
	switch {
	case fs.Worktree == git.Untracked || fs.Staging == git.Untracked:
		return "untracked"
	case fs.Staging == git.Added:
		return "staged-new"
	case fs.Staging == git.Modified:
		return "staged-modified"
	case fs.Staging == git.Deleted:
		return "staged-deleted"
	case fs.Worktree == git.Modified:
		return "modified"
	case fs.Worktree == git.Deleted:
		return "deleted"
	case fs.Staging == git.Unmodified && fs.Worktree == git.Unmodified:
		return "current"
	default:
		return fmt.Sprintf("unknown (%c%c)", byte(fs.Staging), byte(fs.Worktree))
	}
}
