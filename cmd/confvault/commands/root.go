package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/confvault/confvault/internal/config"
	"github.com/confvault/confvault/internal/printer"
	"github.com/confvault/confvault/pkg/store"
)

var (
	version string
	commit  string
	date    string
)

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	commit, date = c, d
	version = fmt.Sprintf("%s (commit: %s, built: %s)", v, commit, date)
}

// rootOptions carries the persistent flags shared by every subcommand.
type rootOptions struct {
	configFile string
	path       string
	backend    string
	dryRun     bool
}

// NewRootCommand builds the full confvault command tree. Tests construct
// their own tree so flag state never leaks between runs.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "confvault",
		Short: "ConfVault - versioned storage for configuration snapshots",
		Long: `ConfVault stores textual configuration snapshots under one of three
interchangeable backends:

  flat   One timestamped file per write, no history.
  git    Version control driven through the git executable.
  gogit  In-process version control via go-git (no git binary required).

The storage root, backend and commit identity can be set in confvault.yml
and overridden per invocation with --path and --backend. With --dry-run,
operations are simulated and summarized instead of touching disk.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "Path to a confvault.yml configuration file")
	pf.StringVarP(&opts.path, "path", "p", "", "Storage root (overrides the configured value)")
	pf.StringVarP(&opts.backend, "backend", "b", "", "Storage backend: flat, git or gogit")
	pf.BoolVarP(&opts.dryRun, "dry-run", "n", false, "Simulate operations without touching disk")

	root.AddCommand(
		newInitCmd(opts),
		newWriteCmd(opts, false),
		newWriteCmd(opts, true),
		newVersionsCmd(opts),
		newDiffCmd(opts),
		newReadCmd(opts),
		newStatusCmd(opts),
	)
	return root
}

// Execute builds and runs the command tree. This is called by main.main().
func Execute() error {
	return NewRootCommand().Execute()
}

// settings merges the configuration file (when given) with flag overrides.
func (o *rootOptions) settings() (*config.Settings, error) {
	cfg := config.Default()
	if o.configFile != "" {
		loaded, err := config.Load(o.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if o.path != "" {
		cfg.Storage = o.path
	}
	if o.backend != "" {
		cfg.Backend = o.backend
	}
	return cfg, nil
}

// openStore builds the facade for commands that operate on a store. The
// returned closer is non-nil when logging goes to a file.
func (o *rootOptions) openStore() (*store.ArtifactStore, io.Closer, error) {
	cfg, err := o.settings()
	if err != nil {
		return nil, nil, err
	}
	kind, err := store.ParseKind(cfg.Backend)
	if err != nil {
		return nil, nil, printer.Error(
			"invalid backend",
			err.Error(),
			[]string{"Valid backends: flat, git, gogit"},
		)
	}
	logger, closer, err := cfg.Logger()
	if err != nil {
		return nil, nil, err
	}

	s, err := store.New(store.Options{
		Root:     cfg.Storage,
		Backend:  kind,
		OwnerTag: cfg.OwnerTag,
		Simulate: o.dryRun,
		Logger:   logger,
	})
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, nil, err
	}
	return s, closer, nil
}

// reportStoreError renders the store's error taxonomy as friendly CLI
// failures; anything outside the taxonomy passes through for cobra.
func reportStoreError(err error, path string) error {
	switch {
	case errors.Is(err, store.ErrUninitializedRepository):
		return printer.Error(
			"repository not initialized",
			"The storage root has no repository yet.",
			[]string{"Run 'confvault init' first"},
		)
	case errors.Is(err, store.ErrUnsupportedOperation):
		return printer.Error(
			"operation not supported",
			err.Error(),
			[]string{"Use --backend git or --backend gogit for version history"},
		)
	case errors.Is(err, store.ErrVersionNotFound):
		return printer.Error(
			"version not found",
			err.Error(),
			[]string{fmt.Sprintf("List known versions:\n  confvault versions %s", path)},
		)
	}
	return err
}
