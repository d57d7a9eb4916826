package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/confvault/confvault/internal/printer"
	"github.com/confvault/confvault/pkg/store"
)

func newInitCmd(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new storage repository",
		Long: `Initialize the storage root for the selected backend.

For the git and gogit backends this creates a repository with a
repository-scoped commit identity; for the flat backend it creates the
storage directory. Running init on an already-initialized repository is a
no-op unless --force is given, which discards the existing repository.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.settings()
			if err != nil {
				return err
			}
			kind, err := store.ParseKind(cfg.Backend)
			if err != nil {
				return printer.Error(
					"invalid backend",
					err.Error(),
					[]string{"Valid backends: flat, git, gogit"},
				)
			}

			if opts.dryRun {
				printer.Info("[dry-run] would initialize %s storage at %s\n", kind, cfg.Storage)
				return nil
			}

			backend, err := store.NewBackend(kind, cfg.Storage)
			if err != nil {
				return fmt.Errorf("constructing %s backend: %w", kind, err)
			}

			if force && kind != store.KindFlat && backend.IsInitialized() {
				if err := os.RemoveAll(filepath.Join(cfg.Storage, ".git")); err != nil {
					return fmt.Errorf("removing existing repository: %w", err)
				}
				backend, err = store.NewBackend(kind, cfg.Storage)
				if err != nil {
					return fmt.Errorf("constructing %s backend: %w", kind, err)
				}
			}

			created, err := backend.Init()
			if err != nil {
				return err
			}
			if !created {
				printer.Info("Repository already initialized at %s\n", cfg.Storage)
				return nil
			}
			printer.Success("Initialized %s storage at %s\n", kind, cfg.Storage)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Reinitialize even if a repository already exists")
	return cmd
}
