package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/confvault/confvault/internal/printer"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the repository status",
		Long: `Show per-path repository state.

The gogit backend normalizes states into a fixed vocabulary (current,
staged-new, staged-modified, staged-deleted, untracked, modified, deleted);
the git backend prints the git executable's status text verbatim.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, closer, err := opts.openStore()
			if err != nil {
				return err
			}
			if closer != nil {
				defer closer.Close()
			}

			out, err := s.Status()
			if err != nil {
				return reportStoreError(err, "")
			}
			printer.Printf("%s\n", strings.TrimRight(out, "\n"))
			return nil
		},
	}
}
