package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/confvault/confvault/internal/printer"
)

func newDiffCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <path> <rev1> [rev2]",
		Short: "Show the differences of a file between versions",
		Long: `Show the differences of a file between two revisions, or between one
revision and the current working state when rev2 is omitted. Revisions may
be 8-character short hashes or full commit identifiers.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, rev1 := args[0], args[1]
			rev2 := ""
			if len(args) == 3 {
				rev2 = args[2]
			}

			s, closer, err := opts.openStore()
			if err != nil {
				return err
			}
			if closer != nil {
				defer closer.Close()
			}

			out, err := s.DiffFile(path, rev1, rev2)
			if err != nil {
				return reportStoreError(err, path)
			}
			printer.Printf("%s\n", strings.TrimRight(out, "\n"))
			return nil
		},
	}
}
