package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/confvault/confvault/internal/printer"
	"github.com/confvault/confvault/pkg/store"
)

func newVersionsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "versions <path>",
		Short: "List the version history of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			s, closer, err := opts.openStore()
			if err != nil {
				return err
			}
			if closer != nil {
				defer closer.Close()
			}

			if s.BackendKind() == store.KindFlat {
				return printer.Error(
					"version history not supported",
					"The flat backend stores snapshots without history.",
					[]string{"Use --backend git or --backend gogit"},
				)
			}

			records, err := s.ListFileVersions(path)
			if err != nil {
				return reportStoreError(err, path)
			}
			if len(records) == 0 {
				printer.Info("No versions found for %s\n", path)
				return nil
			}

			printer.Info("\nVersions of %s:\n", path)
			printer.Println(strings.Repeat("-", 80))
			for _, v := range records {
				printer.Printf("  %s  %s  %s\n", v.ShortHash, v.Timestamp, v.Message)
			}
			return nil
		},
	}
}
