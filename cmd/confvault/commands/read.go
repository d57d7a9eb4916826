package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/confvault/confvault/internal/printer"
)

func newReadCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "read <path> <rev>",
		Short: "Read a file as of a specific version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, rev := args[0], args[1]

			s, closer, err := opts.openStore()
			if err != nil {
				return err
			}
			if closer != nil {
				defer closer.Close()
			}

			content, err := s.ReadFileVersion(path, rev)
			if err != nil {
				return reportStoreError(err, path)
			}

			if output != "" {
				if err := os.WriteFile(output, []byte(content), 0o644); err != nil {
					return printer.Error("cannot write output file", err.Error(), nil)
				}
				printer.Success("Wrote %s as of %s to %s\n", path, rev, output)
				return nil
			}
			printer.Printf("%s", content)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the content to this file instead of stdout")
	return cmd
}
