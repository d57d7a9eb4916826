package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/confvault/confvault/internal/printer"
)

// newWriteCmd builds the write command, or the update command when update is
// set. Both store content and commit it; they differ only in the default
// commit message.
func newWriteCmd(opts *rootOptions, update bool) *cobra.Command {
	var (
		content  string
		fromFile string
		message  string
	)

	use, short, defaultPrefix := "write <path>", "Write a file and commit it", "Add "
	if update {
		use, short, defaultPrefix = "update <path>", "Update a file and commit the change", "Update "
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			if content == "" && fromFile == "" {
				return printer.Error(
					"missing content",
					"Provide the content to store with --content or --file.",
					[]string{
						"Inline:  confvault " + cmd.Name() + " " + path + " --content '...'",
						"From a file:  confvault " + cmd.Name() + " " + path + " --file input.txt",
					},
				)
			}
			if content != "" && fromFile != "" {
				return printer.Error(
					"conflicting flags",
					"--content and --file are mutually exclusive.",
					nil,
				)
			}
			if fromFile != "" {
				data, err := os.ReadFile(fromFile)
				if err != nil {
					return printer.Error("cannot read input file", err.Error(), nil)
				}
				content = string(data)
			}

			msg := message
			if msg == "" {
				msg = defaultPrefix + path
			}

			s, closer, err := opts.openStore()
			if err != nil {
				return err
			}
			if closer != nil {
				defer closer.Close()
			}

			if err := s.WriteFile(path, content, msg); err != nil {
				return reportStoreError(err, path)
			}

			if summary, ok := s.DryRunSummary(); ok {
				printer.Println(summary)
				return nil
			}
			printer.Success("Stored %s (%d bytes)\n", path, len(content))
			return nil
		},
	}

	cmd.Flags().StringVarP(&content, "content", "c", "", "Content to store")
	cmd.Flags().StringVar(&fromFile, "file", "", "Read the content from this file")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Commit message (version-control backends only)")
	return cmd
}
