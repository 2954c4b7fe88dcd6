package main

import (
	"github.com/qinghai5060/sealio/internal/errors"
	"github.com/qinghai5060/sealio/internal/options"

	"github.com/spf13/cobra"
)

func newOptionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "options",
		Short: "Print list of extended options",
		Long: `
The "options" command prints a list of all the options that can be set
via -o, like the s3 and sftp connection knobs.

EXIT STATUS
===========

Exit status is 0 if the command was successful, and non-zero if there was any error.
`,
		Hidden:            true,
		DisableAutoGenTag: true,
		RunE: func(_ *cobra.Command, args []string) error {
			if len(args) != 0 {
				return errors.Fatal("the options command expects no arguments")
			}

			var maxLen int
			for _, opt := range options.List() {
				if l := len(opt.Namespace + "." + opt.Name); l > maxLen {
					maxLen = l
				}
			}

			Printf("All Extended Options:\n")
			for _, opt := range options.List() {
				Printf("  %*s  %s\n", -maxLen, opt.Namespace+"."+opt.Name, opt.Text)
			}
			return nil
		},
	}
	return cmd
}
