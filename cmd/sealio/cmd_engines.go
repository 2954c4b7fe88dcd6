package main

import (
	"github.com/qinghai5060/sealio/internal/errors"

	"github.com/spf13/cobra"
)

func newEnginesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engines",
		Short: "Print list of available engines",
		Long: `
The "engines" command prints the streaming AEAD engines this build can
seal and open files with, the kind of key material each one expects, and
whether it binds the file header as associated data.

EXIT STATUS
===========

Exit status is 0 if the command was successful, and non-zero if there was any error.
`,
		DisableAutoGenTag: true,
		RunE: func(_ *cobra.Command, args []string) error {
			if len(args) != 0 {
				return errors.Fatal("the engines command expects no arguments")
			}

			for _, name := range globalOptions.engines.Names() {
				factory, _ := globalOptions.engines.Lookup(name)

				key := "recipients"
				if factory.Traits.NeedsKey {
					key = "symmetric"
				}
				aad := "no"
				if factory.Traits.AssociatedData {
					aad = "yes"
				}
				Printf("%-6s key: %-12s associated data: %s\n", name, key, aad)
			}
			return nil
		},
	}
	return cmd
}
