package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/qinghai5060/sealio/internal/engine/agefile"
	"github.com/qinghai5060/sealio/internal/errors"
	"github.com/qinghai5060/sealio/internal/keys"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newKeygenCommand() *cobra.Command {
	var opts KeygenOptions

	cmd := &cobra.Command{
		Use:   "keygen [flags]",
		Short: "Generate a keyfile or an age identity",
		Long: `
The "keygen" command generates a new random master key and seals it with a
password into the keyfile given by --keyfile. Files sealed with a keyfile
record the id of the key they need, so decrypting with the wrong keyfile
is detected before any data is touched.

With --age an X25519 identity is generated instead and written to the file
given by --output. The matching public recipient is printed, the secret
identity is not.

EXIT STATUS
===========

Exit status is 0 if the command was successful, and non-zero if there was any error.
`,
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeygen(cmd.Context(), opts, globalOptions, args)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

// KeygenOptions collects all options for the keygen command.
type KeygenOptions struct {
	Age    bool
	Output string
}

func (opts *KeygenOptions) AddFlags(f *pflag.FlagSet) {
	f.BoolVar(&opts.Age, "age", false, "generate an age identity instead of a keyfile")
	f.StringVar(&opts.Output, "output", "", "write the age identity to this `file`")
}

func runKeygen(ctx context.Context, opts KeygenOptions, gopts GlobalOptions, args []string) error {
	if len(args) != 0 {
		return errors.Fatal("the keygen command expects no arguments, only options")
	}

	if opts.Age {
		return runKeygenAge(opts)
	}

	if opts.Output != "" {
		return errors.Fatal("--output is only used with --age, keyfiles are written to --keyfile")
	}
	if gopts.Keyfile == "" {
		return errors.Fatal("please specify where to save the keyfile (-k or $SEALIO_KEYFILE)")
	}

	password, err := ReadPasswordTwice(ctx, gopts,
		"enter password for new keyfile: ",
		"enter password again: ")
	if err != nil {
		return err
	}

	master, err := keys.NewRandomKey()
	if err != nil {
		return err
	}

	kf, err := keys.Seal(master, password)
	if err != nil {
		return err
	}

	if err := kf.Save(gopts.Keyfile); err != nil {
		return errors.Fatal(fmt.Sprintf("unable to save %v: %v", gopts.Keyfile, err))
	}

	Verbosef("saved new keyfile %v\n", gopts.Keyfile)
	Printf("key id is %v\n", master.ID())
	return nil
}

func runKeygenAge(opts KeygenOptions) error {
	if opts.Output == "" {
		return errors.Fatal("please specify where to save the identity (--output)")
	}

	identity, recipient, err := agefile.Generate()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(opts.Output, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return errors.Fatal(fmt.Sprintf("unable to save %v: %v", opts.Output, err))
	}

	_, err = fmt.Fprintf(f, "# created: %s\n# public key: %s\n%s\n",
		time.Now().Format(time.RFC3339), recipient, identity)
	if err != nil {
		_ = f.Close()
		return errors.Fatal(fmt.Sprintf("unable to save %v: %v", opts.Output, err))
	}
	if err := f.Close(); err != nil {
		return errors.Fatal(fmt.Sprintf("unable to save %v: %v", opts.Output, err))
	}

	Verbosef("saved new identity to %v\n", opts.Output)
	Printf("public key: %s\n", recipient)
	return nil
}
