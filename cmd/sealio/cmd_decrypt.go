package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/qinghai5060/sealio/internal/debug"
	"github.com/qinghai5060/sealio/internal/engine"
	"github.com/qinghai5060/sealio/internal/envelope"
	"github.com/qinghai5060/sealio/internal/errors"
	"github.com/qinghai5060/sealio/internal/source"
	"github.com/qinghai5060/sealio/internal/stream"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newDecryptCommand() *cobra.Command {
	var opts DecryptOptions

	cmd := &cobra.Command{
		Use:   "decrypt [flags] location",
		Short: "Open a sealed file and write the plaintext",
		Long: `
The "decrypt" command reads a sealed file from the given location, checks
its header, recovers the key and writes the decrypted plaintext to stdout,
or to --target.

How the key is recovered depends on how the file was sealed: files sealed
with a password ask for it (or take it from $SEALIO_PASSWORD and friends),
files sealed with a keyfile need the same keyfile again (--keyfile, or the
raw hex key in $SEALIO_KEY), age files need an identity file (--identity).
A wrong password or keyfile is reported as such, a damaged or tampered
stream fails authentication.

The location can be a plain path, "sftp:user@host:/path",
"s3:host/bucket/object" or an "http(s)://..." URL.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 1 if there was any error.
Exit status is 3 if the file is damaged or has been tampered with.
Exit status is 10 if the file does not exist.
Exit status is 12 if the password or keyfile is wrong.
Exit status is 130 if the command was interrupted.
`,
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecrypt(cmd.Context(), opts, globalOptions, args)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

// DecryptOptions collects all options for the decrypt command.
type DecryptOptions struct {
	Target string
}

func (opts *DecryptOptions) AddFlags(f *pflag.FlagSet) {
	f.StringVarP(&opts.Target, "target", "t", "", "write the plaintext to this `location` instead of stdout")
}

func runDecrypt(ctx context.Context, opts DecryptOptions, gopts GlobalOptions, args []string) error {
	if len(args) != 1 {
		return errors.Fatal("the decrypt command expects a single file location")
	}
	location := args[0]
	locName := source.StripPassword(gopts.sources, location)

	src, err := openSource(ctx, location, gopts)
	if err != nil {
		return err
	}
	defer func() {
		_ = src.Close()
	}()

	in, err := src.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()

	hdr, aad, err := envelope.ReadHeader(in)
	if err != nil {
		return err
	}
	debug.Log("opened %v: %v", locName, hdr)

	factory, ok := gopts.engines.Lookup(hdr.Engine)
	if !ok {
		return errors.Fatalf("%v was sealed with unknown engine %q", locName, hdr.Engine)
	}
	if !factory.Traits.AssociatedData {
		aad = nil
	}

	params := engine.Params{
		Cipher:      hdr.Cipher,
		SegmentSize: hdr.SegmentSize,
	}
	if factory.Traits.NeedsKey {
		if err := resolveOpenKey(ctx, gopts, hdr, &params); err != nil {
			return err
		}
	} else {
		params.Identities, err = loadIdentities(gopts.IdentityFiles)
		if err != nil {
			return err
		}
		if len(params.Identities) == 0 {
			return errors.Fatalf("%v is an age file, specify at least one --identity file", locName)
		}
	}

	eng, err := factory.New(params)
	if err != nil {
		return err
	}

	sr, err := stream.NewReader(eng, in, aad, stream.Options{LeaveOpen: true})
	if err != nil {
		return err
	}

	pr, err := hdr.Decompressor(sr)
	if err != nil {
		return err
	}

	outName := "stdout"
	var out io.WriteCloser = os.Stdout
	closeOut := false
	if opts.Target != "" {
		outName = source.StripPassword(gopts.sources, opts.Target)

		dst, err := openSource(ctx, opts.Target, gopts)
		if err != nil {
			return err
		}
		defer func() {
			_ = dst.Close()
		}()

		out, err = dst.Create(ctx)
		if err != nil {
			return errors.Fatal(fmt.Sprintf("unable to create %v: %v", outName, err))
		}
		closeOut = true
	}

	_, err = io.Copy(out, pr)
	if err == nil {
		err = pr.Close()
	} else {
		_ = pr.Close()
	}
	if err != nil {
		if closeOut {
			_ = out.Close()
		}
		return err
	}

	if closeOut {
		if err := out.Close(); err != nil {
			return errors.Fatal(fmt.Sprintf("unable to save %v: %v", outName, err))
		}
	}

	Verbosef("unsealed %v to %v\n", locName, outName)
	return nil
}
