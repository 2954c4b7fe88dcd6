package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/qinghai5060/sealio/internal/debug"
	"github.com/qinghai5060/sealio/internal/engine"
	"github.com/qinghai5060/sealio/internal/engine/secureio"
	"github.com/qinghai5060/sealio/internal/envelope"
	"github.com/qinghai5060/sealio/internal/errors"
	"github.com/qinghai5060/sealio/internal/keys"
	"github.com/qinghai5060/sealio/internal/source"
	"github.com/qinghai5060/sealio/internal/stream"
	"github.com/qinghai5060/sealio/internal/terminal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

func newEncryptCommand() *cobra.Command {
	var opts EncryptOptions

	cmd := &cobra.Command{
		Use:   "encrypt [flags] [file...]",
		Short: "Seal files with a streaming AEAD engine",
		Long: `
The "encrypt" command reads plaintext from the given files, or from stdin if
no file is given, and seals each one into a self-describing encrypted file.
The file starts with a header naming the engine that produced it; engines
that support associated data bind the ciphertext to that header, so a
tampered header makes decryption fail.

The key is either derived from a password, taken from a keyfile (--keyfile,
see the "keygen" command), or, with the age engine, the stream is sealed to
the given recipients and no shared key is involved. Scripts can skip the
keyfile and pass a raw hex key in $SEALIO_KEY instead.

Files are named by location: plain paths, "sftp:user@host:/path",
"s3:host/bucket/object" and "http(s)://..." all work, for inputs as well as
for --output. Without --output each input file is sealed to "<file>.sealed"
next to it, stdin is sealed to stdout.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 1 if there was any error.
Exit status is 10 if an input file does not exist.
Exit status is 130 if the command was interrupted.
`,
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncrypt(cmd.Context(), opts, globalOptions, args)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

// EncryptOptions collects all options for the encrypt command.
type EncryptOptions struct {
	Engine      string
	Cipher      string
	SegmentSize int
	Compress    bool
	Recipients  []string
	Output      string
}

func (opts *EncryptOptions) AddFlags(f *pflag.FlagSet) {
	f.StringVarP(&opts.Engine, "engine", "e", secureio.Name, "streaming AEAD `engine` to seal with, `sealio engines` lists them")
	f.StringVar(&opts.Cipher, "cipher", "", "`cipher` within the engine (default: engine default)")
	f.IntVar(&opts.SegmentSize, "segment-size", 0, "ciphertext segment `size` in bytes for engines that honor it (default: engine default)")
	f.BoolVar(&opts.Compress, "compress", false, "compress the plaintext with zstd before sealing")
	f.StringArrayVarP(&opts.Recipients, "recipient", "r", nil, "seal to the age `recipient`, can be specified multiple times")
	f.StringVar(&opts.Output, "output", "", "write the sealed stream to this `location`, only valid with a single input")
}

// An encryptItem pairs one input with its output location. The empty
// string means stdin and stdout, respectively.
type encryptItem struct {
	input  string
	output string
}

// defaultOutput derives the output location for input when no --output is
// given. Only local files have a natural sibling to write to.
func defaultOutput(gopts GlobalOptions, input string) (string, error) {
	loc, err := source.Parse(gopts.sources, input)
	if err != nil {
		return "", errors.Fatalf("parsing file location failed: %v", err)
	}
	if loc.Scheme != "local" {
		return "", errors.Fatalf("no default output location for %v, please specify --output", source.StripPassword(gopts.sources, input))
	}
	return input + ".sealed", nil
}

func runEncrypt(ctx context.Context, opts EncryptOptions, gopts GlobalOptions, args []string) error {
	factory, ok := gopts.engines.Lookup(opts.Engine)
	if !ok {
		return errors.Fatalf("unknown engine %q, `sealio engines` lists the available ones", opts.Engine)
	}

	var items []encryptItem
	switch {
	case len(args) == 0:
		items = append(items, encryptItem{input: "", output: opts.Output})
	case opts.Output != "":
		if len(args) > 1 {
			return errors.Fatal("--output can only be combined with a single input file")
		}
		items = append(items, encryptItem{input: args[0], output: opts.Output})
	default:
		for _, arg := range args {
			output, err := defaultOutput(gopts, arg)
			if err != nil {
				return err
			}
			items = append(items, encryptItem{input: arg, output: output})
		}
	}

	if items[0].output == "" && terminal.StdoutIsTerminal() {
		return errors.Fatal("stdout is the terminal, please redirect output")
	}

	var (
		master   keys.Key
		password string
	)
	switch {
	case !factory.Traits.NeedsKey:
		if len(opts.Recipients) == 0 {
			return errors.Fatalf("the %v engine seals to recipients, specify at least one --recipient", opts.Engine)
		}
	case gopts.Keyfile != "" || gopts.masterKey != nil:
		var err error
		if gopts.masterKey == nil && gopts.password == "" && len(args) == 0 {
			return errors.Fatal("cannot read both password and data from stdin")
		}
		master, err = loadMasterKey(ctx, gopts)
		if err != nil {
			return err
		}
	default:
		var err error
		if gopts.password == "" && len(args) == 0 {
			return errors.Fatal("cannot read both password and data from stdin")
		}
		password, err = ReadPasswordTwice(ctx, gopts,
			"enter password for sealing: ",
			"enter password again: ")
		if err != nil {
			return err
		}
		// calibrate once before the workers share the result
		if _, err := keys.ActiveParams(); err != nil {
			return err
		}
	}

	wg, wgCtx := errgroup.WithContext(ctx)
	wg.SetLimit(connectionPoolSize)
	for _, item := range items {
		wg.Go(func() error {
			return encryptOne(wgCtx, opts, gopts, factory, master, password, item)
		})
	}
	return wg.Wait()
}

func encryptOne(ctx context.Context, opts EncryptOptions, gopts GlobalOptions, factory engine.Factory, master keys.Key, password string, item encryptItem) error {
	hdr := envelope.NewHeader(factory.Name)
	hdr.Cipher = opts.Cipher
	hdr.SegmentSize = opts.SegmentSize
	if opts.Compress {
		hdr.Compression = envelope.CompressionZstd
	}

	params := engine.Params{
		Cipher:      opts.Cipher,
		SegmentSize: opts.SegmentSize,
		Recipients:  opts.Recipients,
	}
	if factory.Traits.NeedsKey {
		if err := sealKeyed(hdr, &params, master, password); err != nil {
			return err
		}
	}

	eng, err := factory.New(params)
	if err != nil {
		return err
	}

	inName := "stdin"
	var in io.ReadCloser = io.NopCloser(os.Stdin)
	if item.input != "" {
		inName = source.StripPassword(gopts.sources, item.input)

		src, err := openSource(ctx, item.input, gopts)
		if err != nil {
			return err
		}
		defer func() {
			_ = src.Close()
		}()

		in, err = src.Open(ctx)
		if err != nil {
			return err
		}
	}
	defer func() {
		_ = in.Close()
	}()

	outName := "stdout"
	var out io.WriteCloser = os.Stdout
	closeOut := false
	if item.output != "" {
		outName = source.StripPassword(gopts.sources, item.output)

		dst, err := openSource(ctx, item.output, gopts)
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

	debug.Log("sealing %v to %v with engine %v", inName, outName, factory.Name)

	if err := seal(factory, eng, hdr, in, out); err != nil {
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

	Verbosef("sealed %v to %v\n", inName, outName)
	return nil
}

// seal writes one sealed stream to out: the header first, then the
// engine's ciphertext of the (possibly compressed) plaintext read from in.
func seal(factory engine.Factory, eng stream.Engine, hdr *envelope.Header, in io.Reader, out io.Writer) error {
	aad, err := envelope.WriteHeader(out, hdr)
	if err != nil {
		return err
	}
	if !factory.Traits.AssociatedData {
		aad = nil
	}

	sw, err := stream.NewWriter(eng, out, aad, stream.Options{LeaveOpen: true})
	if err != nil {
		return err
	}

	pw, err := hdr.Compressor(sw)
	if err != nil {
		_ = sw.Close()
		return err
	}

	if _, err := io.Copy(pw, in); err != nil {
		_ = pw.Close()
		_ = sw.Close()
		return err
	}

	if err := pw.Close(); err != nil {
		_ = sw.Close()
		return err
	}
	return sw.Close()
}
