package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/qinghai5060/sealio/internal/debug"
	"github.com/qinghai5060/sealio/internal/engine"
	"github.com/qinghai5060/sealio/internal/engine/agefile"
	"github.com/qinghai5060/sealio/internal/engine/secureio"
	"github.com/qinghai5060/sealio/internal/engine/tink"
	"github.com/qinghai5060/sealio/internal/keys"
	"github.com/qinghai5060/sealio/internal/limiter"
	"github.com/qinghai5060/sealio/internal/options"
	"github.com/qinghai5060/sealio/internal/source"
	"github.com/qinghai5060/sealio/internal/source/local"
	"github.com/qinghai5060/sealio/internal/source/retry"
	"github.com/qinghai5060/sealio/internal/source/s3"
	"github.com/qinghai5060/sealio/internal/source/sftp"
	"github.com/qinghai5060/sealio/internal/source/web"
	"github.com/qinghai5060/sealio/internal/terminal"
	"github.com/qinghai5060/sealio/internal/textfile"
	"github.com/spf13/pflag"

	"github.com/qinghai5060/sealio/internal/errors"
)

var version = "0.3.0-dev (compiled manually)"

// connectionPoolSize is the number of connections each remote scheme keeps
// open, shared between all files accessed on the same server.
const connectionPoolSize = 4

// GlobalOptions hold all global options for sealio.
type GlobalOptions struct {
	Keyfile         string
	PasswordFile    string
	PasswordCommand string
	IdentityFiles   []string
	Quiet           bool
	Verbose         int

	source.TransportOptions
	limiter.Limits

	password  string
	masterKey keys.Key
	stdout    io.Writer
	stderr    io.Writer

	sources *source.Registry
	engines *engine.Registry

	// verbosity is set as follows:
	//  0 means: don't print any messages except errors, this is used when --quiet is specified
	//  1 is the default: print essential messages
	//  2 means: print more messages, report minor things, this is used when --verbose is specified
	//  3 means: print very detailed debug messages, this is used when --verbose=2 is specified
	verbosity uint

	Options []string

	extended options.Options
}

func (opts *GlobalOptions) AddFlags(f *pflag.FlagSet) {
	f.StringVarP(&opts.Keyfile, "keyfile", "k", "", "`file` holding the sealed master key (default: $SEALIO_KEYFILE)")
	f.StringVarP(&opts.PasswordFile, "password-file", "p", "", "`file` to read the password from (default: $SEALIO_PASSWORD_FILE)")
	f.StringVarP(&opts.PasswordCommand, "password-command", "", "", "shell `command` to obtain the password from (default: $SEALIO_PASSWORD_COMMAND)")
	f.StringArrayVarP(&opts.IdentityFiles, "identity", "i", nil, "`file` with age identities, can be specified multiple times (default: $SEALIO_IDENTITY)")
	f.BoolVarP(&opts.Quiet, "quiet", "q", false, "do not output comprehensive progress report")
	// use empty parameter name as `-v, --verbose n` instead of the correct `--verbose=n` is confusing
	f.CountVarP(&opts.Verbose, "verbose", "v", "be verbose (specify multiple times or a level using --verbose=n``, max level/times is 2)")
	f.StringSliceVar(&opts.RootCertFilenames, "cacert", nil, "`file` to load root certificates from (default: use system certificates or $SEALIO_CACERT)")
	f.BoolVar(&opts.InsecureTLS, "insecure-tls", false, "skip TLS certificate verification when connecting to a remote server (insecure)")
	f.IntVar(&opts.Limits.UploadKb, "limit-upload", 0, "limits uploads to a maximum `rate` in KiB/s. (default: unlimited)")
	f.IntVar(&opts.Limits.DownloadKb, "limit-download", 0, "limits downloads to a maximum `rate` in KiB/s. (default: unlimited)")
	f.StringSliceVarP(&opts.Options, "option", "o", []string{}, "set extended option (`key=value`, can be specified multiple times)")

	opts.Keyfile = os.Getenv("SEALIO_KEYFILE")
	opts.PasswordFile = os.Getenv("SEALIO_PASSWORD_FILE")
	opts.PasswordCommand = os.Getenv("SEALIO_PASSWORD_COMMAND")
	if os.Getenv("SEALIO_IDENTITY") != "" {
		opts.IdentityFiles = strings.Split(os.Getenv("SEALIO_IDENTITY"), ",")
	}
	if os.Getenv("SEALIO_CACERT") != "" {
		opts.RootCertFilenames = strings.Split(os.Getenv("SEALIO_CACERT"), ",")
	}
}

func (opts *GlobalOptions) PreRun(needsPassword bool) error {
	// set verbosity, default is one
	opts.verbosity = 1
	if opts.Quiet && opts.Verbose > 0 {
		return errors.Fatal("--quiet and --verbose cannot be specified at the same time")
	}

	switch {
	case opts.Verbose >= 2:
		opts.verbosity = 3
	case opts.Verbose > 0:
		opts.verbosity = 2
	case opts.Quiet:
		opts.verbosity = 0
	}

	// parse extended options
	extendedOpts, err := options.Parse(opts.Options)
	if err != nil {
		return err
	}
	opts.extended = extendedOpts
	if !needsPassword {
		return nil
	}
	if hexKey := os.Getenv("SEALIO_KEY"); hexKey != "" {
		master, err := keys.ParseHex(hexKey)
		if err != nil {
			return errors.Fatal(fmt.Sprintf("Parsing $SEALIO_KEY failed: %v", err))
		}
		opts.masterKey = master
	}
	pwd, err := resolvePassword(opts, "SEALIO_PASSWORD")
	if err != nil {
		return errors.Fatal(fmt.Sprintf("Resolving password failed: %v\n", err))
	}
	opts.password = pwd
	return nil
}

var globalOptions = GlobalOptions{
	stdout:  os.Stdout,
	stderr:  os.Stderr,
	sources: collectSources(),
	engines: collectEngines(),
}

func collectSources() *source.Registry {
	sftpPool := sftp.NewPool(connectionPoolSize)
	s3Pool := s3.NewPool(connectionPoolSize)
	AddCleanupHandler(func() error {
		sftpPool.Close()
		s3Pool.Close()
		return nil
	})

	sources := source.NewRegistry()
	sources.Register(local.NewFactory())
	sources.Register(sftp.NewFactory(sftpPool))
	sources.Register(s3.NewFactory(s3Pool))
	for _, scheme := range web.Schemes {
		sources.Register(web.NewFactory(scheme))
	}
	return sources
}

func collectEngines() *engine.Registry {
	engines := engine.NewRegistry()
	engines.Register(secureio.NewFactory())
	engines.Register(tink.NewFactory())
	engines.Register(agefile.NewFactory())
	return engines
}

// resolvePassword determines the password to be used for sealing and
// unsealing files.
func resolvePassword(opts *GlobalOptions, envStr string) (string, error) {
	if opts.PasswordFile != "" && opts.PasswordCommand != "" {
		return "", errors.Fatalf("Password file and command are mutually exclusive options")
	}
	if opts.PasswordCommand != "" {
		cmdName, args, err := source.SplitShellArgs(opts.PasswordCommand)
		if err != nil {
			return "", err
		}
		cmd := exec.Command(cmdName, args...)
		cmd.Stderr = os.Stderr
		output, err := cmd.Output()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(output)), nil
	}
	if opts.PasswordFile != "" {
		return loadPasswordFromFile(opts.PasswordFile)
	}

	if pwd := os.Getenv(envStr); pwd != "" {
		return pwd, nil
	}

	return "", nil
}

// loadPasswordFromFile loads a password from a file while stripping a BOM and
// converting the password to UTF-8.
func loadPasswordFromFile(pwdFile string) (string, error) {
	s, err := textfile.Read(pwdFile)
	if errors.Is(err, os.ErrNotExist) {
		return "", errors.Fatalf("%s does not exist", pwdFile)
	}
	return strings.TrimSpace(string(s)), errors.Wrap(err, "Readfile")
}

// readPassword reads the password from the given reader directly.
func readPassword(in io.Reader) (password string, err error) {
	sc := bufio.NewScanner(in)
	sc.Scan()

	return sc.Text(), errors.WithStack(sc.Err())
}

// ReadPassword reads the password from a password file, the environment
// variable SEALIO_PASSWORD or prompts the user. If the context is canceled,
// the function leaks the password reading goroutine.
func ReadPassword(ctx context.Context, opts GlobalOptions, prompt string) (string, error) {
	if opts.password != "" {
		return opts.password, nil
	}

	var (
		password string
		err      error
	)

	if terminal.StdinIsTerminal() {
		password, err = terminal.ReadPassword(ctx, os.Stdin, os.Stderr, prompt)
	} else {
		if terminal.StdoutIsTerminal() {
			Verbosef("reading password from stdin\n")
		}
		password, err = readPassword(os.Stdin)
	}

	if err != nil {
		return "", errors.Wrap(err, "unable to read password")
	}

	if len(password) == 0 {
		return "", errors.Fatal("an empty password is not allowed")
	}

	return password, nil
}

// ReadPasswordTwice calls ReadPassword two times and returns an error when the
// passwords don't match. If the context is canceled, the function leaks the
// password reading goroutine.
func ReadPasswordTwice(ctx context.Context, gopts GlobalOptions, prompt1, prompt2 string) (string, error) {
	pw1, err := ReadPassword(ctx, gopts, prompt1)
	if err != nil {
		return "", err
	}
	if terminal.StdinIsTerminal() {
		pw2, err := ReadPassword(ctx, gopts, prompt2)
		if err != nil {
			return "", err
		}

		if pw1 != pw2 {
			return "", errors.Fatal("passwords do not match")
		}
	}

	return pw1, nil
}

func parseConfig(loc source.Location, opts options.Options) (interface{}, error) {
	cfg := loc.Config
	if cfg, ok := cfg.(source.ApplyEnvironmenter); ok {
		cfg.ApplyEnvironment()
	}

	// only apply options for a particular scheme here
	opts = opts.Extract(loc.Scheme)
	if err := opts.Apply(loc.Scheme, cfg); err != nil {
		return nil, err
	}

	debug.Log("opening %v source at %#v", loc.Scheme, cfg)
	return cfg, nil
}

// openSource opens the file at location s and wraps it with the retry
// logic for transient errors.
func openSource(ctx context.Context, s string, gopts GlobalOptions) (source.Source, error) {
	debug.Log("parsing location %v", source.StripPassword(gopts.sources, s))
	loc, err := source.Parse(gopts.sources, s)
	if err != nil {
		return nil, errors.Fatalf("parsing file location failed: %v", err)
	}

	cfg, err := parseConfig(loc, gopts.extended)
	if err != nil {
		return nil, err
	}

	rt, err := source.Transport(gopts.TransportOptions)
	if err != nil {
		return nil, errors.Fatal(err.Error())
	}

	// wrap the transport so that the throughput via HTTP is limited
	lim := limiter.NewStaticLimiter(gopts.Limits)
	rt = lim.Transport(rt)

	factory := gopts.sources.Lookup(loc.Scheme)
	if factory == nil {
		return nil, errors.Fatalf("invalid scheme: %q", loc.Scheme)
	}

	src, err := factory.Open(ctx, cfg, rt, lim)
	if err != nil {
		return nil, errors.Fatalf("unable to open %v: %v", source.StripPassword(gopts.sources, s), err)
	}

	report := func(msg string, err error, d time.Duration) {
		if d >= 0 {
			Warnf("%v returned error, retrying after %v: %v\n", msg, d, err)
		} else {
			Warnf("%v failed: %v\n", msg, err)
		}
	}
	success := func(msg string, retries int) {
		Warnf("%v operation successful after %d retries\n", msg, retries)
	}

	return retry.New(src, 15*time.Minute, report, success), nil
}

// Printf writes the message to the configured stdout stream.
func Printf(format string, args ...interface{}) {
	_, err := fmt.Fprintf(globalOptions.stdout, format, args...)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "unable to write to stdout: %v\n", err)
	}
}

// Verbosef calls Printf to write the message when the verbose flag is set.
func Verbosef(format string, args ...interface{}) {
	if globalOptions.verbosity >= 1 {
		Printf(format, args...)
	}
}

// Warnf writes the message to the configured stderr stream.
func Warnf(format string, args ...interface{}) {
	_, err := fmt.Fprintf(globalOptions.stderr, format, args...)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "unable to write to stderr: %v\n", err)
	}
}
