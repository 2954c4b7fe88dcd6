package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/qinghai5060/sealio/internal/debug"
	"github.com/qinghai5060/sealio/internal/engine"
	"github.com/qinghai5060/sealio/internal/errors"
	"github.com/qinghai5060/sealio/internal/keys"
)

func init() {
	// don't import `go.uber.org/automaxprocs` to disable the log output
	_, _ = maxprocs.Set()
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sealio",
		Short: "Seal and unseal byte streams",
		Long: `
sealio seals plaintext into self-describing encrypted files using a streaming
AEAD engine and opens them again. Files are read from and written to local
paths as well as sftp, s3 and http(s) servers.
`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		DisableAutoGenTag: true,

		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			return globalOptions.PreRun(needsPassword(c.Name()))
		},
	}

	globalOptions.AddFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newDecryptCommand(),
		newEncryptCommand(),
		newEnginesCommand(),
		newKeygenCommand(),
		newOptionsCommand(),
		newVersionCommand(),
	)

	registerProfiling(cmd)

	return cmd
}

// Distinguish commands that need the password from those that work without,
// so we don't run $SEALIO_PASSWORD_COMMAND for no reason (it might prompt the
// user for authentication).
func needsPassword(cmd string) bool {
	switch cmd {
	case "engines", "help", "options", "version", "__complete":
		return false
	default:
		return true
	}
}

func main() {
	// install custom global logger into a buffer, if an error occurs
	// we can show the logs
	logBuffer := bytes.NewBuffer(nil)
	log.SetOutput(logBuffer)

	debug.Log("main %#v", os.Args)
	debug.Log("sealio %s compiled with %v on %v/%v",
		version, runtime.Version(), runtime.GOOS, runtime.GOARCH)

	ctx := createGlobalContext()
	err := newRootCommand().ExecuteContext(ctx)

	if err == nil {
		err = ctx.Err()
	}

	var exitMessage string
	switch {
	case errors.IsFatal(err):
		exitMessage = err.Error()
	case errors.Is(err, engine.ErrNotAuthentic), errors.Is(err, os.ErrNotExist):
		exitMessage = fmt.Sprintf("Fatal: %v", err)
	case err != nil:
		exitMessage = fmt.Sprintf("%+v", err)

		if logBuffer.Len() > 0 {
			exitMessage += "also, the following messages were logged by a library:\n"
			sc := bufio.NewScanner(logBuffer)
			for sc.Scan() {
				exitMessage += fmt.Sprintln(sc.Text())
			}
		}
	}

	var exitCode int
	switch {
	case err == nil:
		exitCode = 0
	case errors.Is(err, engine.ErrNotAuthentic):
		exitCode = 3
	case errors.Is(err, os.ErrNotExist):
		exitCode = 10
	case errors.Is(err, keys.ErrWrongPassword), errors.Is(err, keys.ErrWrongKey):
		exitCode = 12
	case errors.Is(err, context.Canceled):
		exitCode = 130
	default:
		exitCode = 1
	}

	if exitCode != 0 {
		_, _ = fmt.Fprintf(globalOptions.stderr, "%v\n", exitMessage)
	}
	Exit(exitCode)
}
