// Package terminal provides the interactive bits of the command line:
// terminal detection and prompting for passwords.
package terminal

import (
	"os"

	"golang.org/x/term"
)

// StdinIsTerminal reports whether stdin is read directly from a terminal.
func StdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// StdoutIsTerminal reports whether stdout is connected to a terminal.
func StdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
