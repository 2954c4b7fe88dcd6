package debug

import (
	"io"
	"log"
	"testing"
)

// TestSetOutput redirects the debug log to w for the duration of a test,
// enabling the log if it is not already.
func TestSetOutput(t testing.TB, w io.Writer) {
	prev := dbgLogger
	dbgLogger = log.New(w, "", log.LstdFlags)
	t.Cleanup(func() {
		dbgLogger = prev
	})
}
