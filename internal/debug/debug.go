// Package debug provides an optional debug log. Pointing the environment
// variable DEBUG_LOG at a file enables it; without the variable, Log calls
// return immediately.
package debug

import (
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"runtime"
)

// nil while the debug log is disabled.
var dbgLogger *log.Logger

// open the log file before any init() runs, cf
// https://golang.org/ref/spec#Package_initialization
var _ = setupFromEnv()

func setupFromEnv() bool {
	logfile := os.Getenv("DEBUG_LOG")
	if logfile == "" {
		return false
	}

	fmt.Fprintf(os.Stderr, "debug log file %v\n", logfile)

	f, err := os.OpenFile(logfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to open debug log file: %v\n", err)
		os.Exit(2)
	}

	dbgLogger = log.New(f, "", log.LstdFlags)
	return true
}

func enabled() bool {
	return dbgLogger != nil
}

// goroutineID parses the running goroutine's number out of a stack dump, the
// same trick github.com/VividCortex/trace uses.
func goroutineID() int {
	buf := make([]byte, 20)
	runtime.Stack(buf, false)

	var num int
	fmt.Sscanf(string(buf), "goroutine %d ", &num)
	return num
}

// callerPosition returns the name and the dir/file:line position of the
// function two frames up.
func callerPosition() (fn, pos string) {
	pc, file, line, ok := runtime.Caller(2)
	if !ok {
		return "", ""
	}

	pos = fmt.Sprintf("%s/%s:%d", filepath.Base(filepath.Dir(file)), filepath.Base(file), line)
	return path.Base(runtime.FuncForPC(pc).Name()), pos
}

// Shortener is implemented by types whose String form is too long for the
// log and which carry an abbreviated one, like key IDs.
type Shortener interface {
	Str() string
}

// Log writes a message to the debug log if it is enabled.
func Log(f string, args ...interface{}) {
	if !enabled() {
		return
	}

	fn, pos := callerPosition()

	if len(f) == 0 || f[len(f)-1] != '\n' {
		f += "\n"
	}

	for i, item := range args {
		if shortener, ok := item.(Shortener); ok {
			args[i] = shortener.Str()
		}
	}

	dbgLogger.Printf(fmt.Sprintf("%s\t%s\t%d\t%s", pos, fn, goroutineID(), f), args...)
}
