// Package errors bundles the error handling used throughout sealio: the
// pkg/errors constructors with stack traces, the std errors inspection
// helpers and the Fatal marker for errors that abort a run.
package errors

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

// The constructors are aliased so that the recorded stack trace starts at
// the caller, not in this package.

// New returns an error with the given message and a stack trace.
var New = errors.New

// Errorf formats an error and records a stack trace.
var Errorf = errors.Errorf

// Wrap annotates an error coming from outside of sealio with a message and
// a stack trace.
var Wrap = errors.Wrap

// Wrapf annotates err with a format string. Returns nil if err is nil.
var Wrapf = errors.Wrapf

// WithStack records a stack trace for err without changing its message.
// Returns nil if err is nil.
var WithStack = errors.WithStack

// ErrUnsupported is the standard library marker for unsupported operations.
var ErrUnsupported = stderrors.ErrUnsupported

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's tree matching the type of target and
// assigns it, reporting whether it found one.
func As(err error, target interface{}) bool { return stderrors.As(err, target) }

// Join combines several errors, dropping nil ones.
func Join(errs ...error) error { return stderrors.Join(errs...) }
