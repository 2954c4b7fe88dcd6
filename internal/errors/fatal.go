package errors

import (
	"errors"
	"fmt"
)

// fatalError marks an error whose message is meant for the user as is;
// the program prints it and exits instead of dumping a stack trace.
type fatalError struct {
	msg string
	err error
}

func (e *fatalError) Error() string { return e.msg }

// Unwrap exposes the cause, if one was recorded, so errors.Is keeps
// working across the fatal marker.
func (e *fatalError) Unwrap() error { return e.err }

// Fatal returns an error with the given message that IsFatal reports true
// for. The error text is prefixed with "Fatal:".
func Fatal(s string) error {
	return Wrap(&fatalError{msg: s}, "Fatal")
}

// Fatalf formats a fatal error. When one of the operands is an error, the
// last such operand is kept as the cause; any other error operand is
// flattened into the message text, which also severs it for errors.Is.
func Fatalf(s string, data ...interface{}) error {
	fatal := &fatalError{msg: fmt.Sprintf(s, data...)}
	for _, d := range data {
		if err, ok := d.(error); ok {
			fatal.err = err
		}
	}

	return Wrap(fatal, "Fatal")
}

// IsFatal reports whether err carries the fatal marker anywhere in its
// tree.
func IsFatal(err error) bool {
	var fatal *fatalError
	return errors.As(err, &fatal)
}
